package option

import (
	"strings"
)

// CommentMarker 注释行的首字符
const CommentMarker = '#'

// LineKind 单行的分类结果
type LineKind int

const (
	LineBlank     LineKind = iota // 空行
	LineComment                   // 注释行
	LineMalformed                 // 没有选项名，例如 "=value"
	LineRecord                    // 产生一条记录
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineComment:
		return "comment"
	case LineMalformed:
		return "malformed"
	case LineRecord:
		return "record"
	default:
		return "unknown"
	}
}

// ClassifyLine 对一行文本分类，LineRecord 时返回去掉首尾空白的选项名和值文本
func ClassifyLine(line string) (kind LineKind, option string, value string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return LineBlank, "", ""
	}
	if line[0] == CommentMarker {
		return LineComment, "", ""
	}

	if i := strings.IndexByte(line, '='); i >= 0 {
		option, value = strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
	} else {
		option = line
	}

	if option == "" {
		return LineMalformed, "", ""
	}
	return LineRecord, option, value
}
