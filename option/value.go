package option

import (
	"strings"
)

// SplitValue 用 delimiter 把值文本拆成主值和属性列表
// 每一段都去掉首尾空白；连续或结尾的分隔符产生的空段保留为空串
func SplitValue(text string, delimiter rune) Value {
	text = strings.TrimSpace(text)
	if text == "" {
		return Value{Primary: "", Attributes: []string{}}
	}

	tokens := strings.Split(text, string(delimiter))
	attrs := make([]string, 0, len(tokens)-1)
	for _, token := range tokens[1:] {
		attrs = append(attrs, strings.TrimSpace(token))
	}

	return Value{
		Primary:    strings.TrimSpace(tokens[0]),
		Attributes: attrs,
	}
}
