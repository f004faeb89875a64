package option

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hatlonely/configster/log"
	"github.com/hatlonely/configster/log/logger"
	"github.com/hatlonely/configster/ref"
	"github.com/pkg/errors"
)

// 选项名中含有空白字符时的处理策略
const (
	InvalidOptionKeep = "keep" // 原样保留
	InvalidOptionMark = "mark" // 替换为 InvalidOption_on_Line<N>，值为空
	InvalidOptionSkip = "skip" // 当作格式错误的行跳过
)

const defaultReadBufferSize = 64 * 1024

type ParserOptions struct {
	// 属性分隔符，必须是单个字符
	Delimiter string `cfg:"delimiter" def:"," validate:"required"`
	// 选项名中含有空白字符时的处理策略
	InvalidOptionPolicy string `cfg:"invalidOptionPolicy" def:"keep" validate:"omitempty,oneof=keep mark skip"`
	// 读缓冲大小，超过缓冲的行会分段读取后拼接
	ReadBufferSize int `cfg:"readBufferSize" def:"65536"`
	// 单行最大字节数，0 表示不限制，超过时返回 ErrLineTooLong
	MaxLineSize int `cfg:"maxLineSize" def:"0"`
	// 日志配置，为空时使用 log.Default()
	Logger *ref.TypeOptions `cfg:"logger"`
}

// Source 配置文本的来源，Open 返回的 reader 由调用方关闭
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Stats 一次解析的行统计
type Stats struct {
	Lines     int
	Records   int
	Blank     int
	Comment   int
	Malformed int
}

func (s *Stats) add(kind LineKind) {
	s.Lines++
	switch kind {
	case LineBlank:
		s.Blank++
	case LineComment:
		s.Comment++
	case LineMalformed:
		s.Malformed++
	case LineRecord:
		s.Records++
	}
}

// Parser 配置文件解析器
// 解析器本身不保存解析状态，同一个 Parser 可以被多个 goroutine 同时使用
type Parser struct {
	delimiter            rune
	policy               string
	readBufferSize int
	maxLineSize    int

	logger logger.Logger
}

func NewParserWithOptions(options *ParserOptions) (*Parser, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	if utf8.RuneCountInString(options.Delimiter) != 1 {
		return nil, errors.Errorf("delimiter must be a single character, got %q", options.Delimiter)
	}
	delimiter, _ := utf8.DecodeRuneInString(options.Delimiter)
	if delimiter == '\n' || delimiter == '\r' {
		return nil, errors.Errorf("delimiter cannot be a line break, got %q", options.Delimiter)
	}

	policy := options.InvalidOptionPolicy
	switch policy {
	case "":
		policy = InvalidOptionKeep
	case InvalidOptionKeep, InvalidOptionMark, InvalidOptionSkip:
	default:
		return nil, errors.Errorf("unknown invalid option policy %q", policy)
	}

	readBufferSize := options.ReadBufferSize
	if readBufferSize <= 0 {
		readBufferSize = defaultReadBufferSize
	}
	maxLineSize := options.MaxLineSize
	if maxLineSize < 0 {
		maxLineSize = 0
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}

	return &Parser{
		delimiter:      delimiter,
		policy:         policy,
		readBufferSize: readBufferSize,
		maxLineSize:    maxLineSize,
		logger:         l.WithGroup("parser"),
	}, nil
}

// NewParser 使用默认配置和指定分隔符创建解析器
func NewParser(delimiter rune) *Parser {
	return &Parser{
		delimiter:      delimiter,
		policy:         InvalidOptionKeep,
		readBufferSize: defaultReadBufferSize,
		logger:         log.Default().WithGroup("parser"),
	}
}

// WithLogger 返回使用指定 Logger 的副本
func (p *Parser) WithLogger(l logger.Logger) *Parser {
	cp := *p
	cp.logger = l.WithGroup("parser")
	return &cp
}

func (p *Parser) Delimiter() rune {
	return p.delimiter
}

func (p *Parser) Policy() string {
	return p.policy
}

// ParseFile 读取并解析文件，文件句柄在所有路径上都会被关闭
func ParseFile(path string, delimiter rune) (Records, error) {
	return NewParser(delimiter).ParseFile(path)
}

func (p *Parser) ParseFile(path string) (Records, error) {
	records, _, err := p.ParseFileWithStats(path)
	return records, err
}

func (p *Parser) ParseFileWithStats(path string) (Records, Stats, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, newIOError("open", path, err)
	}
	defer fp.Close()

	return p.parse(fp, path)
}

// ParseSource 从任意来源读取并解析
func (p *Parser) ParseSource(ctx context.Context, src Source) (Records, error) {
	records, _, err := p.ParseSourceWithStats(ctx, src)
	return records, err
}

func (p *Parser) ParseSourceWithStats(ctx context.Context, src Source) (Records, Stats, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, Stats{}, newIOError("open", src.Name(), err)
	}
	defer rc.Close()

	return p.parse(rc, src.Name())
}

func (p *Parser) Parse(r io.Reader) (Records, error) {
	records, _, err := p.parse(r, "<reader>")
	return records, err
}

func (p *Parser) ParseWithStats(r io.Reader) (Records, Stats, error) {
	return p.parse(r, "<reader>")
}

// ParseLines 解析已经拆好的行，行号从 1 开始
func (p *Parser) ParseLines(lines []string) Records {
	records, _ := p.parseLines(lines)
	return records
}

func (p *Parser) parseLines(lines []string) (Records, Stats) {
	var stats Stats
	records := Records{}
	for i, line := range lines {
		kind, record := p.parseLine(line, i+1)
		stats.add(kind)
		if kind == LineRecord {
			records = append(records, record)
		}
	}
	return records, stats
}

func (p *Parser) parse(r io.Reader, name string) (Records, Stats, error) {
	br := bufio.NewReaderSize(r, p.readBufferSize)

	var stats Stats
	records := Records{}
	lineNumber := 0
	for {
		line, err := p.readLine(br)
		if err == io.EOF {
			break
		}
		lineNumber++
		if err != nil {
			return nil, Stats{}, newIOError("read", name, errors.WithMessagef(err, "line %d", lineNumber))
		}
		if !utf8.ValidString(line) {
			return nil, Stats{}, newIOError("read", name, errors.Wrapf(ErrInvalidText, "line %d", lineNumber))
		}
		if lineNumber == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		kind, record := p.parseLine(line, lineNumber)
		stats.add(kind)
		if kind == LineRecord {
			records = append(records, record)
		}
	}

	p.logger.Debug("parsed", "source", name, "lines", stats.Lines, "records", stats.Records, "malformed", stats.Malformed)
	return records, stats, nil
}

// readLine 读取一行并去掉行尾的 \n 或 \r\n，比缓冲长的行分段拼接
// 没有更多数据时返回 io.EOF
func (p *Parser) readLine(br *bufio.Reader) (string, error) {
	var buf []byte
	for {
		frag, isPrefix, err := br.ReadLine()
		if err != nil {
			// 行长正好是缓冲的整数倍且文件没有结尾换行
			if err == io.EOF && buf != nil {
				return string(buf), nil
			}
			return "", err
		}
		buf = append(buf, frag...)
		if p.maxLineSize > 0 && len(buf) > p.maxLineSize {
			return "", errors.Wrapf(ErrLineTooLong, "limit %d", p.maxLineSize)
		}
		if !isPrefix {
			return string(buf), nil
		}
	}
}

func (p *Parser) parseLine(line string, lineNumber int) (LineKind, OptionProperties) {
	kind, option, value := ClassifyLine(line)
	if kind == LineMalformed {
		p.logger.Debug("malformed line skipped", "lineNumber", lineNumber, "content", line)
	}
	if kind != LineRecord {
		return kind, OptionProperties{}
	}

	if p.policy != InvalidOptionKeep && strings.IndexFunc(option, unicode.IsSpace) >= 0 {
		if p.policy == InvalidOptionSkip {
			p.logger.Debug("option with whitespace skipped", "lineNumber", lineNumber, "option", option)
			return LineMalformed, OptionProperties{}
		}
		return LineRecord, OptionProperties{
			Option: fmt.Sprintf("InvalidOption_on_Line%d", lineNumber),
			Value:  Value{Primary: "", Attributes: []string{}},
		}
	}

	return LineRecord, OptionProperties{
		Option: option,
		Value:  SplitValue(value, p.delimiter),
	}
}
