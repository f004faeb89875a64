package decoder

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/hatlonely/configster/cfg/storage"
	"github.com/pkg/errors"
)

type EnvDecoderOptions struct {
	// 只保留带这个前缀的变量，前缀本身会被去掉
	Prefix string `cfg:"prefix"`
	// 变量名中表示层级的分隔符
	Separator string `cfg:"separator" def:"_"`
}

// EnvDecoder 解析 KEY=VALUE 形式的环境变量
// CONFIGSTER_PARSER_DELIMITER=; 在前缀为 CONFIGSTER 时对应 parser.delimiter
// 值统一保留为字符串，转换成结构体时再按字段类型解析
type EnvDecoder struct {
	prefix    string
	separator string
}

func NewEnvDecoderWithOptions(options *EnvDecoderOptions) *EnvDecoder {
	d := &EnvDecoder{separator: "_"}
	if options != nil {
		d.prefix = options.Prefix
		if options.Separator != "" {
			d.separator = options.Separator
		}
	}
	return d
}

// Decode 解析 .env 文件内容，支持注释和 export 前缀
func (d *EnvDecoder) Decode(data []byte) (*storage.MapStorage, error) {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		if !strings.Contains(line, "=") {
			return nil, errors.Errorf("invalid format at line %d: missing '='", lineNum)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan env data failed")
	}
	return d.DecodeEnviron(lines)
}

// DecodeEnviron 解析 os.Environ() 形式的变量列表
func (d *EnvDecoder) DecodeEnviron(environ []string) (*storage.MapStorage, error) {
	result := storage.NewMapStorage(map[string]any{})
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		key, ok := d.key(strings.TrimSpace(name))
		if !ok {
			continue
		}
		if err := result.Set(key, unquote(strings.TrimSpace(value))); err != nil {
			return nil, errors.WithMessagef(err, "env %s", name)
		}
	}
	return result, nil
}

// key 把变量名转成点号分隔的小写 key，不匹配前缀时返回 false
func (d *EnvDecoder) key(name string) (string, bool) {
	if d.prefix != "" {
		prefix := strings.TrimSuffix(d.prefix, d.separator) + d.separator
		if !strings.HasPrefix(strings.ToUpper(name), strings.ToUpper(prefix)) {
			return "", false
		}
		name = name[len(prefix):]
	}
	if name == "" {
		return "", false
	}

	var parts []string
	for _, part := range strings.Split(name, d.separator) {
		if part != "" {
			parts = append(parts, strings.ToLower(part))
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "."), true
}

func unquote(value string) string {
	if len(value) < 2 || value[0] != value[len(value)-1] {
		return value
	}
	switch value[0] {
	case '\'':
		return value[1 : len(value)-1]
	case '"':
		return strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\\`, `\`).Replace(value[1 : len(value)-1])
	}
	return value
}
