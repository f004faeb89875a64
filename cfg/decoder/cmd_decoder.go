package decoder

import (
	"strings"

	"github.com/hatlonely/configster/cfg/storage"
	"github.com/pkg/errors"
)

// CmdDecoder 解析 --key=value 形式的命令行参数
// key 中的点号表示嵌套，单独的 --key 视为 true，-- 之后的参数都作为位置参数
type CmdDecoder struct{}

func NewCmdDecoder() *CmdDecoder {
	return &CmdDecoder{}
}

// Decode 按空白切分参数后解码，位置参数会被忽略
func (d *CmdDecoder) Decode(data []byte) (*storage.MapStorage, error) {
	s, _, err := d.DecodeArgs(strings.Fields(string(data)))
	return s, err
}

// DecodeArgs 解码参数，返回配置和剩余的位置参数
func (d *CmdDecoder) DecodeArgs(args []string) (*storage.MapStorage, []string, error) {
	result := storage.NewMapStorage(map[string]any{})
	var positional []string

	for i, arg := range args {
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			positional = append(positional, arg)
			continue
		}

		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			return nil, nil, errors.Errorf("invalid argument %q", arg)
		}
		if !hasValue {
			value = "true"
		}
		if err := result.Set(name, value); err != nil {
			return nil, nil, errors.WithMessagef(err, "argument %q", arg)
		}
	}

	return result, positional, nil
}
