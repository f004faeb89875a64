package decoder

import (
	"path/filepath"
	"strings"

	"github.com/hatlonely/configster/cfg/storage"
	"github.com/hatlonely/configster/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*JsonDecoder](NewJsonDecoder)
	ref.MustRegisterT[*YamlDecoder](NewYamlDecoder)
	ref.MustRegisterT[*TomlDecoder](NewTomlDecoder)
	ref.MustRegisterT[*IniDecoder](NewIniDecoderWithOptions)
	ref.MustRegisterT[*EnvDecoder](NewEnvDecoderWithOptions)
	ref.MustRegisterT[*CmdDecoder](NewCmdDecoder)
}

// Decoder 把原始配置数据解码成 MapStorage
type Decoder interface {
	Decode(data []byte) (*storage.MapStorage, error)
}

func NewDecoderWithOptions(options *ref.TypeOptions) (Decoder, error) {
	if options == nil {
		return nil, errors.New("decoder options is nil")
	}

	obj, err := ref.NewWithOptions(options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	decoder, ok := obj.(Decoder)
	if !ok {
		return nil, errors.Errorf("%T is not a Decoder", obj)
	}
	return decoder, nil
}

// NewDecoderForFile 按文件扩展名选择解码器
func NewDecoderForFile(filename string) (Decoder, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return NewJsonDecoder(), nil
	case ".yaml", ".yml":
		return NewYamlDecoder(), nil
	case ".toml":
		return NewTomlDecoder(), nil
	case ".ini":
		return NewIniDecoderWithOptions(nil), nil
	case ".env":
		return NewEnvDecoderWithOptions(nil), nil
	}
	return nil, errors.Errorf("unsupported config file extension %q", filepath.Ext(filename))
}
