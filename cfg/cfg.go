package cfg

import (
	"os"

	"github.com/hatlonely/configster/cfg/decoder"
	"github.com/hatlonely/configster/cfg/storage"
	"github.com/hatlonely/configster/cfg/validator"
	"github.com/hatlonely/configster/ref"
	"github.com/pkg/errors"
)

type Options struct {
	// 配置文件路径，为空时只使用环境变量和命令行参数
	File string `cfg:"file"`

	// 配置文件解码器，为空时按文件扩展名选择
	Decoder *ref.TypeOptions `cfg:"decoder"`

	// 环境变量前缀，为空时不读取环境变量
	EnvPrefix string `cfg:"envPrefix"`

	// 命令行参数，不包含程序名
	Args []string `cfg:"args"`
}

// Config 合并后的配置，优先级从低到高：配置文件、环境变量、命令行参数
type Config struct {
	storage    *storage.MapStorage
	positional []string
}

func NewConfigWithOptions(options *Options) (*Config, error) {
	if options == nil {
		options = &Options{}
	}

	merged := storage.NewMapStorage(map[string]any{})

	if options.File != "" {
		s, err := decodeFile(options.File, options.Decoder)
		if err != nil {
			return nil, err
		}
		merged = merged.Merge(s)
	}

	if options.EnvPrefix != "" {
		s, err := decoder.NewEnvDecoderWithOptions(&decoder.EnvDecoderOptions{
			Prefix: options.EnvPrefix,
		}).DecodeEnviron(os.Environ())
		if err != nil {
			return nil, errors.WithMessage(err, "decode environment failed")
		}
		merged = merged.Merge(s)
	}

	var positional []string
	if len(options.Args) != 0 {
		s, rest, err := decoder.NewCmdDecoder().DecodeArgs(options.Args)
		if err != nil {
			return nil, errors.WithMessage(err, "decode args failed")
		}
		merged = merged.Merge(s)
		positional = rest
	}

	return &Config{storage: merged, positional: positional}, nil
}

// NewConfig 只从配置文件加载
func NewConfig(filename string) (*Config, error) {
	return NewConfigWithOptions(&Options{File: filename})
}

func decodeFile(filename string, options *ref.TypeOptions) (*storage.MapStorage, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read config file %s failed", filename)
	}

	var d decoder.Decoder
	if options != nil && options.Type != "" {
		d, err = decoder.NewDecoderWithOptions(options)
	} else {
		d, err = decoder.NewDecoderForFile(filename)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "create decoder failed")
	}

	s, err := d.Decode(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "decode config file %s failed", filename)
	}
	return s, nil
}

// Sub 获取子配置
func (c *Config) Sub(key string) storage.Storage {
	return c.storage.Sub(key)
}

// Storage 返回合并后的原始数据
func (c *Config) Storage() *storage.MapStorage {
	return c.storage
}

// Args 返回命令行中的位置参数
func (c *Config) Args() []string {
	return c.positional
}

// ConvertTo 填充默认值后用配置覆盖，最后按 validate tag 校验
func (c *Config) ConvertTo(object any) error {
	if err := c.storage.ConvertTo(object); err != nil {
		return errors.WithMessage(err, "convert config failed")
	}
	if err := validator.ValidateStruct(object); err != nil {
		return err
	}
	return nil
}

// Load 按 options 加载配置并写入 object，返回位置参数
func Load(object any, options *Options) ([]string, error) {
	c, err := NewConfigWithOptions(options)
	if err != nil {
		return nil, err
	}
	if err := c.ConvertTo(object); err != nil {
		return nil, err
	}
	return c.Args(), nil
}
