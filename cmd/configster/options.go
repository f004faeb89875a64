package main

import (
	"path/filepath"
	"time"

	"github.com/hatlonely/configster/cfg/storage"
	"github.com/hatlonely/configster/log/logger"
	"github.com/hatlonely/configster/option"
	"github.com/hatlonely/configster/ref"
	"github.com/pkg/errors"
)

const envPrefix = "CONFIGSTER"

type Options struct {
	File    string `cfg:"file" help:"要解析的配置文件，也可以作为第一个位置参数传入"`
	Config  string `cfg:"config" help:"configster 自身的配置文件，支持 json/yaml/toml/ini/env"`
	Format  string `cfg:"format" def:"text" validate:"oneof=text json yaml toml msgpack bson protobuf" help:"输出格式"`
	Watch   bool   `cfg:"watch" help:"文件变化时重新解析并输出"`
	Help    bool   `cfg:"help" help:"显示帮助"`
	Version bool   `cfg:"version" help:"显示版本"`

	// 常用的解析参数，非空时覆盖 parser 中的同名配置
	Delimiter string `cfg:"delimiter" help:"属性分隔符，覆盖 parser.delimiter"`
	Policy    string `cfg:"policy" validate:"omitempty,oneof=keep mark skip" help:"选项名含空白时的处理策略，覆盖 parser.invalidOptionPolicy"`

	Parser option.ParserOptions `cfg:"parser"`
	Cache  CacheOptions         `cfg:"cache"`
	Log    logger.SLogOptions   `cfg:"log"`
}

type CacheOptions struct {
	Type       string        `cfg:"type" validate:"omitempty,oneof=map freecache bolt leveldb pebble redis" help:"解析结果缓存类型，为空时不缓存"`
	Path       string        `cfg:"path" def:"configster-cache" help:"bolt/leveldb/pebble 的数据路径"`
	Endpoint   string        `cfg:"endpoint" def:"127.0.0.1:6379" help:"redis 地址"`
	TTL        time.Duration `cfg:"ttl" def:"10m" help:"缓存有效期"`
	Serializer string        `cfg:"serializer" def:"msgpack" validate:"oneof=json yaml toml msgpack bson protobuf" help:"缓存中记录的编码"`
}

// parserOptions 合并 delimiter/policy 两个快捷参数
func (o *Options) parserOptions() option.ParserOptions {
	p := o.Parser
	if o.Delimiter != "" {
		p.Delimiter = o.Delimiter
	}
	if o.Policy != "" {
		p.InvalidOptionPolicy = o.Policy
	}
	return p
}

var storeTypes = map[string]string{
	"map":       "MapStore",
	"freecache": "FreeCacheStore",
	"bolt":      "BoltDBStore",
	"leveldb":   "LevelDBStore",
	"pebble":    "PebbleStore",
	"redis":     "RedisStore",
}

var serializerTypes = map[string]string{
	"json":     "JSONSerializer",
	"yaml":     "YAMLSerializer",
	"toml":     "TOMLSerializer",
	"msgpack":  "MsgPackSerializer",
	"bson":     "BSONSerializer",
	"protobuf": "ProtobufSerializer",
}

// storeOptions 把命令行的缓存参数转换成 store 的构造参数
func (c *CacheOptions) storeOptions() (*ref.TypeOptions, error) {
	typ, ok := storeTypes[c.Type]
	if !ok {
		return nil, errors.Errorf("unsupported cache type %q", c.Type)
	}

	options := map[string]any{}
	switch c.Type {
	case "bolt":
		options["dbPath"] = filepath.Join(c.Path, "configster.db")
	case "leveldb", "pebble":
		options["dbPath"] = c.Path
	case "redis":
		options["endpoint"] = c.Endpoint
	}

	return &ref.TypeOptions{
		Namespace: "github.com/hatlonely/configster/store",
		Type:      typ,
		Options:   storage.NewMapStorage(options),
	}, nil
}

func (c *CacheOptions) serializerOptions() *ref.TypeOptions {
	return &ref.TypeOptions{
		Namespace: "github.com/hatlonely/configster/serializer",
		Type:      serializerTypes[c.Serializer],
	}
}
