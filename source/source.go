package source

import (
	"github.com/hatlonely/configster/option"
	"github.com/hatlonely/configster/ref"
	"github.com/pkg/errors"
)

const namespace = "github.com/hatlonely/configster/source"

// ErrNotFound 来源中没有对应的配置：行、键或文档不存在
var ErrNotFound = errors.New("config not found")

func init() {
	ref.MustRegister(namespace, "FileSource", NewFileSourceWithOptions)
	ref.MustRegister(namespace, "BytesSource", NewBytesSourceWithOptions)
	ref.MustRegister(namespace, "GormSource", NewGormSourceWithOptions)
	ref.MustRegister(namespace, "SQLSource", NewSQLSourceWithOptions)
	ref.MustRegister(namespace, "RedisSource", NewRedisSourceWithOptions)
	ref.MustRegister(namespace, "MongoSource", NewMongoSourceWithOptions)
}

func NewSourceWithOptions(options *ref.TypeOptions) (option.Source, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.Namespace == "" {
		options = &ref.TypeOptions{Namespace: namespace, Type: options.Type, Options: options.Options}
	}

	obj, err := ref.NewWithOptions(options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	src, ok := obj.(option.Source)
	if !ok {
		return nil, errors.Errorf("%T is not a Source", obj)
	}
	return src, nil
}

// Close 关闭来源持有的连接，来源没有需要释放的资源时什么都不做
func Close(src option.Source) error {
	if c, ok := src.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
