package serializer

import (
	"strings"

	"github.com/hatlonely/configster/option"
	"github.com/hatlonely/configster/ref"
	"github.com/pkg/errors"
)

const namespace = "github.com/hatlonely/configster/serializer"

type Serializer[T any] interface {
	Serialize(from T) ([]byte, error)
	Deserialize(data []byte) (T, error)
}

func init() {
	ref.MustRegister(namespace, "JSONSerializer", NewJSONSerializer[option.Records])
	ref.MustRegister(namespace, "YAMLSerializer", NewYAMLSerializer[option.Records])
	ref.MustRegister(namespace, "TOMLSerializer", NewTOMLSerializer[option.Records])
	ref.MustRegister(namespace, "MsgPackSerializer", NewMsgPackSerializer[option.Records])
	ref.MustRegister(namespace, "BSONSerializer", NewBSONSerializer[option.Records])
	ref.MustRegister(namespace, "ProtobufSerializer", NewProtobufSerializer)
}

// NewSerializerWithOptions 创建 option.Records 的序列化器，options 为空时使用 msgpack
func NewSerializerWithOptions(options *ref.TypeOptions) (Serializer[option.Records], error) {
	if options == nil || options.Type == "" {
		return NewMsgPackSerializer[option.Records](), nil
	}

	obj, err := ref.NewWithOptions(options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	s, ok := obj.(Serializer[option.Records])
	if !ok {
		return nil, errors.Errorf("%T is not a Serializer", obj)
	}
	return s, nil
}

// Formats 支持的输出格式
var Formats = []string{"json", "yaml", "toml", "msgpack", "bson", "protobuf"}

// ByFormat 按格式名返回 option.Records 的序列化器
func ByFormat(format string) (Serializer[option.Records], error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONSerializer[option.Records](), nil
	case "yaml", "yml":
		return NewYAMLSerializer[option.Records](), nil
	case "toml":
		return NewTOMLSerializer[option.Records](), nil
	case "msgpack":
		return NewMsgPackSerializer[option.Records](), nil
	case "bson":
		return NewBSONSerializer[option.Records](), nil
	case "protobuf", "pb":
		return NewProtobufSerializer(), nil
	default:
		return nil, errors.Errorf("unsupported format %q", format)
	}
}
