package serializer

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// TOML 顶层必须是表，数据放在 option 键下，切片编码为 [[option]]
type tomlDocument[T any] struct {
	Option T `toml:"option"`
}

type TOMLSerializer[T any] struct{}

func NewTOMLSerializer[T any]() *TOMLSerializer[T] {
	return &TOMLSerializer[T]{}
}

func (s *TOMLSerializer[T]) Serialize(from T) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(tomlDocument[T]{Option: from}); err != nil {
		return nil, errors.Wrap(err, "toml.Encode failed")
	}
	return buf.Bytes(), nil
}

func (s *TOMLSerializer[T]) Deserialize(data []byte) (T, error) {
	var doc tomlDocument[T]
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return doc.Option, errors.Wrap(err, "toml.Decode failed")
	}
	return doc.Option, nil
}
