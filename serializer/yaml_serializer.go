package serializer

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type YAMLSerializer[T any] struct{}

func NewYAMLSerializer[T any]() *YAMLSerializer[T] {
	return &YAMLSerializer[T]{}
}

func (s *YAMLSerializer[T]) Serialize(from T) ([]byte, error) {
	data, err := yaml.Marshal(from)
	return data, errors.Wrap(err, "yaml.Marshal failed")
}

func (s *YAMLSerializer[T]) Deserialize(data []byte) (T, error) {
	var result T
	err := yaml.Unmarshal(data, &result)
	return result, errors.Wrap(err, "yaml.Unmarshal failed")
}
