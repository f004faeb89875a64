package serializer

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type JSONSerializer[T any] struct{}

func NewJSONSerializer[T any]() *JSONSerializer[T] {
	return &JSONSerializer[T]{}
}

func (s *JSONSerializer[T]) Serialize(from T) ([]byte, error) {
	data, err := json.Marshal(from)
	return data, errors.Wrap(err, "json.Marshal failed")
}

func (s *JSONSerializer[T]) Deserialize(data []byte) (T, error) {
	var result T
	err := json.Unmarshal(data, &result)
	return result, errors.Wrap(err, "json.Unmarshal failed")
}
