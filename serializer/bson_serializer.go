package serializer

import (
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// BSON 没有顶层数组，统一包一层文档
type bsonDocument[T any] struct {
	Option T `bson:"option"`
}

type BSONSerializer[T any] struct{}

func NewBSONSerializer[T any]() *BSONSerializer[T] {
	return &BSONSerializer[T]{}
}

func (s *BSONSerializer[T]) Serialize(from T) ([]byte, error) {
	data, err := bson.Marshal(bsonDocument[T]{Option: from})
	return data, errors.Wrap(err, "bson.Marshal failed")
}

func (s *BSONSerializer[T]) Deserialize(data []byte) (T, error) {
	var doc bsonDocument[T]
	err := bson.Unmarshal(data, &doc)
	return doc.Option, errors.Wrap(err, "bson.Unmarshal failed")
}
