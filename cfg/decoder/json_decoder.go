package decoder

import (
	"encoding/json"

	"github.com/hatlonely/configster/cfg/storage"
	"github.com/pkg/errors"
)

type JsonDecoder struct{}

func NewJsonDecoder() *JsonDecoder {
	return &JsonDecoder{}
}

func (d *JsonDecoder) Decode(data []byte) (*storage.MapStorage, error) {
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "json.Unmarshal failed")
	}
	return storage.NewMapStorage(result), nil
}
