package decoder

import (
	"github.com/BurntSushi/toml"
	"github.com/hatlonely/configster/cfg/storage"
	"github.com/pkg/errors"
)

type TomlDecoder struct{}

func NewTomlDecoder() *TomlDecoder {
	return &TomlDecoder{}
}

func (d *TomlDecoder) Decode(data []byte) (*storage.MapStorage, error) {
	var result map[string]any
	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, errors.Wrap(err, "toml.Unmarshal failed")
	}
	return storage.NewMapStorage(result), nil
}
