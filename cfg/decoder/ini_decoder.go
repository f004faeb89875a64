package decoder

import (
	"github.com/hatlonely/configster/cfg/storage"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

type IniDecoderOptions struct {
	// 允许没有值的键，值视为 "true"
	AllowBoolKeys bool `cfg:"allowBoolKeys" def:"true"`
	// 允许重复键，重复的值合并成数组
	AllowShadows bool `cfg:"allowShadows" def:"true"`
}

// IniDecoder INI 格式解码器
// section 名中的点号表示嵌套，例如 [store.options]
type IniDecoder struct {
	options ini.LoadOptions
}

func NewIniDecoderWithOptions(options *IniDecoderOptions) *IniDecoder {
	if options == nil {
		options = &IniDecoderOptions{AllowBoolKeys: true, AllowShadows: true}
	}
	return &IniDecoder{
		options: ini.LoadOptions{
			AllowBooleanKeys:         options.AllowBoolKeys,
			AllowShadows:             options.AllowShadows,
			SpaceBeforeInlineComment: true,
		},
	}
}

func (d *IniDecoder) Decode(data []byte) (*storage.MapStorage, error) {
	file, err := ini.LoadSources(d.options, data)
	if err != nil {
		return nil, errors.Wrap(err, "ini.LoadSources failed")
	}

	result := storage.NewMapStorage(map[string]any{})
	for _, section := range file.Sections() {
		prefix := section.Name() + "."
		if section.Name() == ini.DefaultSection {
			prefix = ""
		}
		for _, key := range section.Keys() {
			if err := result.Set(prefix+key.Name(), iniValue(key)); err != nil {
				return nil, errors.WithMessagef(err, "section [%s]", section.Name())
			}
		}
	}

	return result, nil
}

func iniValue(key *ini.Key) any {
	values := key.ValueWithShadows()
	if len(values) <= 1 {
		return key.String()
	}

	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	return items
}
