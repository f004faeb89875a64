package option

// 当前库版本
const version = "0.3.1"

// Version 返回库版本
func Version() string {
	return version
}

// Value 选项的值：主值 + 属性列表
type Value struct {
	// 第一个分隔符之前的部分，没有值时为空串
	Primary string `json:"primary" yaml:"primary" toml:"primary" msgpack:"primary" bson:"primary"`
	// 第一个分隔符之后的各段，按出现顺序排列，没有时为空切片
	Attributes []string `json:"attributes" yaml:"attributes" toml:"attributes" msgpack:"attributes" bson:"attributes"`
}

// OptionProperties 配置文件中一行解析出来的记录
type OptionProperties struct {
	Option string `json:"option" yaml:"option" toml:"option" msgpack:"option" bson:"option"`
	Value  Value  `json:"value" yaml:"value" toml:"value" msgpack:"value" bson:"value"`
}

// Records 按源文件顺序排列的解析结果，重复的选项各自保留
type Records []OptionProperties

// Lookup 返回所有名为 name 的记录，保持原始顺序
func (r Records) Lookup(name string) Records {
	var result Records
	for _, p := range r {
		if p.Option == name {
			result = append(result, p)
		}
	}
	return result
}

// Options 返回去重后的选项名，按首次出现的顺序
func (r Records) Options() []string {
	seen := make(map[string]struct{}, len(r))
	names := make([]string, 0, len(r))
	for _, p := range r {
		if _, ok := seen[p.Option]; ok {
			continue
		}
		seen[p.Option] = struct{}{}
		names = append(names, p.Option)
	}
	return names
}

// Clone 深拷贝，返回的切片与原切片不共享内存
func (r Records) Clone() Records {
	if r == nil {
		return nil
	}
	result := make(Records, len(r))
	for i, p := range r {
		attrs := make([]string, len(p.Value.Attributes))
		copy(attrs, p.Value.Attributes)
		result[i] = OptionProperties{
			Option: p.Option,
			Value:  Value{Primary: p.Value.Primary, Attributes: attrs},
		}
	}
	return result
}

// Normalize 把 nil 属性列表替换为空切片
// 部分编码格式不区分 nil 和空切片，反序列化后调用以恢复不变式
func (r Records) Normalize() Records {
	for i := range r {
		if r[i].Value.Attributes == nil {
			r[i].Value.Attributes = []string{}
		}
	}
	return r
}
