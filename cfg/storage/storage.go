package storage

// Storage 层级化的配置数据
type Storage interface {
	// Sub 获取子配置，key 用点号表示嵌套，[]表示数组下标
	// 例如 "store.options.addrs[0]"
	Sub(key string) Storage

	// ConvertTo 将配置数据转成结构体或者 map/slice 等任意结构
	ConvertTo(object any) error
}
