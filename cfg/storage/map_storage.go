package storage

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hatlonely/configster/cfg/def"
	"github.com/hatlonely/configster/ref"
	"github.com/pkg/errors"
)

var (
	durationType    = reflect.TypeOf(time.Duration(0))
	timeType        = reflect.TypeOf(time.Time{})
	typeOptionsType = reflect.TypeOf(ref.TypeOptions{})
)

// MapStorage 基于 map/slice 嵌套结构的配置数据
// json/yaml/toml/ini/env 解码的结果都统一成这种形式
type MapStorage struct {
	data any
}

func NewMapStorage(data any) *MapStorage {
	return &MapStorage{data: data}
}

func (ms *MapStorage) Data() any {
	return ms.data
}

func (ms *MapStorage) Sub(key string) Storage {
	if key == "" {
		return ms
	}
	return NewMapStorage(ms.getValue(key))
}

// ConvertTo 先按 def tag 填充零值字段，再把数据写入 object
// MapStorage 实现了 ref.Convertable，可以直接作为 ref.TypeOptions.Options 使用
func (ms *MapStorage) ConvertTo(object any) error {
	rv := reflect.ValueOf(object)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.Errorf("object must be a non-nil pointer, got %T", object)
	}
	if err := def.SetDefaults(object); err != nil {
		return errors.WithMessage(err, "set defaults failed")
	}
	if ms.data == nil {
		return nil
	}
	return convertValue(ms.data, rv.Elem(), "")
}

// Set 按 key 写入值，中间层级不存在时自动创建
func (ms *MapStorage) Set(key string, value any) error {
	keys := parseKey(key)
	if len(keys) == 0 {
		return errors.New("empty key")
	}

	if ms.data == nil {
		ms.data = map[string]any{}
	}
	current, ok := ms.data.(map[string]any)
	if !ok {
		return errors.Errorf("cannot set %q on %T", key, ms.data)
	}

	for i, k := range keys[:len(keys)-1] {
		next, ok := current[k].(map[string]any)
		if !ok {
			if current[k] != nil {
				return errors.Errorf("cannot set %q, %q is %T", key, strings.Join(keys[:i+1], "."), current[k])
			}
			next = map[string]any{}
			current[k] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
	return nil
}

// Merge 返回合并后的新 MapStorage，other 中的值覆盖当前值，map 递归合并
func (ms *MapStorage) Merge(other *MapStorage) *MapStorage {
	if other == nil {
		return NewMapStorage(ms.data)
	}
	return NewMapStorage(merge(ms.data, other.data))
}

func merge(dst, src any) any {
	if src == nil {
		return dst
	}
	dstMap, ok1 := dst.(map[string]any)
	srcMap, ok2 := src.(map[string]any)
	if !ok1 || !ok2 {
		return src
	}

	result := make(map[string]any, len(dstMap)+len(srcMap))
	for k, v := range dstMap {
		result[k] = v
	}
	for k, v := range srcMap {
		result[k] = merge(result[k], v)
	}
	return result
}

func (ms *MapStorage) getValue(key string) any {
	current := ms.data
	for _, k := range parseKey(key) {
		current = getValueByKey(current, k)
		if current == nil {
			return nil
		}
	}
	return current
}

// parseKey 解析 key，支持点号和数组下标
func parseKey(key string) []string {
	var keys []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			keys = append(keys, current.String())
			current.Reset()
		}
	}

	inBracket := false
	for _, ch := range key {
		switch {
		case ch == '.' && !inBracket:
			flush()
		case ch == '[':
			flush()
			inBracket = true
		case ch == ']' && inBracket:
			flush()
			inBracket = false
		default:
			current.WriteRune(ch)
		}
	}
	flush()

	return keys
}

func getValueByKey(data any, key string) any {
	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		value := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil
		}
		return value.Interface()

	case reflect.Slice, reflect.Array:
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= rv.Len() {
			return nil
		}
		return rv.Index(index).Interface()
	}

	return nil
}

// convertValue 将 src 转换后写入 dst，path 用于错误信息
func convertValue(src any, dst reflect.Value, path string) error {
	if ms, ok := src.(*MapStorage); ok {
		src = ms.data
	}

	srcValue := reflect.ValueOf(src)
	if !srcValue.IsValid() {
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
			// 新分配的结构体先填默认值，再用配置覆盖
			if dst.Type().Elem().Kind() == reflect.Struct {
				if err := def.SetDefaults(dst.Interface()); err != nil {
					return errors.WithMessagef(err, "set defaults for %s failed", pathName(path))
				}
			}
		}
		return convertValue(src, dst.Elem(), path)
	}

	for srcValue.Kind() == reflect.Ptr || srcValue.Kind() == reflect.Interface {
		if srcValue.IsNil() {
			return nil
		}
		srcValue = srcValue.Elem()
	}

	switch dst.Type() {
	case durationType:
		return convertToDuration(srcValue, dst, path)
	case timeType:
		return convertToTime(srcValue, dst, path)
	}

	if srcValue.Type().AssignableTo(dst.Type()) && dst.Kind() != reflect.Struct {
		dst.Set(srcValue)
		return nil
	}

	if srcValue.Kind() == reflect.String {
		if ok, err := convertString(srcValue.String(), dst, path); ok {
			return err
		}
	}

	switch dst.Kind() {
	case reflect.Map:
		return convertToMap(srcValue, dst, path)
	case reflect.Slice:
		return convertToSlice(srcValue, dst, path)
	case reflect.Struct:
		if srcValue.Type() == dst.Type() {
			dst.Set(srcValue)
			return nil
		}
		return convertToStruct(srcValue, dst, path)
	case reflect.String:
		switch srcValue.Kind() {
		case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			dst.SetString(fmt.Sprint(srcValue.Interface()))
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		switch srcValue.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			dst.Set(srcValue.Convert(dst.Type()))
			return nil
		}
	}

	return errors.Errorf("cannot convert %v to %v at %s", srcValue.Type(), dst.Type(), pathName(path))
}

// convertString 处理命令行和环境变量带来的字符串值
func convertString(s string, dst reflect.Value, path string) (bool, error) {
	switch dst.Kind() {
	case reflect.Bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return true, errors.Wrapf(err, "invalid bool %q at %s", s, pathName(path))
		}
		dst.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(s, 0, dst.Type().Bits())
		if err != nil {
			return true, errors.Wrapf(err, "invalid int %q at %s", s, pathName(path))
		}
		dst.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(s, 0, dst.Type().Bits())
		if err != nil {
			return true, errors.Wrapf(err, "invalid uint %q at %s", s, pathName(path))
		}
		dst.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(s, dst.Type().Bits())
		if err != nil {
			return true, errors.Wrapf(err, "invalid float %q at %s", s, pathName(path))
		}
		dst.SetFloat(v)
	case reflect.Slice:
		if s == "" {
			dst.Set(reflect.MakeSlice(dst.Type(), 0, 0))
			return true, nil
		}
		parts := strings.Split(s, ",")
		items := make([]any, len(parts))
		for i, part := range parts {
			items[i] = strings.TrimSpace(part)
		}
		return true, convertToSlice(reflect.ValueOf(items), dst, path)
	default:
		return false, nil
	}
	return true, nil
}

func convertToDuration(src, dst reflect.Value, path string) error {
	switch src.Kind() {
	case reflect.String:
		d, err := def.ParseDuration(src.String())
		if err != nil {
			return errors.WithMessagef(err, "at %s", pathName(path))
		}
		dst.SetInt(int64(d))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(src.Int())
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.SetInt(int64(src.Uint()))
		return nil
	case reflect.Float32, reflect.Float64:
		// 浮点数按秒处理
		dst.SetInt(int64(src.Float() * float64(time.Second)))
		return nil
	}
	return errors.Errorf("cannot convert %v to time.Duration at %s", src.Type(), pathName(path))
}

func convertToTime(src, dst reflect.Value, path string) error {
	switch src.Kind() {
	case reflect.String:
		t, err := def.ParseTime(src.String())
		if err != nil {
			return errors.WithMessagef(err, "at %s", pathName(path))
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.Set(reflect.ValueOf(time.Unix(src.Int(), 0)))
		return nil
	case reflect.Struct:
		if src.Type() == timeType {
			dst.Set(src)
			return nil
		}
	}
	return errors.Errorf("cannot convert %v to time.Time at %s", src.Type(), pathName(path))
}

func convertToMap(src, dst reflect.Value, path string) error {
	if src.Kind() != reflect.Map {
		return errors.Errorf("cannot convert %v to %v at %s", src.Type(), dst.Type(), pathName(path))
	}

	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}

	keyType := dst.Type().Key()
	for _, key := range src.MapKeys() {
		item := reflect.New(dst.Type().Elem()).Elem()
		if err := convertValue(src.MapIndex(key).Interface(), item, joinPath(path, fmt.Sprint(key.Interface()))); err != nil {
			return err
		}

		k := key
		for k.Kind() == reflect.Interface {
			k = k.Elem()
		}
		if !k.Type().AssignableTo(keyType) {
			if !k.Type().ConvertibleTo(keyType) {
				return errors.Errorf("cannot convert key %v to %v at %s", k.Type(), keyType, pathName(path))
			}
			k = k.Convert(keyType)
		}
		dst.SetMapIndex(k, item)
	}

	return nil
}

func convertToSlice(src, dst reflect.Value, path string) error {
	if src.Kind() != reflect.Slice && src.Kind() != reflect.Array {
		return errors.Errorf("cannot convert %v to %v at %s", src.Type(), dst.Type(), pathName(path))
	}

	n := src.Len()
	slice := reflect.MakeSlice(dst.Type(), n, n)
	for i := 0; i < n; i++ {
		item := slice.Index(i)
		if item.Kind() == reflect.Struct {
			if err := def.SetDefaults(item.Addr().Interface()); err != nil {
				return errors.WithMessagef(err, "set defaults for %s failed", pathName(path))
			}
		}
		if err := convertValue(src.Index(i).Interface(), item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	dst.Set(slice)

	return nil
}

func convertToStruct(src, dst reflect.Value, path string) error {
	if src.Kind() != reflect.Map {
		return errors.Errorf("cannot convert %v to %v at %s", src.Type(), dst.Type(), pathName(path))
	}

	keys := src.MapKeys()
	lookup := func(name string) (reflect.Value, bool) {
		for _, key := range keys {
			if fmt.Sprint(key.Interface()) == name {
				return src.MapIndex(key), true
			}
		}
		// 环境变量等来源的 key 是小写的，退化成大小写不敏感匹配
		for _, key := range keys {
			if strings.EqualFold(fmt.Sprint(key.Interface()), name) {
				return src.MapIndex(key), true
			}
		}
		return reflect.Value{}, false
	}

	dstType := dst.Type()
	for i := 0; i < dstType.NumField(); i++ {
		field := dstType.Field(i)
		fieldValue := dst.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		name := FieldName(field)
		if name == "-" {
			continue
		}

		value, ok := lookup(name)
		if !ok {
			continue
		}

		// ref.TypeOptions 的 options 交给构造函数自己转换
		if dstType == typeOptionsType && field.Name == "Options" {
			v := value.Interface()
			if _, isMap := v.(map[string]any); isMap {
				v = NewMapStorage(v)
			}
			if v != nil {
				fieldValue.Set(reflect.ValueOf(v))
			}
			continue
		}

		if err := convertValue(value.Interface(), fieldValue, joinPath(path, name)); err != nil {
			return err
		}
	}

	return nil
}

// FieldName 返回字段在配置中的名字
// 依次取 cfg/json/yaml/toml/ini tag，都没有时使用字段名
func FieldName(field reflect.StructField) string {
	for _, tagKey := range []string{"cfg", "json", "yaml", "toml", "ini"} {
		tag, ok := field.Tag.Lookup(tagKey)
		if !ok {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if name != "" {
			return name
		}
	}
	return field.Name
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func pathName(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}
