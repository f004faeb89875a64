package ref

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeOptions 通过名字描述一个组件：命名空间 + 类型名 + 构造参数
type TypeOptions struct {
	Namespace string `cfg:"namespace"`
	Type      string `cfg:"type"`
	Options   any    `cfg:"options"`
}

// Convertable 可以把自身转换成构造函数需要的参数类型
// cfg 解析出来的 map 数据通过这个接口转换成 XxxOptions 结构体
type Convertable interface {
	ConvertTo(object any) error
}

type constructor struct {
	fn           reflect.Value
	hasOptions   bool
	returnsError bool
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func newConstructor(fn any) (*constructor, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %T", fn)
	}

	ft := fv.Type()
	if ft.NumIn() > 1 {
		return nil, fmt.Errorf("constructor must have 0 or 1 input parameters, got %d", ft.NumIn())
	}
	if ft.NumOut() != 1 && ft.NumOut() != 2 {
		return nil, fmt.Errorf("constructor must have 1 or 2 return values, got %d", ft.NumOut())
	}
	if ft.NumOut() == 2 && !ft.Out(1).Implements(errorType) {
		return nil, fmt.Errorf("second return value must be error type")
	}

	return &constructor{
		fn:           fv,
		hasOptions:   ft.NumIn() == 1,
		returnsError: ft.NumOut() == 2,
	}, nil
}

func (c *constructor) new(options any) (any, error) {
	var args []reflect.Value
	if c.hasOptions {
		arg, err := c.prepareArg(options)
		if err != nil {
			return nil, err
		}
		args = []reflect.Value{arg}
	}

	results := c.fn.Call(args)
	if c.returnsError && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// prepareArg 把 options 转换成构造函数的参数
// nil 时构造参数类型的零值（指针类型则分配一个空结构体），Convertable 时做类型转换
func (c *constructor) prepareArg(options any) (reflect.Value, error) {
	paramType := c.fn.Type().In(0)

	if options == nil {
		if paramType.Kind() == reflect.Ptr {
			return reflect.New(paramType.Elem()), nil
		}
		return reflect.Zero(paramType), nil
	}

	if convertable, ok := options.(Convertable); ok {
		if paramType.Kind() == reflect.Ptr {
			target := reflect.New(paramType.Elem())
			if err := convertable.ConvertTo(target.Interface()); err != nil {
				return reflect.Value{}, fmt.Errorf("failed to convert options to %v: %w", paramType, err)
			}
			return target, nil
		}
		target := reflect.New(paramType)
		if err := convertable.ConvertTo(target.Interface()); err != nil {
			return reflect.Value{}, fmt.Errorf("failed to convert options to %v: %w", paramType, err)
		}
		return target.Elem(), nil
	}

	v := reflect.ValueOf(options)
	if v.Type().AssignableTo(paramType) {
		return v, nil
	}
	// 允许传值类型给指针参数
	if paramType.Kind() == reflect.Ptr && v.Type().AssignableTo(paramType.Elem()) {
		ptr := reflect.New(paramType.Elem())
		ptr.Elem().Set(v)
		return ptr, nil
	}
	return reflect.Value{}, fmt.Errorf("options type %T is not assignable to %v", options, paramType)
}

var constructors sync.Map

func key(namespace, type_ string) string {
	return namespace + ":" + type_
}

// Register 注册构造函数
// 构造函数形如 func() T / func() (T, error) / func(*Options) T / func(*Options) (T, error)
func Register(namespace string, type_ string, newFunc any) error {
	c, err := newConstructor(newFunc)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", key(namespace, type_), err)
	}

	if existing, ok := constructors.Load(key(namespace, type_)); ok {
		if existing.(*constructor).fn.Pointer() == c.fn.Pointer() {
			return nil
		}
		return fmt.Errorf("constructor for %s already registered with different function", key(namespace, type_))
	}

	constructors.Store(key(namespace, type_), c)
	return nil
}

func MustRegister(namespace string, type_ string, newFunc any) {
	if err := Register(namespace, type_, newFunc); err != nil {
		panic(err)
	}
}

// typeName 取 T 的包路径和类型名，指针类型取其元素
func typeName[T any]() (string, string, error) {
	tt := reflect.TypeOf((*T)(nil)).Elem()
	for tt.Kind() == reflect.Ptr {
		tt = tt.Elem()
	}
	if tt.PkgPath() == "" || tt.Name() == "" {
		return "", "", fmt.Errorf("cannot determine package path or type name for type %v", tt)
	}
	return tt.PkgPath(), tt.Name(), nil
}

// RegisterT 以 T 的包路径作为命名空间、类型名作为类型注册
func RegisterT[T any](newFunc any) error {
	namespace, type_, err := typeName[T]()
	if err != nil {
		return err
	}
	return Register(namespace, type_, newFunc)
}

func MustRegisterT[T any](newFunc any) {
	if err := RegisterT[T](newFunc); err != nil {
		panic(err)
	}
}

// New 按名字创建对象
func New(namespace string, type_ string, options any) (any, error) {
	value, ok := constructors.Load(key(namespace, type_))
	if !ok {
		return nil, fmt.Errorf("constructor not found for %s", key(namespace, type_))
	}
	return value.(*constructor).new(options)
}

func NewWithOptions(options *TypeOptions) (any, error) {
	if options == nil {
		return nil, fmt.Errorf("type options is nil")
	}
	return New(options.Namespace, options.Type, options.Options)
}

// NewT 用 T 的包路径和类型名查找构造函数
func NewT[T any](options any) (T, error) {
	var zero T
	namespace, type_, err := typeName[T]()
	if err != nil {
		return zero, err
	}

	obj, err := New(namespace, type_, options)
	if err != nil {
		return zero, err
	}

	result, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("created object %T is not of type %T", obj, zero)
	}
	return result, nil
}
