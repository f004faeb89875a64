package ref

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type Value struct {
	Name string
}

type Options struct {
	Name string
}

func NewValue(options *Options) (*Value, error) {
	if options.Name == "" {
		return nil, errors.New("name cannot be empty")
	}
	return &Value{Name: options.Name}, nil
}

func NewDefaultValue() *Value {
	return &Value{Name: "default"}
}

func NewValueByValue(options Options) *Value {
	return &Value{Name: "value-" + options.Name}
}

type mapOptions map[string]string

func (m mapOptions) ConvertTo(object any) error {
	o, ok := object.(*Options)
	if !ok {
		return errors.New("unexpected target")
	}
	o.Name = m["name"]
	return nil
}

func TestRegisterAndNew(t *testing.T) {
	Convey("Register/New", t, func() {
		So(Register("test", "Value", NewValue), ShouldBeNil)
		So(Register("test", "DefaultValue", NewDefaultValue), ShouldBeNil)
		So(Register("test", "ValueByValue", NewValueByValue), ShouldBeNil)

		Convey("带参数的构造函数", func() {
			obj, err := New("test", "Value", &Options{Name: "registered"})
			So(err, ShouldBeNil)
			So(obj.(*Value).Name, ShouldEqual, "registered")
		})

		Convey("构造函数返回的错误透传", func() {
			_, err := New("test", "Value", &Options{})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldEqual, "name cannot be empty")
		})

		Convey("无参数的构造函数", func() {
			obj, err := New("test", "DefaultValue", nil)
			So(err, ShouldBeNil)
			So(obj.(*Value).Name, ShouldEqual, "default")
		})

		Convey("nil options 构造零值参数", func() {
			obj, err := New("test", "ValueByValue", nil)
			So(err, ShouldBeNil)
			So(obj.(*Value).Name, ShouldEqual, "value-")
		})

		Convey("值类型 options 传给指针参数", func() {
			obj, err := New("test", "Value", Options{Name: "by-value"})
			So(err, ShouldBeNil)
			So(obj.(*Value).Name, ShouldEqual, "by-value")
		})

		Convey("Convertable options", func() {
			obj, err := New("test", "Value", mapOptions{"name": "converted"})
			So(err, ShouldBeNil)
			So(obj.(*Value).Name, ShouldEqual, "converted")

			obj, err = New("test", "ValueByValue", mapOptions{"name": "converted"})
			So(err, ShouldBeNil)
			So(obj.(*Value).Name, ShouldEqual, "value-converted")
		})

		Convey("类型不匹配", func() {
			_, err := New("test", "Value", 42)
			So(err, ShouldNotBeNil)
		})

		Convey("未注册", func() {
			_, err := New("test", "NotExist", nil)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "constructor not found")
		})

		Convey("重复注册", func() {
			So(Register("test", "Value", NewValue), ShouldBeNil)
			So(Register("test", "Value", NewDefaultValue), ShouldNotBeNil)
		})

		Convey("NewWithOptions", func() {
			obj, err := NewWithOptions(&TypeOptions{Namespace: "test", Type: "DefaultValue"})
			So(err, ShouldBeNil)
			So(obj.(*Value).Name, ShouldEqual, "default")

			_, err = NewWithOptions(nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRegisterInvalidConstructor(t *testing.T) {
	Convey("非法构造函数", t, func() {
		So(Register("test", "NotFunc", 1), ShouldNotBeNil)
		So(Register("test", "TooManyIn", func(a, b int) int { return a + b }), ShouldNotBeNil)
		So(Register("test", "NoOut", func() {}), ShouldNotBeNil)
		So(Register("test", "BadErr", func() (int, int) { return 1, 2 }), ShouldNotBeNil)
	})
}

func TestRegisterTAndNewT(t *testing.T) {
	Convey("RegisterT/NewT", t, func() {
		So(RegisterT[*Value](NewValue), ShouldBeNil)

		v, err := NewT[*Value](&Options{Name: "typed"})
		So(err, ShouldBeNil)
		So(v.Name, ShouldEqual, "typed")

		obj, err := New("github.com/hatlonely/configster/ref", "Value", &Options{Name: "by-name"})
		So(err, ShouldBeNil)
		So(obj.(*Value).Name, ShouldEqual, "by-name")

		So(RegisterT[int](NewDefaultValue), ShouldNotBeNil)
	})
}
