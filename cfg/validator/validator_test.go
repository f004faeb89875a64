package validator

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type validParserOptions struct {
	Delimiter string `validate:"required"`
	Policy    string `validate:"omitempty,oneof=keep mark skip"`
	Store     *validStoreOptions
}

type validStoreOptions struct {
	Size int `validate:"min=1"`
}

func TestValidateStruct(t *testing.T) {
	Convey("ValidateStruct", t, func() {
		Convey("合法结构体", func() {
			So(ValidateStruct(&validParserOptions{Delimiter: ",", Policy: "mark"}), ShouldBeNil)
			So(ValidateStruct(validParserOptions{Delimiter: ","}), ShouldBeNil)
		})

		Convey("缺少必填字段", func() {
			err := ValidateStruct(&validParserOptions{})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "Delimiter")
		})

		Convey("枚举值不合法", func() {
			err := ValidateStruct(&validParserOptions{Delimiter: ",", Policy: "drop"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "Policy")
		})

		Convey("嵌套结构体", func() {
			err := ValidateStruct(&validParserOptions{Delimiter: ",", Store: &validStoreOptions{}})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "Size")
		})

		Convey("nil 和非结构体直接通过", func() {
			var p *validParserOptions
			So(ValidateStruct(nil), ShouldBeNil)
			So(ValidateStruct(p), ShouldBeNil)
			So(ValidateStruct("text"), ShouldBeNil)
			So(ValidateStruct(time.Now()), ShouldBeNil)
		})
	})
}
