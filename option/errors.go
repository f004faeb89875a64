package option

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidText 源数据不是合法的 UTF-8 文本
var ErrInvalidText = errors.New("stream did not contain valid UTF-8")

// ErrLineTooLong 行长度超过 ParserOptions.MaxLineSize，默认不限制
var ErrLineTooLong = errors.New("line too long")

// IOError 配置源无法读取：文件不存在、没有权限、读失败或者不是合法文本
// 这是解析过程唯一会返回的错误，内容上的问题只会跳过对应的行
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsIOError 判断 err 链上是否有 *IOError
func IsIOError(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}

func newIOError(op, path string, err error) error {
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return err
	}
	return errors.WithStack(&IOError{Path: path, Op: op, Err: err})
}
