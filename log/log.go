package log

import (
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/hatlonely/configster/log/logger"
	"github.com/hatlonely/configster/log/writer"
	"github.com/hatlonely/configster/ref"
	"github.com/pkg/errors"
)

func init() {
	ref.MustRegisterT[*writer.ConsoleWriter](writer.NewConsoleWriterWithOptions)
	ref.MustRegisterT[*writer.FileWriter](writer.NewFileWriterWithOptions)
	ref.MustRegisterT[*writer.MultiWriter](writer.NewMultiWriterWithOptions)
	ref.MustRegisterT[*logger.SLog](logger.NewSLogWithOptions)

	// 默认日志：text 格式，info 级别，输出到 stderr
	l, err := logger.NewSLogWithOptions(&logger.SLogOptions{
		Level:  "info",
		Format: "text",
	})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger.Store(&holder{l})
}

type holder struct {
	logger.Logger
}

var defaultLogger atomic.Pointer[holder]

// Default 返回全局默认 Logger
func Default() logger.Logger {
	return defaultLogger.Load().Logger
}

// SetDefault 替换全局默认 Logger，nil 时忽略
func SetDefault(l logger.Logger) {
	if l != nil {
		defaultLogger.Store(&holder{l})
	}
}

// Nop 丢弃所有输出
func Nop() logger.Logger {
	return logger.NewSLog(slog.NewTextHandler(io.Discard, nil))
}

// NewLoggerWithOptions 根据配置创建 Logger，options 为空时返回默认 Logger
func NewLoggerWithOptions(options *ref.TypeOptions) (logger.Logger, error) {
	if options == nil || options.Type == "" {
		return Default(), nil
	}

	obj, err := ref.NewWithOptions(options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	l, ok := obj.(logger.Logger)
	if !ok {
		return nil, errors.Errorf("%T does not implement Logger interface", obj)
	}
	return l, nil
}
