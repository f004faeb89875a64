package loader

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/hatlonely/configster/log"
	"github.com/hatlonely/configster/log/logger"
	"github.com/hatlonely/configster/option"
	"github.com/hatlonely/configster/ref"
	"github.com/pkg/errors"
)

// Listener 接收每次解析的结果
type Listener func(records option.Records) error

type FileLoaderOptions struct {
	FilePath string               `cfg:"filePath" validate:"required"`
	Parser   option.ParserOptions `cfg:"parser"`
	Logger   *ref.TypeOptions     `cfg:"logger"`
}

// FileLoader 解析配置文件并监听文件变化，变化时重新解析并通知使用者
type FileLoader struct {
	filePath string
	parser   *option.Parser

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	logger logger.Logger
}

func NewFileLoaderWithOptions(options *FileLoaderOptions) (*FileLoader, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.FilePath == "" {
		return nil, errors.New("filePath is required")
	}

	p, err := option.NewParserWithOptions(&options.Parser)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create parser")
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create logger")
	}

	return NewFileLoader(options.FilePath, p.WithLogger(l)).withLogger(l), nil
}

func NewFileLoader(filePath string, parser *option.Parser) *FileLoader {
	return &FileLoader{
		filePath: filepath.Clean(filePath),
		parser:   parser,
		done:     make(chan struct{}),
		logger:   log.Default().WithGroup("fileLoader").With("filePath", filePath),
	}
}

func (l *FileLoader) withLogger(lg logger.Logger) *FileLoader {
	l.logger = lg.WithGroup("fileLoader").With("filePath", l.filePath)
	return l
}

// OnChange 同步解析一次并调用 listener，之后在后台监听文件变化
// 初次解析或 listener 失败时返回错误，不启动监听
func (l *FileLoader) OnChange(listener Listener) error {
	records, err := l.parser.ParseFile(l.filePath)
	if err != nil {
		return err
	}
	if err := listener(records); err != nil {
		return errors.WithMessage(err, "listener failed")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "fsnotify.NewWatcher failed")
	}
	if err := watcher.Add(filepath.Dir(l.filePath)); err != nil {
		_ = watcher.Close()
		return errors.Wrap(err, "watcher.Add failed")
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer watcher.Close()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if filepath.Clean(event.Name) != l.filePath {
					continue
				}

				records, err := l.parser.ParseFile(l.filePath)
				if err != nil {
					// 文件可能正在被替换，等下一次事件
					l.logger.Warn("reload failed", "event", event.Op.String(), "error", err)
					continue
				}
				if err := listener(records); err != nil {
					l.logger.Warn("listener failed", "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("watcher error", "error", err)
			case <-l.done:
				return
			}
		}
	}()

	return nil
}

// Close 停止监听，可以重复调用
func (l *FileLoader) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
	return nil
}
