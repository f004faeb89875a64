package loader

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hatlonely/configster/option"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	mu      sync.Mutex
	results []option.Records
}

func (r *recorder) listen(records option.Records) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, records)
	return nil
}

func (r *recorder) last() option.Records {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) == 0 {
		return nil
	}
	return r.results[len(r.results)-1]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func TestFileLoader(t *testing.T) {
	Convey("FileLoader", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "app.conf")
		So(os.WriteFile(path, []byte("Color = Blue\n"), 0644), ShouldBeNil)

		loader, err := NewFileLoaderWithOptions(&FileLoaderOptions{
			FilePath: path,
			Parser:   option.ParserOptions{Delimiter: ","},
		})
		So(err, ShouldBeNil)
		defer loader.Close()

		Convey("初次解析同步完成", func() {
			r := &recorder{}
			So(loader.OnChange(r.listen), ShouldBeNil)
			So(r.count(), ShouldEqual, 1)
			So(r.last().Lookup("Color")[0].Value.Primary, ShouldEqual, "Blue")
		})

		Convey("文件修改后重新解析", func() {
			r := &recorder{}
			So(loader.OnChange(r.listen), ShouldBeNil)

			So(os.WriteFile(path, []byte("Color = Red, bright\n"), 0644), ShouldBeNil)
			So(waitFor(func() bool {
				last := r.last()
				return len(last) == 1 && last[0].Value.Primary == "Red"
			}), ShouldBeTrue)
		})

		Convey("通过改名替换文件", func() {
			r := &recorder{}
			So(loader.OnChange(r.listen), ShouldBeNil)

			tmp := filepath.Join(dir, "app.conf.tmp")
			So(os.WriteFile(tmp, []byte("Color = Green\n"), 0644), ShouldBeNil)
			So(os.Rename(tmp, path), ShouldBeNil)
			So(waitFor(func() bool {
				last := r.last()
				return len(last) == 1 && last[0].Value.Primary == "Green"
			}), ShouldBeTrue)
		})

		Convey("同目录下其他文件变化不触发", func() {
			r := &recorder{}
			So(loader.OnChange(r.listen), ShouldBeNil)

			So(os.WriteFile(filepath.Join(dir, "other.conf"), []byte("a=1\n"), 0644), ShouldBeNil)
			time.Sleep(200 * time.Millisecond)
			So(r.count(), ShouldEqual, 1)
		})

		Convey("Close 之后不再通知", func() {
			r := &recorder{}
			So(loader.OnChange(r.listen), ShouldBeNil)
			So(loader.Close(), ShouldBeNil)
			So(loader.Close(), ShouldBeNil)

			So(os.WriteFile(path, []byte("Color = Red\n"), 0644), ShouldBeNil)
			time.Sleep(200 * time.Millisecond)
			So(r.count(), ShouldEqual, 1)
		})

		Convey("listener 初次失败时返回错误", func() {
			err := loader.OnChange(func(records option.Records) error {
				return errors.New("reject")
			})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestFileLoaderMissingFile(t *testing.T) {
	Convey("文件不存在", t, func() {
		loader := NewFileLoader(filepath.Join(t.TempDir(), "missing.conf"), option.NewParser(','))
		defer loader.Close()

		called := false
		err := loader.OnChange(func(records option.Records) error {
			called = true
			return nil
		})
		So(option.IsIOError(err), ShouldBeTrue)
		So(called, ShouldBeFalse)
	})
}

func TestNewFileLoaderWithOptions(t *testing.T) {
	Convey("NewFileLoaderWithOptions", t, func() {
		_, err := NewFileLoaderWithOptions(nil)
		So(err, ShouldNotBeNil)

		_, err = NewFileLoaderWithOptions(&FileLoaderOptions{})
		So(err, ShouldNotBeNil)

		_, err = NewFileLoaderWithOptions(&FileLoaderOptions{
			FilePath: "app.conf",
			Parser:   option.ParserOptions{Delimiter: "::"},
		})
		So(err, ShouldNotBeNil)
	})
}
