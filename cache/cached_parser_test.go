package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hatlonely/configster/option"
	"github.com/hatlonely/configster/ref"
	"github.com/hatlonely/configster/serializer"
	"github.com/hatlonely/configster/store"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type failingStore struct {
	sets int
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte, opts ...store.SetOption) error {
	s.sets++
	return errors.New("store unavailable")
}

func (s *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("store unavailable")
}

func (s *failingStore) Del(ctx context.Context, key string) error {
	return nil
}

func (s *failingStore) Close() error {
	return nil
}

func writeConfig(t *testing.T, dir string, content string) string {
	t.Helper()
	path := filepath.Join(dir, "app.conf")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCachedParser(t *testing.T) {
	Convey("CachedParser", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		path := writeConfig(t, dir, "Color = Blue\nPort = 8080, tcp\n")

		c, err := NewCachedParserWithOptions(&CachedParserOptions{
			Parser:    option.ParserOptions{Delimiter: ","},
			TTL:       time.Minute,
			KeyPrefix: "test:",
		})
		So(err, ShouldBeNil)
		defer c.Close()

		Convey("第二次解析命中缓存", func() {
			r1, err := c.ParseFile(ctx, path)
			So(err, ShouldBeNil)
			So(c.Misses(), ShouldEqual, 1)

			r2, err := c.ParseFile(ctx, path)
			So(err, ShouldBeNil)
			So(c.Hits(), ShouldEqual, 1)
			So(cmp.Diff(r1, r2), ShouldBeEmpty)
		})

		Convey("命中的结果与缓存互不影响", func() {
			_, err := c.ParseFile(ctx, path)
			So(err, ShouldBeNil)
			r, err := c.ParseFile(ctx, path)
			So(err, ShouldBeNil)
			r[0].Value.Primary = "changed"

			r, err = c.ParseFile(ctx, path)
			So(err, ShouldBeNil)
			So(r[0].Value.Primary, ShouldEqual, "Blue")
		})

		Convey("文件变化后重新解析", func() {
			_, err := c.ParseFile(ctx, path)
			So(err, ShouldBeNil)

			So(os.WriteFile(path, []byte("Color = Red\n"), 0644), ShouldBeNil)
			later := time.Now().Add(time.Hour)
			So(os.Chtimes(path, later, later), ShouldBeNil)

			r, err := c.ParseFile(ctx, path)
			So(err, ShouldBeNil)
			So(c.Misses(), ShouldEqual, 2)
			So(r.Lookup("Color")[0].Value.Primary, ShouldEqual, "Red")
		})

		Convey("大小和修改时间不变但内容变化时重新解析", func() {
			info, err := os.Stat(path)
			So(err, ShouldBeNil)
			_, err = c.ParseFile(ctx, path)
			So(err, ShouldBeNil)

			So(os.WriteFile(path, []byte("Color = Gray\nPort = 8080, tcp\n"), 0644), ShouldBeNil)
			So(os.Chtimes(path, info.ModTime(), info.ModTime()), ShouldBeNil)
			after, err := os.Stat(path)
			So(err, ShouldBeNil)
			So(after.Size(), ShouldEqual, info.Size())

			r, err := c.ParseFile(ctx, path)
			So(err, ShouldBeNil)
			So(c.Misses(), ShouldEqual, 2)
			So(r.Lookup("Color")[0].Value.Primary, ShouldEqual, "Gray")
		})

		Convey("文件不存在时不缓存", func() {
			missing := filepath.Join(dir, "missing.conf")
			r, err := c.ParseFile(ctx, missing)
			So(err, ShouldNotBeNil)
			So(r, ShouldBeNil)
			So(option.IsIOError(err), ShouldBeTrue)
			So(c.Misses(), ShouldEqual, 0)
		})

		Convey("空文件", func() {
			empty := filepath.Join(dir, "empty.conf")
			So(os.WriteFile(empty, nil, 0644), ShouldBeNil)
			_, err := c.ParseFile(ctx, empty)
			So(err, ShouldBeNil)
			r, err := c.ParseFile(ctx, empty)
			So(err, ShouldBeNil)
			So(r, ShouldNotBeNil)
			So(r, ShouldBeEmpty)
			So(c.Hits(), ShouldEqual, 1)
		})

		Convey("Invalidate", func() {
			_, err := c.ParseFile(ctx, path)
			So(err, ShouldBeNil)
			So(c.Invalidate(ctx, path), ShouldBeNil)
			_, err = c.ParseFile(ctx, path)
			So(err, ShouldBeNil)
			So(c.Misses(), ShouldEqual, 2)
		})
	})
}

func TestCachedParserStoreFailure(t *testing.T) {
	Convey("存储不可用时退化为直接解析", t, func() {
		path := writeConfig(t, t.TempDir(), "a = 1\n")
		fs := &failingStore{}
		c := NewCachedParser(option.NewParser(','), fs, serializer.NewJSONSerializer[option.Records](), 0)

		r, err := c.ParseFile(context.Background(), path)
		So(err, ShouldBeNil)
		So(len(r), ShouldEqual, 1)
		So(fs.sets, ShouldEqual, 1)
		So(c.Hits(), ShouldEqual, 0)
	})
}

func TestCachedParserCorruptEntry(t *testing.T) {
	Convey("缓存内容损坏时重新解析", t, func() {
		ctx := context.Background()
		path := writeConfig(t, t.TempDir(), "a = 1\n")
		s := store.NewMapStoreWithOptions(nil)
		c := NewCachedParser(option.NewParser(','), s, serializer.NewJSONSerializer[option.Records](), 0)

		abs, data, err := readFile(path)
		So(err, ShouldBeNil)
		So(s.Set(ctx, c.key(abs, data), []byte("not json")), ShouldBeNil)

		r, err := c.ParseFile(ctx, path)
		So(err, ShouldBeNil)
		So(r.Options(), ShouldResemble, []string{"a"})
		So(c.Misses(), ShouldEqual, 1)
	})
}

func TestCachedParserKey(t *testing.T) {
	Convey("缓存键包含分隔符和策略", t, func() {
		path := writeConfig(t, t.TempDir(), "a = 1;2\n")
		s := store.NewMapStoreWithOptions(nil)
		ser := serializer.NewMsgPackSerializer[option.Records]()

		comma := NewCachedParser(option.NewParser(','), s, ser, 0)
		semicolon := NewCachedParser(option.NewParser(';'), s, ser, 0)

		abs, data, err := readFile(path)
		So(err, ShouldBeNil)
		So(comma.key(abs, data), ShouldNotEqual, semicolon.key(abs, data))
		So(comma.key(abs, data), ShouldNotEqual, comma.key(abs, []byte("a = 1;3\n")))

		r, err := semicolon.ParseFile(context.Background(), path)
		So(err, ShouldBeNil)
		So(r[0].Value.Attributes, ShouldResemble, []string{"2"})
	})
}

func TestNewCachedParserWithOptions(t *testing.T) {
	Convey("NewCachedParserWithOptions", t, func() {
		Convey("options为nil时返回错误", func() {
			_, err := NewCachedParserWithOptions(nil)
			So(err, ShouldNotBeNil)
		})

		Convey("解析器配置错误", func() {
			_, err := NewCachedParserWithOptions(&CachedParserOptions{Parser: option.ParserOptions{Delimiter: ""}})
			So(err, ShouldNotBeNil)
		})

		Convey("使用 bolt 存储和 json 编码", func() {
			dir := t.TempDir()
			c, err := NewCachedParserWithOptions(&CachedParserOptions{
				Parser: option.ParserOptions{Delimiter: ","},
				Store: &ref.TypeOptions{
					Namespace: "github.com/hatlonely/configster/store",
					Type:      "BoltDBStore",
					Options:   &store.BoltDBStoreOptions{DBPath: filepath.Join(dir, "cache.db")},
				},
				Serializer: &ref.TypeOptions{
					Namespace: "github.com/hatlonely/configster/serializer",
					Type:      "JSONSerializer",
				},
			})
			So(err, ShouldBeNil)
			defer c.Close()

			path := writeConfig(t, dir, "k = v, a, , b\n")
			r1, err := c.ParseFile(context.Background(), path)
			So(err, ShouldBeNil)
			r2, err := c.ParseFile(context.Background(), path)
			So(err, ShouldBeNil)
			So(c.Hits(), ShouldEqual, 1)
			So(cmp.Diff(r1, r2), ShouldBeEmpty)
			So(r2[0].Value.Attributes, ShouldResemble, []string{"a", "", "b"})
		})
	})
}
