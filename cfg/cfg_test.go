package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hatlonely/configster/ref"
	. "github.com/smartystreets/goconvey/convey"
)

type testParserOptions struct {
	Delimiter           string `cfg:"delimiter" def:"," validate:"required"`
	InvalidOptionPolicy string `cfg:"invalidOptionPolicy" def:"keep" validate:"oneof=keep mark skip"`
}

type testAppOptions struct {
	File   string            `cfg:"file" help:"配置文件路径"`
	Format string            `cfg:"format" def:"text" help:"输出格式"`
	Watch  bool              `cfg:"watch"`
	TTL    time.Duration     `cfg:"ttl" def:"10m"`
	Parser testParserOptions `cfg:"parser"`
	Store  *ref.TypeOptions  `cfg:"store"`
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	Convey("只有默认值", t, func() {
		var opts testAppOptions
		args, err := Load(&opts, nil)
		So(err, ShouldBeNil)
		So(args, ShouldBeEmpty)
		So(opts.Format, ShouldEqual, "text")
		So(opts.TTL, ShouldEqual, 10*time.Minute)
		So(opts.Parser.Delimiter, ShouldEqual, ",")
		So(opts.Parser.InvalidOptionPolicy, ShouldEqual, "keep")
		So(opts.Store, ShouldBeNil)
	})

	Convey("配置文件覆盖默认值", t, func() {
		path := writeConfig(t, "configster.yaml", `
format: json
ttl: 1m
parser:
  delimiter: ";"
store:
  namespace: github.com/hatlonely/configster/store
  type: MapStore
  options:
    defaultTTL: 5s
`)
		var opts testAppOptions
		_, err := Load(&opts, &Options{File: path})
		So(err, ShouldBeNil)
		So(opts.Format, ShouldEqual, "json")
		So(opts.TTL, ShouldEqual, time.Minute)
		So(opts.Parser.Delimiter, ShouldEqual, ";")
		So(opts.Parser.InvalidOptionPolicy, ShouldEqual, "keep")
		So(opts.Store, ShouldNotBeNil)
		So(opts.Store.Type, ShouldEqual, "MapStore")
		So(opts.Store.Options, ShouldNotBeNil)
	})

	Convey("优先级：配置文件 < 环境变量 < 命令行", t, func() {
		path := writeConfig(t, "configster.json", `{"format": "json", "watch": false, "parser": {"delimiter": ";", "invalidOptionPolicy": "mark"}}`)
		t.Setenv("CFGTEST_FORMAT", "yaml")
		t.Setenv("CFGTEST_PARSER_DELIMITER", "|")

		var opts testAppOptions
		args, err := Load(&opts, &Options{
			File:      path,
			EnvPrefix: "CFGTEST",
			Args:      []string{"--parser.delimiter=:", "--watch", "a.conf", "b.conf"},
		})
		So(err, ShouldBeNil)
		So(args, ShouldResemble, []string{"a.conf", "b.conf"})
		So(opts.Format, ShouldEqual, "yaml")
		So(opts.Watch, ShouldBeTrue)
		So(opts.Parser.Delimiter, ShouldEqual, ":")
		So(opts.Parser.InvalidOptionPolicy, ShouldEqual, "mark")
	})

	Convey("显式指定解码器", t, func() {
		path := writeConfig(t, "configster.conf", "format = toml\n")
		var opts testAppOptions
		_, err := Load(&opts, &Options{
			File: path,
			Decoder: &ref.TypeOptions{
				Namespace: "github.com/hatlonely/configster/cfg/decoder",
				Type:      "TomlDecoder",
			},
		})
		So(err, ShouldBeNil)
		So(opts.Format, ShouldEqual, "toml")
	})

	Convey("错误", t, func() {
		var opts testAppOptions

		Convey("配置文件不存在", func() {
			_, err := Load(&opts, &Options{File: filepath.Join(t.TempDir(), "missing.yaml")})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "missing.yaml")
		})

		Convey("不支持的扩展名", func() {
			_, err := Load(&opts, &Options{File: writeConfig(t, "a.conf", "x")})
			So(err, ShouldNotBeNil)
		})

		Convey("配置文件格式错误", func() {
			_, err := Load(&opts, &Options{File: writeConfig(t, "a.json", "{")})
			So(err, ShouldNotBeNil)
		})

		Convey("校验失败", func() {
			_, err := Load(&opts, &Options{Args: []string{"--parser.invalidOptionPolicy=drop"}})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "InvalidOptionPolicy")
		})

		Convey("类型转换失败", func() {
			_, err := Load(&opts, &Options{Args: []string{"--ttl=soon"}})
			So(err, ShouldNotBeNil)
		})

		Convey("命令行参数非法", func() {
			_, err := Load(&opts, &Options{Args: []string{"--=1"}})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestConfig(t *testing.T) {
	Convey("Config", t, func() {
		path := writeConfig(t, "configster.toml", `
[parser]
delimiter = ";"
`)
		c, err := NewConfig(path)
		So(err, ShouldBeNil)

		var delimiter string
		So(c.Sub("parser.delimiter").ConvertTo(&delimiter), ShouldBeNil)
		So(delimiter, ShouldEqual, ";")

		var parser testParserOptions
		So(c.Sub("parser").ConvertTo(&parser), ShouldBeNil)
		So(parser.Delimiter, ShouldEqual, ";")
		So(parser.InvalidOptionPolicy, ShouldEqual, "keep")

		Convey("Config 可以作为 ref 构造参数", func() {
			var convertable ref.Convertable = c
			var opts testAppOptions
			So(convertable.ConvertTo(&opts), ShouldBeNil)
			So(opts.Parser.Delimiter, ShouldEqual, ";")
			So(opts.Parser.InvalidOptionPolicy, ShouldEqual, "keep")
		})

		So(c.Storage().Data(), ShouldNotBeNil)
		So(c.Args(), ShouldBeEmpty)
	})
}
