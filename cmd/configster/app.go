package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hatlonely/configster/cache"
	"github.com/hatlonely/configster/cfg"
	"github.com/hatlonely/configster/loader"
	"github.com/hatlonely/configster/log"
	"github.com/hatlonely/configster/log/logger"
	"github.com/hatlonely/configster/option"
	"github.com/hatlonely/configster/serializer"
	"github.com/pkg/errors"
)

const usage = `Usage: configster [--file] path [--delimiter ,] [--format text|json|yaml|toml|msgpack|bson|protobuf]
                  [--policy keep|mark|skip] [--watch] [--config configster.yaml] [--cache.type map|...]

`

// run 解析参数并输出解析结果，out 只用来输出结果和帮助，日志写到 log 配置的位置
func run(ctx context.Context, out io.Writer, args []string) error {
	opts, err := loadOptions(args)
	if err != nil {
		return err
	}

	if opts.Help {
		fmt.Fprint(out, usage)
		fmt.Fprint(out, cfg.GenerateHelp(&Options{}, envPrefix))
		return nil
	}
	if opts.Version {
		fmt.Fprintln(out, option.Version())
		return nil
	}
	if opts.File == "" {
		return errors.New("no config file given, use --file or pass it as an argument")
	}

	l, err := logger.NewSLogWithOptions(&opts.Log)
	if err != nil {
		return errors.WithMessage(err, "failed to create logger")
	}
	log.SetDefault(l)

	if opts.Watch {
		return watch(ctx, out, opts)
	}

	records, err := parse(ctx, opts)
	if err != nil {
		return err
	}
	return render(out, opts.Format, records)
}

// loadOptions 先从命令行和环境变量中找到 --config，再按 配置文件 < 环境变量 < 命令行 的顺序加载
func loadOptions(args []string) (*Options, error) {
	boot, err := cfg.NewConfigWithOptions(&cfg.Options{EnvPrefix: envPrefix, Args: args})
	if err != nil {
		return nil, err
	}
	var configFile string
	if err := boot.Sub("config").ConvertTo(&configFile); err != nil {
		return nil, errors.WithMessage(err, "invalid --config")
	}

	var opts Options
	positional, err := cfg.Load(&opts, &cfg.Options{
		File:      configFile,
		EnvPrefix: envPrefix,
		Args:      args,
	})
	if err != nil {
		return nil, err
	}

	switch {
	case len(positional) > 1:
		return nil, errors.Errorf("too many arguments: %v", positional)
	case len(positional) == 1 && opts.File != "":
		return nil, errors.New("config file given both as --file and as an argument")
	case len(positional) == 1:
		opts.File = positional[0]
	}

	return &opts, nil
}

func parse(ctx context.Context, opts *Options) (option.Records, error) {
	if opts.Cache.Type == "" {
		p, err := option.NewObservableParserWithOptions(&option.ObservableParserOptions{
			Parser:        opts.parserOptions(),
			EnableLogging: true,
		})
		if err != nil {
			return nil, err
		}
		return p.ParseFile(ctx, opts.File)
	}

	storeOptions, err := opts.Cache.storeOptions()
	if err != nil {
		return nil, err
	}
	cp, err := cache.NewCachedParserWithOptions(&cache.CachedParserOptions{
		Parser:     opts.parserOptions(),
		Store:      storeOptions,
		Serializer: opts.Cache.serializerOptions(),
		TTL:        opts.Cache.TTL,
		KeyPrefix:  "configster:",
	})
	if err != nil {
		return nil, err
	}
	defer cp.Close()

	return cp.ParseFile(ctx, opts.File)
}

// watch 输出一次结果，之后每次文件变化都重新输出，直到 ctx 结束
func watch(ctx context.Context, out io.Writer, opts *Options) error {
	l, err := loader.NewFileLoaderWithOptions(&loader.FileLoaderOptions{
		FilePath: opts.File,
		Parser:   opts.parserOptions(),
	})
	if err != nil {
		return err
	}
	defer l.Close()

	var mu sync.Mutex
	err = l.OnChange(func(records option.Records) error {
		mu.Lock()
		defer mu.Unlock()
		return render(out, opts.Format, records)
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func render(out io.Writer, format string, records option.Records) error {
	if format == "" || format == "text" {
		return writeText(out, records)
	}

	s, err := serializer.ByFormat(format)
	if err != nil {
		return err
	}
	data, err := s.Serialize(records)
	if err != nil {
		return errors.WithMessagef(err, "encode %s failed", format)
	}
	if _, err := out.Write(data); err != nil {
		return errors.Wrap(err, "write output failed")
	}
	return nil
}

func writeText(out io.Writer, records option.Records) error {
	w := bufio.NewWriter(out)
	for _, r := range records {
		fmt.Fprintf(w, "Option:'%s' | value '%s'\n", r.Option, r.Value.Primary)
		for _, attr := range r.Value.Attributes {
			fmt.Fprintf(w, "attr:'%s'\n", attr)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "write output failed")
	}
	return nil
}
