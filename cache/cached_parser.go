package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hatlonely/configster/log"
	"github.com/hatlonely/configster/log/logger"
	"github.com/hatlonely/configster/option"
	"github.com/hatlonely/configster/ref"
	"github.com/hatlonely/configster/serializer"
	"github.com/hatlonely/configster/store"
	"github.com/pkg/errors"
)

type CachedParserOptions struct {
	Parser option.ParserOptions `cfg:"parser"`

	// 缓存存储，为空时使用 MapStore
	Store *ref.TypeOptions `cfg:"store"`

	// 记录的编码方式，为空时使用 msgpack
	Serializer *ref.TypeOptions `cfg:"serializer"`

	// 缓存有效期，0 表示不过期
	TTL time.Duration `cfg:"ttl" def:"10m"`

	KeyPrefix string `cfg:"keyPrefix" def:"configster:"`

	Logger *ref.TypeOptions `cfg:"logger"`
}

// CachedParser 按文件指纹缓存解析结果
// 指纹包含绝对路径、分隔符、策略和读到的文件内容的哈希，内容变化后自然失效
type CachedParser struct {
	parser     *option.Parser
	store      store.Store
	serializer serializer.Serializer[option.Records]
	ttl        time.Duration
	keyPrefix  string
	logger     logger.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCachedParserWithOptions(options *CachedParserOptions) (*CachedParser, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	parser, err := option.NewParserWithOptions(&options.Parser)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create parser")
	}

	var s store.Store
	if options.Store == nil || options.Store.Type == "" {
		s = store.NewMapStoreWithOptions(nil)
	} else if s, err = store.NewStoreWithOptions(options.Store); err != nil {
		return nil, errors.WithMessage(err, "failed to create store")
	}

	ser, err := serializer.NewSerializerWithOptions(options.Serializer)
	if err != nil {
		_ = s.Close()
		return nil, errors.WithMessage(err, "failed to create serializer")
	}

	l, err := log.NewLoggerWithOptions(options.Logger)
	if err != nil {
		_ = s.Close()
		return nil, errors.WithMessage(err, "failed to create logger")
	}

	c := NewCachedParser(parser, s, ser, options.TTL)
	c.keyPrefix = options.KeyPrefix
	c.logger = l.WithGroup("cachedParser")
	return c, nil
}

func NewCachedParser(parser *option.Parser, s store.Store, ser serializer.Serializer[option.Records], ttl time.Duration) *CachedParser {
	return &CachedParser{
		parser:     parser,
		store:      s,
		serializer: ser,
		ttl:        ttl,
		keyPrefix:  "configster:",
		logger:     log.Default().WithGroup("cachedParser"),
	}
}

// ParseFile 读取文件，内容命中缓存时直接返回，否则解析并写入缓存
// 读文件失败的结果不缓存；缓存本身出错只记录日志，不影响解析
func (c *CachedParser) ParseFile(ctx context.Context, path string) (option.Records, error) {
	abs, data, err := readFile(path)
	if err != nil {
		// 读不到文件时交给解析器报告 IOError
		return c.parser.ParseFile(path)
	}
	key := c.key(abs, data)

	if records, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		return records, nil
	}
	c.misses.Add(1)

	records, err := c.parser.ParseSource(ctx, &contentSource{name: abs, data: data})
	if err != nil {
		return nil, err
	}

	buf, err := c.serializer.Serialize(records)
	if err != nil {
		c.logger.WarnContext(ctx, "serialize records failed", "path", path, "error", err.Error())
		return records, nil
	}
	var opts []store.SetOption
	if c.ttl > 0 {
		opts = append(opts, store.WithExpiration(c.ttl))
	}
	if err := c.store.Set(ctx, key, buf, opts...); err != nil {
		c.logger.WarnContext(ctx, "cache set failed", "path", path, "key", key, "error", err.Error())
	}
	return records, nil
}

func (c *CachedParser) lookup(ctx context.Context, key string) (option.Records, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			c.logger.WarnContext(ctx, "cache get failed", "key", key, "error", err.Error())
		}
		return nil, false
	}

	records, err := c.serializer.Deserialize(data)
	if err != nil {
		c.logger.WarnContext(ctx, "cache entry corrupt", "key", key, "error", err.Error())
		_ = c.store.Del(ctx, key)
		return nil, false
	}
	if records == nil {
		records = option.Records{}
	}
	return records.Normalize(), true
}

// Invalidate 删除文件当前内容对应的缓存
func (c *CachedParser) Invalidate(ctx context.Context, path string) error {
	abs, data, err := readFile(path)
	if err != nil {
		return err
	}
	return c.store.Del(ctx, c.key(abs, data))
}

func (c *CachedParser) key(abs string, data []byte) string {
	fingerprint := fmt.Sprintf("%s|%q|%s|%016x", abs, c.parser.Delimiter(), c.parser.Policy(), xxhash.Sum64(data))
	return c.keyPrefix + strconv.FormatUint(xxhash.Sum64String(fingerprint), 16)
}

func readFile(path string) (string, []byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, errors.Wrap(err, "filepath.Abs failed")
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", nil, errors.Wrap(err, "os.ReadFile failed")
	}
	return abs, data, nil
}

// contentSource 已经读入内存的文件内容，解析和缓存键使用同一份数据
type contentSource struct {
	name string
	data []byte
}

func (s *contentSource) Name() string {
	return s.name
}

func (s *contentSource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (c *CachedParser) Parser() *option.Parser {
	return c.parser
}

func (c *CachedParser) Hits() int64 {
	return c.hits.Load()
}

func (c *CachedParser) Misses() int64 {
	return c.misses.Load()
}

func (c *CachedParser) Close() error {
	return c.store.Close()
}
