package store

import (
	"context"
	"time"

	"github.com/cockroachdb/fifo"
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

type PebbleStoreOptions struct {
	DBPath string `cfg:"dbPath" validate:"required"`

	// 写入时不同步到磁盘
	SetWithoutSync bool `cfg:"setWithoutSync"`

	// 块缓存大小，0 使用 pebble 默认值
	CacheSize int64 `cfg:"cacheSize"`

	// 限制并行从文件系统加载的块数，0 表示不限制
	LoadBlockSemaCapacity int64 `cfg:"loadBlockSemaCapacity"`

	DisableWAL bool `cfg:"disableWAL"`

	ReadOnly bool `cfg:"readOnly"`

	DefaultTTL time.Duration `cfg:"defaultTTL"`
}

type PebbleStore struct {
	db         *pebble.DB
	setOptions *pebble.WriteOptions
	defaultTTL time.Duration
}

func NewPebbleStoreWithOptions(options *PebbleStoreOptions) (*PebbleStore, error) {
	if options == nil || options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}

	pebbleOptions := &pebble.Options{
		DisableWAL: options.DisableWAL,
		ReadOnly:   options.ReadOnly,
	}
	if options.CacheSize > 0 {
		cache := pebble.NewCache(options.CacheSize)
		defer cache.Unref()
		pebbleOptions.Cache = cache
	}
	if options.LoadBlockSemaCapacity > 0 {
		pebbleOptions.LoadBlockSema = fifo.NewSemaphore(options.LoadBlockSemaCapacity)
	}

	db, err := pebble.Open(options.DBPath, pebbleOptions)
	if err != nil {
		return nil, errors.Wrap(err, "pebble.Open failed")
	}

	setOptions := pebble.Sync
	if options.SetWithoutSync {
		setOptions = pebble.NoSync
	}

	return &PebbleStore{
		db:         db,
		setOptions: setOptions,
		defaultTTL: options.DefaultTTL,
	}, nil
}

func (s *PebbleStore) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	options := newSetOptions(opts)
	expiration := options.Expiration
	if expiration == 0 {
		expiration = s.defaultTTL
	}

	if options.IfNotExist {
		existing, closer, err := s.db.Get([]byte(key))
		if err == nil {
			alive := entryAlive(existing)
			_ = closer.Close()
			if alive {
				return ErrConditionFailed
			}
		} else if !errors.Is(err, pebble.ErrNotFound) {
			return errors.Wrap(err, "pebble.Get failed")
		}
	}

	return errors.Wrap(s.db.Set([]byte(key), encodeEntry(value, expiration), s.setOptions), "pebble.Set failed")
}

func (s *PebbleStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "pebble.Get failed")
	}
	defer closer.Close()

	value, ok, err := decodeEntry(data)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

func (s *PebbleStore) Del(ctx context.Context, key string) error {
	return errors.Wrap(s.db.Delete([]byte(key), s.setOptions), "pebble.Delete failed")
}

func (s *PebbleStore) Close() error {
	return errors.Wrap(s.db.Close(), "pebble.Close failed")
}
