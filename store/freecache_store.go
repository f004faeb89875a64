package store

import (
	"context"
	"time"

	"github.com/coocood/freecache"
	"github.com/pkg/errors"
)

type FreeCacheStoreOptions struct {
	// 缓存大小，单位字节，freecache 最小 512KB
	Size       int           `cfg:"size" def:"33554432"`
	DefaultTTL time.Duration `cfg:"defaultTTL"`
}

type FreeCacheStore struct {
	cache      *freecache.Cache
	defaultTTL time.Duration
}

func NewFreeCacheStoreWithOptions(options *FreeCacheStoreOptions) (*FreeCacheStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	size := options.Size
	if size <= 0 {
		size = 32 * 1024 * 1024
	}
	return &FreeCacheStore{
		cache:      freecache.NewCache(size),
		defaultTTL: options.DefaultTTL,
	}, nil
}

func (s *FreeCacheStore) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	options := newSetOptions(opts)

	if options.IfNotExist {
		if _, err := s.cache.Get([]byte(key)); err == nil {
			return ErrConditionFailed
		}
	}

	expiration := options.Expiration
	if expiration == 0 && s.defaultTTL > 0 {
		expiration = s.defaultTTL
	}
	expireSeconds := int(expiration.Seconds())
	if expiration > 0 && expireSeconds == 0 {
		expireSeconds = 1
	}
	return errors.Wrap(s.cache.Set([]byte(key), value, expireSeconds), "freecache.Set failed")
}

func (s *FreeCacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "freecache.Get failed")
	}
	return value, nil
}

func (s *FreeCacheStore) Del(ctx context.Context, key string) error {
	s.cache.Del([]byte(key))
	return nil
}

func (s *FreeCacheStore) Close() error {
	s.cache.Clear()
	return nil
}
