package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisStoreOptions struct {
	// 单机模式地址
	Endpoint string `cfg:"endpoint"`

	// 集群模式地址列表
	Endpoints []string `cfg:"endpoints"`

	// 键前缀
	KeyPrefix string `cfg:"keyPrefix"`

	DefaultTTL time.Duration `cfg:"defaultTTL"`

	Username string `cfg:"username"`
	Password string `cfg:"password"`
	DB       int    `cfg:"db" def:"0"`

	MaxRetries   int           `cfg:"maxRetries" def:"3"`
	DialTimeout  time.Duration `cfg:"dialTimeout" def:"5s"`
	ReadTimeout  time.Duration `cfg:"readTimeout" def:"3s"`
	WriteTimeout time.Duration `cfg:"writeTimeout" def:"3s"`
	PoolSize     int           `cfg:"poolSize" def:"10"`
}

type RedisStore struct {
	client     redis.UniversalClient
	keyPrefix  string
	defaultTTL time.Duration
}

func NewRedisStoreWithOptions(options *RedisStoreOptions) (*RedisStore, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	var client redis.UniversalClient
	if options.Endpoint != "" {
		client = redis.NewClient(&redis.Options{
			Addr:         options.Endpoint,
			Username:     options.Username,
			Password:     options.Password,
			DB:           options.DB,
			MaxRetries:   options.MaxRetries,
			DialTimeout:  options.DialTimeout,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
			PoolSize:     options.PoolSize,
		})
	} else if len(options.Endpoints) > 0 {
		client = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        options.Endpoints,
			Username:     options.Username,
			Password:     options.Password,
			MaxRetries:   options.MaxRetries,
			DialTimeout:  options.DialTimeout,
			ReadTimeout:  options.ReadTimeout,
			WriteTimeout: options.WriteTimeout,
			PoolSize:     options.PoolSize,
		})
	} else {
		return nil, errors.New("endpoint or endpoints must be set")
	}

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis.client.Ping failed")
	}

	return &RedisStore{
		client:     client,
		keyPrefix:  options.KeyPrefix,
		defaultTTL: options.DefaultTTL,
	}, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	options := newSetOptions(opts)
	expiration := options.Expiration
	if expiration == 0 {
		expiration = s.defaultTTL
	}

	if options.IfNotExist {
		ok, err := s.client.SetNX(ctx, s.keyPrefix+key, value, expiration).Result()
		if err != nil {
			return errors.Wrap(err, "redis.SetNX failed")
		}
		if !ok {
			return ErrConditionFailed
		}
		return nil
	}

	return errors.Wrap(s.client.Set(ctx, s.keyPrefix+key, value, expiration).Err(), "redis.Set failed")
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "redis.Get failed")
	}
	return value, nil
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return errors.Wrap(s.client.Del(ctx, s.keyPrefix+key).Err(), "redis.Del failed")
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
