package source

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisSourceOptions struct {
	Endpoint string `cfg:"endpoint" validate:"required"`
	Key      string `cfg:"key" validate:"required"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	DB       int    `cfg:"db"`

	DialTimeout time.Duration `cfg:"dialTimeout" def:"5s"`
	ReadTimeout time.Duration `cfg:"readTimeout" def:"3s"`
}

// RedisSource 配置文本保存在一个字符串键里
type RedisSource struct {
	client redis.UniversalClient
	key    string
}

func NewRedisSourceWithOptions(options *RedisSourceOptions) (*RedisSource, error) {
	if options == nil || options.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if options.Key == "" {
		return nil, errors.New("key is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:        options.Endpoint,
		Username:    options.Username,
		Password:    options.Password,
		DB:          options.DB,
		DialTimeout: options.DialTimeout,
		ReadTimeout: options.ReadTimeout,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis.client.Ping failed")
	}

	return &RedisSource{client: client, key: options.Key}, nil
}

func NewRedisSource(client redis.UniversalClient, key string) *RedisSource {
	return &RedisSource{client: client, key: key}
}

func (s *RedisSource) Name() string {
	return "redis/" + s.key
}

func (s *RedisSource) Open(ctx context.Context) (io.ReadCloser, error) {
	content, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Wrapf(ErrNotFound, "key: %s", s.key)
		}
		return nil, errors.Wrap(err, "redis.Get failed")
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (s *RedisSource) Close() error {
	return s.client.Close()
}
