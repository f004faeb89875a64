package store

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/hatlonely/configster/ref"
	"github.com/pkg/errors"
)

const namespace = "github.com/hatlonely/configster/store"

var (
	ErrKeyNotFound     = errors.New("key not found")
	ErrConditionFailed = errors.New("condition failed")
)

// setOptions 设置数据时的选项
type setOptions struct {
	Expiration time.Duration
	IfNotExist bool
}

type SetOption func(*setOptions)

func WithExpiration(expiration time.Duration) SetOption {
	return func(options *setOptions) {
		options.Expiration = expiration
	}
}

func WithIfNotExist() SetOption {
	return func(options *setOptions) {
		options.IfNotExist = true
	}
}

func newSetOptions(opts []SetOption) *setOptions {
	options := &setOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// Store 字节值的 KV 存储
type Store interface {
	// Set 设置键值对，WithIfNotExist 时键存在则返回 ErrConditionFailed
	Set(ctx context.Context, key string, value []byte, opts ...SetOption) error
	// Get 获取键对应的值，键不存在或已过期时返回 ErrKeyNotFound
	Get(ctx context.Context, key string) ([]byte, error)
	// Del 删除键，键不存在时也返回成功
	Del(ctx context.Context, key string) error
	Close() error
}

func init() {
	ref.MustRegister(namespace, "MapStore", NewMapStoreWithOptions)
	ref.MustRegister(namespace, "FreeCacheStore", NewFreeCacheStoreWithOptions)
	ref.MustRegister(namespace, "BoltDBStore", NewBoltDBStoreWithOptions)
	ref.MustRegister(namespace, "LevelDBStore", NewLevelDBStoreWithOptions)
	ref.MustRegister(namespace, "PebbleStore", NewPebbleStoreWithOptions)
	ref.MustRegister(namespace, "RedisStore", NewRedisStoreWithOptions)
}

func NewStoreWithOptions(options *ref.TypeOptions) (Store, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}
	if options.Namespace == "" {
		options = &ref.TypeOptions{Namespace: namespace, Type: options.Type, Options: options.Options}
	}

	obj, err := ref.NewWithOptions(options)
	if err != nil {
		return nil, errors.WithMessage(err, "ref.NewWithOptions failed")
	}
	store, ok := obj.(Store)
	if !ok {
		return nil, errors.Errorf("%T is not a Store", obj)
	}
	return store, nil
}

// 持久化存储没有原生过期机制，值前面加 8 字节的过期时间（unix 纳秒，0 表示不过期）

func encodeEntry(value []byte, expiration time.Duration) []byte {
	buf := make([]byte, 8+len(value))
	if expiration > 0 {
		binary.BigEndian.PutUint64(buf, uint64(time.Now().Add(expiration).UnixNano()))
	}
	copy(buf[8:], value)
	return buf
}

func decodeEntry(data []byte) ([]byte, bool, error) {
	if len(data) < 8 {
		return nil, false, errors.Errorf("entry too short: %d bytes", len(data))
	}
	expireAt := int64(binary.BigEndian.Uint64(data))
	if expireAt != 0 && time.Now().UnixNano() >= expireAt {
		return nil, false, nil
	}
	value := make([]byte, len(data)-8)
	copy(value, data[8:])
	return value, true, nil
}

func entryAlive(data []byte) bool {
	_, ok, err := decodeEntry(data)
	return err == nil && ok
}
