package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

type LevelDBStoreOptions struct {
	DBPath string `cfg:"dbPath" validate:"required"`

	BlockCacheCapacity int `cfg:"blockCacheCapacity"`

	Compression string `cfg:"compression" validate:"omitempty,oneof=default snappy none"`

	NoSync bool `cfg:"noSync"`

	ReadOnly bool `cfg:"readOnly"`

	WriteBuffer int `cfg:"writeBuffer"`

	DefaultTTL time.Duration `cfg:"defaultTTL"`
}

type LevelDBStore struct {
	db         *leveldb.DB
	defaultTTL time.Duration
}

func NewLevelDBStoreWithOptions(options *LevelDBStoreOptions) (*LevelDBStore, error) {
	if options == nil || options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}

	compression, err := leveldbParseCompression(options.Compression)
	if err != nil {
		return nil, errors.WithMessage(err, "leveldbParseCompression failed")
	}

	db, err := leveldb.OpenFile(options.DBPath, &opt.Options{
		BlockCacheCapacity: options.BlockCacheCapacity,
		Compression:        compression,
		NoSync:             options.NoSync,
		ReadOnly:           options.ReadOnly,
		WriteBuffer:        options.WriteBuffer,
	})
	if err != nil {
		return nil, errors.Wrap(err, "leveldb.OpenFile failed. path: "+options.DBPath)
	}

	return &LevelDBStore{db: db, defaultTTL: options.DefaultTTL}, nil
}

func leveldbParseCompression(compression string) (opt.Compression, error) {
	switch compression {
	case "", "default":
		return opt.DefaultCompression, nil
	case "snappy":
		return opt.SnappyCompression, nil
	case "none":
		return opt.NoCompression, nil
	default:
		return opt.DefaultCompression, errors.Errorf("unknown compression %q", compression)
	}
}

func (s *LevelDBStore) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	options := newSetOptions(opts)
	expiration := options.Expiration
	if expiration == 0 {
		expiration = s.defaultTTL
	}

	if options.IfNotExist {
		existing, err := s.db.Get([]byte(key), nil)
		if err == nil && entryAlive(existing) {
			return ErrConditionFailed
		}
		if err != nil && !errors.Is(err, leveldb.ErrNotFound) {
			return errors.Wrap(err, "leveldb.Get failed")
		}
	}

	return errors.Wrap(s.db.Put([]byte(key), encodeEntry(value, expiration), nil), "leveldb.Put failed")
}

func (s *LevelDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "leveldb.Get failed")
	}

	value, ok, err := decodeEntry(data)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

func (s *LevelDBStore) Del(ctx context.Context, key string) error {
	return errors.Wrap(s.db.Delete([]byte(key), nil), "leveldb.Delete failed")
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
