package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

type BoltDBStoreOptions struct {
	DBPath string `cfg:"dbPath" validate:"required"`

	// 桶名称，默认 configster
	BucketName string `cfg:"bucketName" def:"configster"`

	// 获取文件锁的超时时间，0 表示一直等待
	Timeout time.Duration `cfg:"timeout" def:"1s"`

	NoSync bool `cfg:"noSync"`

	FreelistType string `cfg:"freelistType" validate:"omitempty,oneof=array hashmap"`

	ReadOnly bool `cfg:"readOnly"`

	DefaultTTL time.Duration `cfg:"defaultTTL"`
}

type BoltDBStore struct {
	db         *bolt.DB
	bucketName []byte
	defaultTTL time.Duration
}

func NewBoltDBStoreWithOptions(options *BoltDBStoreOptions) (*BoltDBStore, error) {
	if options == nil || options.DBPath == "" {
		return nil, errors.New("dbPath is required")
	}

	if err := os.MkdirAll(filepath.Dir(options.DBPath), 0755); err != nil {
		return nil, errors.Wrapf(err, "os.MkdirAll failed. dbPath: %s", options.DBPath)
	}

	freelistType := bolt.FreelistArrayType
	if options.FreelistType == "hashmap" {
		freelistType = bolt.FreelistMapType
	}

	db, err := bolt.Open(options.DBPath, 0644, &bolt.Options{
		Timeout:      options.Timeout,
		NoSync:       options.NoSync,
		FreelistType: freelistType,
		ReadOnly:     options.ReadOnly,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "bolt.Open failed. dbPath: %s", options.DBPath)
	}

	bucketName := "configster"
	if options.BucketName != "" {
		bucketName = options.BucketName
	}

	store := &BoltDBStore{
		db:         db,
		bucketName: []byte(bucketName),
		defaultTTL: options.DefaultTTL,
	}

	if !options.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(store.bucketName)
			return err
		})
		if err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "create bucket failed")
		}
	}

	return store, nil
}

func (s *BoltDBStore) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	options := newSetOptions(opts)
	expiration := options.Expiration
	if expiration == 0 {
		expiration = s.defaultTTL
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucketName)
		if bucket == nil {
			return errors.New("bucket not found")
		}

		if options.IfNotExist {
			if existing := bucket.Get([]byte(key)); existing != nil && entryAlive(existing) {
				return ErrConditionFailed
			}
		}

		return bucket.Put([]byte(key), encodeEntry(value, expiration))
	})
}

func (s *BoltDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucketName)
		if bucket == nil {
			return ErrKeyNotFound
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return ErrKeyNotFound
		}

		// decodeEntry 会复制数据，bolt 的内存在事务结束后失效
		v, ok, err := decodeEntry(data)
		if err != nil {
			return err
		}
		if !ok {
			return ErrKeyNotFound
		}
		value = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *BoltDBStore) Del(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucketName)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

func (s *BoltDBStore) Close() error {
	return s.db.Close()
}
