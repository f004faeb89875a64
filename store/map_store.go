package store

import (
	"context"
	"sync"
	"time"
)

type MapStoreOptions struct {
	DefaultTTL time.Duration `cfg:"defaultTTL"`
}

type mapEntry struct {
	value    []byte
	expireAt time.Time
}

func (e mapEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// MapStore 内存存储，过期的键在读取时淘汰
type MapStore struct {
	mu         sync.RWMutex
	m          map[string]mapEntry
	defaultTTL time.Duration
}

func NewMapStoreWithOptions(options *MapStoreOptions) *MapStore {
	s := &MapStore{m: make(map[string]mapEntry)}
	if options != nil {
		s.defaultTTL = options.DefaultTTL
	}
	return s
}

func (s *MapStore) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	options := newSetOptions(opts)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if options.IfNotExist {
		if e, exists := s.m[key]; exists && !e.expired(now) {
			return ErrConditionFailed
		}
	}

	expiration := options.Expiration
	if expiration == 0 {
		expiration = s.defaultTTL
	}
	entry := mapEntry{value: append([]byte(nil), value...)}
	if expiration > 0 {
		entry.expireAt = now.Add(expiration)
	}
	s.m[key] = entry
	return nil
}

func (s *MapStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, exists := s.m[key]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrKeyNotFound
	}
	if e.expired(time.Now()) {
		s.mu.Lock()
		if cur, ok := s.m[key]; ok && cur.expired(time.Now()) {
			delete(s.m, key)
		}
		s.mu.Unlock()
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *MapStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *MapStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[string]mapEntry)
	return nil
}
