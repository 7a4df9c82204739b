package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/athebyme/listing-pipeline/internal/utils"
	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache кэш в памяти процесса для запуска без Redis
type MemoryCache struct {
	mu    sync.Mutex
	store *gocache.Cache
}

// NewMemoryCache создает кэш в памяти
func NewMemoryCache(defaultExpiration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultExpiration, cleanupInterval)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.store.Get(key)
	if !ok {
		return nil, utils.ErrCacheMiss
	}
	switch val := v.(type) {
	case []byte:
		return val, nil
	case int64:
		return []byte(strconv.FormatInt(val, 10)), nil
	}
	return nil, utils.ErrCacheMiss
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	if expiration == 0 {
		expiration = gocache.NoExpiration
	}
	m.store.Set(key, value, expiration)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

func (m *MemoryCache) Increment(_ context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, err := m.store.IncrementInt64(key, delta); err == nil {
		return v, nil
	}
	if err := m.store.Add(key, delta, gocache.NoExpiration); err != nil {
		return 0, err
	}
	return delta, nil
}

func (m *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.store.Get(key)
	if !ok {
		return nil
	}
	m.store.Set(key, v, expiration)
	return nil
}

func (m *MemoryCache) Close() error {
	m.store.Flush()
	return nil
}
