package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is a single-process Store. Locks only exclude requests within this process.
type MemoryStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(1*time.Hour, 10*time.Minute),
	}
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cache.Add(key, value, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) CompareAndDelete(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, found := s.cache.Get(key)
	if !found || current.(string) != value {
		return false, nil
	}
	s.cache.Delete(key)
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.cache.Set(key, value, ttl)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, found := s.cache.Get(key)
	if !found {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (s *MemoryStore) Del(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
