package session

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implements Store with an in-process expiring cache.
// Suitable for a single instance; use RedisStore when running more than one.
type MemoryStore struct {
	cache *gocache.Cache
	// mu serialises compare-and-delete against writes; go-cache has no CAS primitive.
	mu sync.Mutex
}

// NewMemoryStore creates a memory store that purges expired entries every cleanupInterval
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	return &MemoryStore{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	if sessionID == "" {
		return "", false, ErrEmptySessionID
	}
	v, found := s.cache.Get(storageKey(sessionID, key))
	if !found {
		return "", false, nil
	}
	str, _ := v.(string)
	return str, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, sessionID, key, value string, ttl time.Duration) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(storageKey(sessionID, key), value, ttl)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID, key string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(storageKey(sessionID, key))
	return nil
}

func (s *MemoryStore) CompareAndDelete(ctx context.Context, sessionID, key, expected string) (bool, error) {
	if sessionID == "" {
		return false, ErrEmptySessionID
	}
	k := storageKey(sessionID, key)

	s.mu.Lock()
	defer s.mu.Unlock()

	v, found := s.cache.Get(k)
	if !found {
		return false, nil
	}
	current, _ := v.(string)
	if subtle.ConstantTimeCompare([]byte(current), []byte(expected)) != 1 {
		return false, nil
	}
	s.cache.Delete(k)
	return true, nil
}
