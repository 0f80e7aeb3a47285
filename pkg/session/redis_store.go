package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// compareAndDelete deletes KEYS[1] only when it still holds ARGV[1].
// Runs server-side so the read and the delete are one atomic step.
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore implements Store on Redis so session data survives restarts and is
// shared between instances.
type RedisStore struct {
	client     redis.UniversalClient
	defaultTTL time.Duration
}

// NewRedisStore creates a Redis-backed session store
func NewRedisStore(client redis.UniversalClient, defaultTTL time.Duration) *RedisStore {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &RedisStore{
		client:     client,
		defaultTTL: defaultTTL,
	}
}

func (s *RedisStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	if sessionID == "" {
		return "", false, ErrEmptySessionID
	}
	val, err := s.client.Get(ctx, storageKey(sessionID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session key: %w", err)
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, sessionID, key, value string, ttl time.Duration) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.client.Set(ctx, storageKey(sessionID, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write session key: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID, key string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if err := s.client.Del(ctx, storageKey(sessionID, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete session key: %w", err)
	}
	return nil
}

func (s *RedisStore) CompareAndDelete(ctx context.Context, sessionID, key, expected string) (bool, error) {
	if sessionID == "" {
		return false, ErrEmptySessionID
	}
	deleted, err := compareAndDelete.Run(ctx, s.client, []string{storageKey(sessionID, key)}, expected).Int()
	if err != nil {
		return false, fmt.Errorf("failed to compare session key: %w", err)
	}
	return deleted == 1, nil
}

// Ping checks connectivity, used by readiness checks
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
