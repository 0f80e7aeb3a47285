package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := setupRedisStore(t)
	return map[string]Store{
		"Memory": NewMemoryStore(time.Hour, time.Minute),
		"Redis":  redisStore,
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			t.Run("SetGetDelete", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "s1", "k", "v", 0))

				val, ok, err := store.Get(ctx, "s1", "k")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, "v", val)

				require.NoError(t, store.Delete(ctx, "s1", "k"))
				_, ok, err = store.Get(ctx, "s1", "k")
				require.NoError(t, err)
				assert.False(t, ok)

				// deleting again is fine
				require.NoError(t, store.Delete(ctx, "s1", "k"))
			})

			t.Run("SessionsAreIsolated", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "s1", "shared", "one", 0))

				_, ok, err := store.Get(ctx, "s2", "shared")
				require.NoError(t, err)
				assert.False(t, ok)
			})

			t.Run("CompareAndDeleteMatch", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "s1", "cad", "expected", 0))

				deleted, err := store.CompareAndDelete(ctx, "s1", "cad", "expected")
				require.NoError(t, err)
				assert.True(t, deleted)

				deleted, err = store.CompareAndDelete(ctx, "s1", "cad", "expected")
				require.NoError(t, err)
				assert.False(t, deleted)
			})

			t.Run("CompareAndDeleteMismatchKeepsValue", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "s1", "keep", "expected", 0))

				deleted, err := store.CompareAndDelete(ctx, "s1", "keep", "other")
				require.NoError(t, err)
				assert.False(t, deleted)

				val, ok, err := store.Get(ctx, "s1", "keep")
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, "expected", val)
			})

			t.Run("EmptySessionID", func(t *testing.T) {
				assert.ErrorIs(t, store.Set(ctx, "", "k", "v", 0), ErrEmptySessionID)
				_, _, err := store.Get(ctx, "", "k")
				assert.ErrorIs(t, err, ErrEmptySessionID)
				_, err = store.CompareAndDelete(ctx, "", "k", "v")
				assert.ErrorIs(t, err, ErrEmptySessionID)
			})

			t.Run("ConcurrentCompareAndDelete", func(t *testing.T) {
				require.NoError(t, store.Set(ctx, "race", "k", "once", 0))

				var wins int32
				var wg sync.WaitGroup
				for i := 0; i < 20; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						ok, err := store.CompareAndDelete(ctx, "race", "k", "once")
						if err == nil && ok {
							atomic.AddInt32(&wins, 1)
						}
					}()
				}
				wg.Wait()
				assert.Equal(t, int32(1), wins)
			})
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, time.Minute)

	require.NoError(t, store.Set(ctx, "s1", "short", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, ok, err := store.Get(ctx, "s1", "short")
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := store.CompareAndDelete(ctx, "s1", "short", "v")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRedisStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t)

	require.NoError(t, store.Set(ctx, "s1", "short", "v", time.Minute))
	assert.True(t, mr.Exists("session:s1:short"))

	mr.FastForward(2 * time.Minute)

	_, ok, err := store.Get(ctx, "s1", "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStorePing(t *testing.T) {
	store, mr := setupRedisStore(t)
	require.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
