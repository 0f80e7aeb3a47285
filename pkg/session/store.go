package session

import (
	"context"
	"errors"
	"time"
)

var ErrEmptySessionID = errors.New("session id is required")

// Store keeps small string values scoped to one browser session.
type Store interface {
	// Get returns the value stored under key, false if absent or expired.
	Get(ctx context.Context, sessionID, key string) (string, bool, error)

	// Set stores value under key. A zero ttl uses the store default.
	Set(ctx context.Context, sessionID, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, sessionID, key string) error

	// CompareAndDelete atomically removes key iff its current value equals expected.
	// Concurrent callers racing on the same key see at most one true.
	CompareAndDelete(ctx context.Context, sessionID, key, expected string) (bool, error)
}

const DefaultTTL = 24 * time.Hour

func storageKey(sessionID, key string) string {
	return "session:" + sessionID + ":" + key
}
