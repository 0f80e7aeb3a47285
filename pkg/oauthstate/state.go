package oauthstate

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/social-post-imgur/pkg/session"
)

const (
	DefaultTTL = 10 * time.Minute
	stateBytes = 32
	keyPrefix  = "oauth2_state:"
)

// PendingAuthState is a state value handed to the provider and bound to one browser session.
type PendingAuthState struct {
	State    string
	IssuedAt time.Time
}

// Store issues and verifies single-use OAuth2 state values.
// Only a SHA-256 digest of the state is kept in the session.
type Store struct {
	sessions session.Store
	provider string
	ttl      time.Duration
}

// Option configures the Store
type Option func(*Store)

// WithTTL sets how long an issued state remains valid.
// The session store expires the state, so the lifetime follows its clock.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewStore creates a state store for one provider
func NewStore(sessions session.Store, provider string, opts ...Option) *Store {
	s := &Store{
		sessions: sessions,
		provider: provider,
		ttl:      DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue generates a fresh state and binds it to the session, replacing any earlier pending state.
func (s *Store) Issue(ctx context.Context, sessionID string) (*PendingAuthState, error) {
	if sessionID == "" {
		return nil, session.ErrEmptySessionID
	}

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	if err := s.sessions.Set(ctx, sessionID, s.key(), digest(state), s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store state: %w", err)
	}

	slog.Debug("OAuth2 state issued", "provider", s.provider, "state_prefix", state[:8])
	return &PendingAuthState{
		State:    state,
		IssuedAt: time.Now(),
	}, nil
}

// ConsumeAndVerify returns true iff candidate is the state pending for this session.
// On true the pending state is removed; a wrong candidate leaves it in place.
func (s *Store) ConsumeAndVerify(ctx context.Context, sessionID, candidate string) (bool, error) {
	if sessionID == "" || candidate == "" {
		return false, nil
	}
	ok, err := s.sessions.CompareAndDelete(ctx, sessionID, s.key(), digest(candidate))
	if err != nil {
		return false, fmt.Errorf("failed to verify state: %w", err)
	}
	return ok, nil
}

func (s *Store) key() string {
	return keyPrefix + s.provider
}

func digest(state string) string {
	sum := sha256.Sum256([]byte(state))
	return hex.EncodeToString(sum[:])
}

func generateState() (string, error) {
	bytes := make([]byte, stateBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
