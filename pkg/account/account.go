package account

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Account is a local user created for a provider sign-in.
type Account struct {
	ID          uuid.UUID
	DisplayName string
	CreatedAt   time.Time
}

// Directory resolves and creates local users.
type Directory interface {
	// CurrentUserID returns the local user signed in on the browser session, false for anonymous sessions.
	CurrentUserID(ctx context.Context, sessionID string) (uuid.UUID, bool, error)

	// CreateAccount registers a new local user.
	CreateAccount(ctx context.Context, displayName string) (uuid.UUID, error)

	// DeleteAccount removes a local user that never got a linkage.
	DeleteAccount(ctx context.Context, userID uuid.UUID) error

	// SignIn marks userID as the current user of the session.
	SignIn(ctx context.Context, sessionID string, userID uuid.UUID) error
}

// AccountStore persists accounts.
type AccountStore interface {
	Create(ctx context.Context, displayName string) (*Account, error)
	Get(ctx context.Context, id uuid.UUID) (*Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
