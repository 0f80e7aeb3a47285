package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tendant/social-post-imgur/pkg/session"
)

const currentUserKey = "current_user"

// SessionDirectory keeps the signed-in user in the browser session and accounts in an AccountStore.
type SessionDirectory struct {
	sessions session.Store
	accounts AccountStore
}

// NewSessionDirectory creates a Directory backed by sessions and accounts
func NewSessionDirectory(sessions session.Store, accounts AccountStore) *SessionDirectory {
	return &SessionDirectory{
		sessions: sessions,
		accounts: accounts,
	}
}

func (d *SessionDirectory) CurrentUserID(ctx context.Context, sessionID string) (uuid.UUID, bool, error) {
	if sessionID == "" {
		return uuid.Nil, false, nil
	}
	raw, ok, err := d.sessions.Get(ctx, sessionID, currentUserKey)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to read current user: %w", err)
	}
	if !ok {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		slog.Warn("Ignoring malformed current user in session", "error", err)
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

func (d *SessionDirectory) CreateAccount(ctx context.Context, displayName string) (uuid.UUID, error) {
	acct, err := d.accounts.Create(ctx, displayName)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create account: %w", err)
	}
	slog.Info("Local account created", "user_id", acct.ID)
	return acct.ID, nil
}

func (d *SessionDirectory) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := d.accounts.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	slog.Info("Local account deleted", "user_id", userID)
	return nil
}

func (d *SessionDirectory) SignIn(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if err := d.sessions.Set(ctx, sessionID, currentUserKey, userID.String(), 0); err != nil {
		return fmt.Errorf("failed to sign in: %w", err)
	}
	return nil
}

// SignOut clears the current user of the session
func (d *SessionDirectory) SignOut(ctx context.Context, sessionID string) error {
	return d.sessions.Delete(ctx, sessionID, currentUserKey)
}
