package linkage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Linkage binds one provider account to one local user together with the provider tokens.
// (Provider, ProviderUserID) is unique; LocalUserID never changes once written.
type Linkage struct {
	Provider       string
	ProviderUserID string
	LocalUserID    uuid.UUID
	AccessToken    string
	RefreshToken   string
	TokenType      string
	Expiry         time.Time
	DisplayName    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Token is the credential part of a linkage.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}

// UpsertParams carries the values written by Upsert.
type UpsertParams struct {
	Provider       string
	ProviderUserID string
	LocalUserID    uuid.UUID
	Token          Token
	DisplayName    string
}

// Repository persists linkages.
type Repository interface {
	// Exists reports whether a linkage is recorded for the provider account.
	Exists(ctx context.Context, provider, providerUserID string) (bool, error)

	// Get returns the linkage or a NOT_FOUND error.
	Get(ctx context.Context, provider, providerUserID string) (*Linkage, error)

	// Upsert inserts the linkage, or refreshes its token and display name when it already
	// exists for the same local user. An existing linkage owned by another local user is
	// left untouched and LINK_CONFLICT is returned. The bool reports whether a row was created.
	Upsert(ctx context.Context, params UpsertParams) (*Linkage, bool, error)

	// ListForLocalUser returns every linkage owned by localUserID, oldest first.
	ListForLocalUser(ctx context.Context, localUserID uuid.UUID) ([]Linkage, error)

	// GetToken returns the stored token or a NOT_FOUND error.
	GetToken(ctx context.Context, provider, providerUserID string) (*Token, error)
}

func (l *Linkage) Token() *Token {
	return &Token{
		AccessToken:  l.AccessToken,
		RefreshToken: l.RefreshToken,
		TokenType:    l.TokenType,
		Expiry:       l.Expiry,
	}
}

func validateParams(p UpsertParams) error {
	switch {
	case p.Provider == "":
		return errInvalid("provider", "must not be empty")
	case p.ProviderUserID == "":
		return errInvalid("provider_user_id", "must not be empty")
	case p.LocalUserID == uuid.Nil:
		return errInvalid("local_user_id", "must not be empty")
	case p.Token.AccessToken == "":
		return errInvalid("access_token", "must not be empty")
	}
	return nil
}
