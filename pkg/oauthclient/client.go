package oauthclient

import (
	"context"
	"time"
)

// Token is the credential set returned by a provider's token endpoint.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time

	// Provider account hints returned alongside the token, may be empty.
	AccountID       string
	AccountUsername string
}

// Profile identifies the provider account that authorized us.
type Profile struct {
	ProviderUserID string
	DisplayName    string
}

// Client talks to one OAuth2 provider.
type Client interface {
	// Name returns the provider identifier, e.g. "imgur".
	Name() string

	// AuthorizationURL builds the provider consent URL. Identical inputs give identical URLs.
	AuthorizationURL(state string, scopes []string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string) (*Token, error)

	// FetchProfile retrieves the account identity for token.
	FetchProfile(ctx context.Context, token *Token) (*Profile, error)
}
