package oauthclient

import (
	"context"
	"net/url"
	"strings"
	"sync"

	apperrors "github.com/tendant/social-post-imgur/pkg/errors"
)

// StubClient is an in-process Client for tests and local demos.
// Exchange accepts only the codes registered in Tokens.
type StubClient struct {
	ProviderName string
	AuthURL      string
	Tokens       map[string]*Token   // code -> token
	Profiles     map[string]*Profile // access token -> profile

	mu            sync.Mutex
	ExchangeCalls int
	ProfileCalls  int
}

func (s *StubClient) Name() string {
	if s.ProviderName == "" {
		return ProviderImgur
	}
	return s.ProviderName
}

func (s *StubClient) AuthorizationURL(state string, scopes []string) string {
	base := s.AuthURL
	if base == "" {
		base = "https://stub.invalid/authorize"
	}
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("state", state)
	if len(scopes) > 0 {
		q.Set("scope", strings.Join(scopes, " "))
	}
	return base + "?" + q.Encode()
}

func (s *StubClient) Exchange(ctx context.Context, code string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExchangeCalls++

	tok, ok := s.Tokens[code]
	if code == "" || !ok {
		return nil, apperrors.New(apperrors.ErrCodeAuthExchangeFailed, "invalid authorization code")
	}
	copied := *tok
	return &copied, nil
}

func (s *StubClient) FetchProfile(ctx context.Context, token *Token) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ProfileCalls++

	if token == nil {
		return nil, apperrors.New(apperrors.ErrCodeProfileFetchFailed, "no token")
	}
	profile, ok := s.Profiles[token.AccessToken]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeProfileFetchFailed, "unknown access token")
	}
	copied := *profile
	return &copied, nil
}
