package oauthclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	apperrors "github.com/tendant/social-post-imgur/pkg/errors"
)

const (
	ProviderImgur = "imgur"

	DefaultAuthURL    = "https://api.imgur.com/oauth2/authorize"
	DefaultTokenURL   = "https://api.imgur.com/oauth2/token"
	DefaultAPIBaseURL = "https://api.imgur.com"

	DefaultRequestTimeout = 5 * time.Second

	maxProfileBody = 1 << 20
)

// Config holds the Imgur application credentials.
type Config struct {
	ClientID       string
	ClientSecret   string
	RedirectURI    string
	Scopes         []string
	RequestTimeout time.Duration
}

// ImgurClient implements Client for Imgur.
type ImgurClient struct {
	oauth      oauth2.Config
	httpClient *http.Client
	apiBaseURL string
}

// Option configures the ImgurClient
type Option func(*ImgurClient)

// WithHTTPClient sets the HTTP client used for token and API calls
func WithHTTPClient(client *http.Client) Option {
	return func(c *ImgurClient) {
		c.httpClient = client
	}
}

// WithEndpoints overrides the authorize and token URLs
func WithEndpoints(authURL, tokenURL string) Option {
	return func(c *ImgurClient) {
		c.oauth.Endpoint.AuthURL = authURL
		c.oauth.Endpoint.TokenURL = tokenURL
	}
}

// WithAPIBaseURL overrides the API host used for profile lookups
func WithAPIBaseURL(baseURL string) Option {
	return func(c *ImgurClient) {
		c.apiBaseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewImgurClient creates an Imgur client. Missing credentials are a configuration error.
func NewImgurClient(cfg Config, opts ...Option) (*ImgurClient, error) {
	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "client id")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if cfg.RedirectURI == "" {
		missing = append(missing, "redirect uri")
	}
	if len(missing) > 0 {
		return nil, apperrors.Configuration("imgur: missing " + strings.Join(missing, ", "))
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	c := &ImgurClient{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   DefaultAuthURL,
				TokenURL:  DefaultTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: &http.Client{Timeout: timeout},
		apiBaseURL: DefaultAPIBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *ImgurClient) Name() string {
	return ProviderImgur
}

func (c *ImgurClient) AuthorizationURL(state string, scopes []string) string {
	cfg := c.oauth
	if scopes != nil {
		cfg.Scopes = scopes
	}
	return cfg.AuthCodeURL(state)
}

func (c *ImgurClient) Exchange(ctx context.Context, code string) (*Token, error) {
	if code == "" {
		return nil, apperrors.New(apperrors.ErrCodeAuthExchangeFailed, "authorization code is empty")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			slog.Error("Imgur token exchange rejected", "status", retrieveErr.Response.StatusCode, "error_code", retrieveErr.ErrorCode)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAuthExchangeFailed, "token exchange failed")
	}
	if tok.AccessToken == "" {
		return nil, apperrors.New(apperrors.ErrCodeAuthExchangeFailed, "token response has no access token")
	}

	return &Token{
		AccessToken:     tok.AccessToken,
		RefreshToken:    tok.RefreshToken,
		TokenType:       tok.TokenType,
		Expiry:          tok.Expiry,
		AccountID:       extraString(tok, "account_id"),
		AccountUsername: extraString(tok, "account_username"),
	}, nil
}

type accountEnvelope struct {
	Data struct {
		ID  json.Number `json:"id"`
		URL string      `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

func (c *ImgurClient) FetchProfile(ctx context.Context, token *Token) (*Profile, error) {
	if token == nil || token.AccessToken == "" {
		return nil, apperrors.New(apperrors.ErrCodeProfileFetchFailed, "access token is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBaseURL+"/3/account/me", nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProfileFetchFailed, "failed to create profile request")
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProfileFetchFailed, "profile request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBody))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProfileFetchFailed, "failed to read profile response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.Newf(apperrors.ErrCodeProfileFetchFailed, "profile request returned status %d", resp.StatusCode)
	}

	var envelope accountEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeProfileFetchFailed, "failed to decode profile response")
	}
	id := envelope.Data.ID.String()
	if id == "" || id == "0" {
		return nil, apperrors.New(apperrors.ErrCodeProfileFetchFailed, "profile response has no account id")
	}

	displayName := envelope.Data.URL
	if displayName == "" {
		displayName = token.AccountUsername
	}

	return &Profile{
		ProviderUserID: id,
		DisplayName:    displayName,
	}, nil
}

func extraString(tok *oauth2.Token, key string) string {
	switch v := tok.Extra(key).(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
