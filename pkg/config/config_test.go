package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tendant/social-post-imgur/pkg/errors"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("IMGUR_CLIENT_ID", "client-id")
	t.Setenv("IMGUR_CLIENT_SECRET", "client-secret")
	t.Setenv("IMGUR_REDIRECT_URI", "https://example.com/connect/imgur/callback")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Imgur.AllowSignup)
	assert.Equal(t, 5*time.Second, cfg.Imgur.RequestTimeout())
	assert.Equal(t, 3, cfg.Imgur.APIRetryLimit)
	assert.Equal(t, 10*time.Minute, cfg.Imgur.StateTTL)
	assert.Equal(t, "/user", cfg.Imgur.PostLoginURL)
	assert.Equal(t, "/user/login", cfg.Imgur.LoginURL)
	assert.Empty(t, cfg.Imgur.Scopes)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 4000, cfg.Port)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("IMGUR_SCOPES", "read,write")
	t.Setenv("IMGUR_ALLOW_SIGNUP", "true")
	t.Setenv("IMGUR_REQUEST_TIMEOUT_MS", "1500")
	t.Setenv("IMGUR_STATE_TTL", "2m")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"read", "write"}, cfg.Imgur.Scopes)
	assert.True(t, cfg.Imgur.AllowSignup)
	assert.Equal(t, 1500*time.Millisecond, cfg.Imgur.RequestTimeout())
	assert.Equal(t, 2*time.Minute, cfg.Imgur.StateTTL)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "localhost:6379", cfg.Redis.Options().Addr)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Imgur: ImgurConfig{
				ClientID:         "id",
				ClientSecret:     "secret",
				RedirectURI:      "https://example.com/cb",
				RequestTimeoutMs: 5000,
				APIRetryLimit:    3,
				StateTTL:         10 * time.Minute,
				PostLoginURL:     "/user",
				LoginURL:         "/user/login",
			},
			JWT: JWTConfig{Secret: "a-long-enough-secret"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"MissingClientID", func(c *Config) { c.Imgur.ClientID = "" }, "IMGUR_CLIENT_ID"},
		{"MissingClientSecret", func(c *Config) { c.Imgur.ClientSecret = "" }, "IMGUR_CLIENT_SECRET"},
		{"RelativeRedirect", func(c *Config) { c.Imgur.RedirectURI = "/callback" }, "IMGUR_REDIRECT_URI"},
		{"ZeroTimeout", func(c *Config) { c.Imgur.RequestTimeoutMs = 0 }, "IMGUR_REQUEST_TIMEOUT_MS"},
		{"RetryLimitTooLarge", func(c *Config) { c.Imgur.APIRetryLimit = 50 }, "IMGUR_API_RETRY_LIMIT"},
		{"ShortEncryptionKey", func(c *Config) { c.Imgur.TokenEncryptionKey = "short" }, "IMGUR_TOKEN_ENCRYPTION_KEY"},
		{"ShortJWTSecret", func(c *Config) { c.JWT.Secret = "x" }, "JWT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("IMGUR_CLIENT_ID", "")
	t.Setenv("IMGUR_CLIENT_SECRET", "")
	t.Setenv("IMGUR_REDIRECT_URI", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}
