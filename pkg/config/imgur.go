package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	apperrors "github.com/tendant/social-post-imgur/pkg/errors"
)

// ImgurConfig holds the Imgur application settings.
type ImgurConfig struct {
	ClientID           string        `env:"IMGUR_CLIENT_ID"`
	ClientSecret       string        `env:"IMGUR_CLIENT_SECRET"`
	RedirectURI        string        `env:"IMGUR_REDIRECT_URI"`
	Scopes             []string      `env:"IMGUR_SCOPES" env-separator:","`
	AllowSignup        bool          `env:"IMGUR_ALLOW_SIGNUP" env-default:"false"`
	RequestTimeoutMs   int           `env:"IMGUR_REQUEST_TIMEOUT_MS" env-default:"5000"`
	APIRetryLimit      int           `env:"IMGUR_API_RETRY_LIMIT" env-default:"3"`
	StateTTL           time.Duration `env:"IMGUR_STATE_TTL" env-default:"10m"`
	PostLoginURL       string        `env:"IMGUR_POST_LOGIN_URL" env-default:"/user"`
	LoginURL           string        `env:"IMGUR_LOGIN_URL" env-default:"/user/login"`
	TokenEncryptionKey string        `env:"IMGUR_TOKEN_ENCRYPTION_KEY" env-default:""`
}

// RequestTimeout returns the per-call timeout
func (c ImgurConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func (c ImgurConfig) validate() ValidationErrors {
	return CollectErrors(
		RequireNonEmpty("IMGUR_CLIENT_ID", c.ClientID),
		RequireNonEmpty("IMGUR_CLIENT_SECRET", c.ClientSecret),
		RequireAbsoluteURL("IMGUR_REDIRECT_URI", c.RedirectURI),
		RequirePositive("IMGUR_REQUEST_TIMEOUT_MS", c.RequestTimeoutMs),
		RequireInRange("IMGUR_API_RETRY_LIMIT", c.APIRetryLimit, 1, 10),
		RequirePositiveDuration("IMGUR_STATE_TTL", c.StateTTL),
		RequireNonEmpty("IMGUR_POST_LOGIN_URL", c.PostLoginURL),
		RequireNonEmpty("IMGUR_LOGIN_URL", c.LoginURL),
		WhenSet(c.TokenEncryptionKey, func() *ValidationError {
			return RequireMinLength("IMGUR_TOKEN_ENCRYPTION_KEY", c.TokenEncryptionKey, 16)
		}),
	)
}

// Config is the complete service configuration.
type Config struct {
	Imgur    ImgurConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Session  SessionConfig

	Port int `env:"PORT" env-default:"4000"`
}

// Load reads the configuration from the environment and validates it.
// Any problem is a CONFIGURATION_ERROR.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "failed to read configuration")
	}
	return cfg, cfg.Validate()
}

// Validate checks every section, reporting all problems at once.
func (c Config) Validate() error {
	err := Validate(c.Imgur.validate, c.JWT.validate)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "invalid configuration")
	}
	return nil
}

// Usage returns the environment variable help text
func Usage() string {
	var cfg Config
	help, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return help
}
