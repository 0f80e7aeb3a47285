package config

import (
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig selects the Redis instance used for browser sessions.
// An empty Addr keeps sessions in process memory.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:""`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Options converts the config to go-redis options
func (r RedisConfig) Options() *redis.Options {
	return &redis.Options{
		Addr:        r.Addr,
		Password:    r.Password,
		DB:          r.DB,
		DialTimeout: 5 * time.Second,
	}
}

// SessionConfig controls the browser session cookie
type SessionConfig struct {
	CookieSecure bool          `env:"COOKIE_SECURE" env-default:"true"`
	CookieDomain string        `env:"COOKIE_DOMAIN" env-default:""`
	TTL          time.Duration `env:"SESSION_TTL" env-default:"24h"`
}
