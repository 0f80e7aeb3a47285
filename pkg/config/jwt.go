package config

import "time"

// JWTConfig holds the HS256 settings for API bearer tokens
type JWTConfig struct {
	Secret      string        `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer      string        `env:"JWT_ISSUER" env-default:"social-post-imgur"`
	TokenExpiry time.Duration `env:"JWT_TOKEN_EXPIRY" env-default:"1h"`
}

func (j JWTConfig) validate() ValidationErrors {
	return CollectErrors(RequireMinLength("JWT_SECRET", j.Secret, 16))
}
