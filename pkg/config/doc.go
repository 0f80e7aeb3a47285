// Package config loads the service configuration from environment variables.
//
// Load reads every section with cleanenv (env tags and defaults) and validates it. Any missing
// or malformed value is reported as a CONFIGURATION_ERROR so the process can refuse to start
// instead of failing on the first request.
//
// # Sections
//
//   - ImgurConfig: IMGUR_CLIENT_ID, IMGUR_CLIENT_SECRET and IMGUR_REDIRECT_URI are required;
//     IMGUR_SCOPES, IMGUR_ALLOW_SIGNUP, IMGUR_REQUEST_TIMEOUT_MS, IMGUR_API_RETRY_LIMIT,
//     IMGUR_STATE_TTL, IMGUR_POST_LOGIN_URL, IMGUR_LOGIN_URL and IMGUR_TOKEN_ENCRYPTION_KEY
//     have defaults.
//   - DatabaseConfig: SOCIAL_POST_PG_* connection settings, converted with ToDbConfig for db-utils.
//   - RedisConfig: REDIS_ADDR; sessions stay in memory when unset.
//   - JWTConfig: HS256 secret for the /api/v1 bearer tokens.
//   - SessionConfig: browser session cookie settings.
//
// # Validation
//
//	err := config.Validate(
//	    func() config.ValidationErrors {
//	        return config.CollectErrors(config.RequireNonEmpty("IMGUR_CLIENT_ID", id))
//	    },
//	)
package config
