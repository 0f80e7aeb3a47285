package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"

	"github.com/tendant/social-post-imgur/pkg/oauthlink/api"
	"github.com/tendant/social-post-imgur/pkg/session"
)

const DefaultAPIPrefix = "/api/v1"

// Config holds all the dependencies needed to setup routes
type Config struct {
	// APIPrefix is where the JWT protected routes are mounted, DefaultAPIPrefix when empty
	APIPrefix string

	LinkHandle *api.Handle

	// Cookie controls the browser session cookie
	Cookie session.CookieOptions

	// JWT authentication for the API routes
	Auth *jwtauth.JWTAuth

	// Metrics is served on /metrics when set
	Metrics http.Handler
}

// SetupRoutes mounts the browser routes, the API routes and /metrics on the provided router
func SetupRoutes(router chi.Router, cfg Config) {
	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}

	if cfg.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	// Browser routes carry a session cookie
	router.Group(func(r chi.Router) {
		r.Use(session.EnsureID(cfg.Cookie))
		cfg.LinkHandle.RegisterBrowserRoutes(r)
	})

	router.Route(prefix, func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(session.EnsureID(cfg.Cookie))
			cfg.LinkHandle.RegisterSessionAPIRoutes(r)
		})

		// act for the subject of the bearer token
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(cfg.Auth))
			r.Use(jwtauth.Authenticator(cfg.Auth))
			cfg.LinkHandle.RegisterAPIRoutes(r)
		})
	})
}
