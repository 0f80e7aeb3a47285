package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const CookieName = "sid"

const (
	idBytes  = 32
	idLength = 43 // unpadded base64url of idBytes
)

type contextKey struct{}

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	// Lax is required: the provider redirect back to the callback is a cross-site top-level GET.
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultTTL
	}
	return o
}

// GenerateID generates a cryptographically secure session ID (256 bits).
func GenerateID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidID reports whether id has the shape GenerateID produces.
func ValidID(id string) bool {
	if len(id) != idLength {
		return false
	}
	b, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil && len(b) == idBytes
}

// SetCookie sends the session cookie carrying sessionID
func SetCookie(w http.ResponseWriter, opts CookieOptions, sessionID string) {
	opts = opts.normalize()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sessionID,
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   int(opts.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// EnsureID is middleware that makes sure every request carries a browser session id,
// issuing a cookie when the client has none, and exposes it through IDFromContext.
// Ids we could not have issued are replaced.
func EnsureID(opts CookieOptions) func(http.Handler) http.Handler {
	opts = opts.normalize()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string
			if c, err := r.Cookie(CookieName); err == nil && ValidID(c.Value) {
				sessionID = c.Value
			} else {
				id, err := GenerateID()
				if err != nil {
					slog.Error("Failed to generate session id", "error", err)
					http.Error(w, "internal error", http.StatusInternalServerError)
					return
				}
				sessionID = id
				SetCookie(w, opts, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), sessionID)))
		})
	}
}

// WithID returns a context carrying the session id
func WithID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKey{}, sessionID)
}

// IDFromContext returns the session id placed by EnsureID
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
