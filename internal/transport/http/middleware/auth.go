package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-auth-otp/internal/domain"
)

type contextKey string

const IdentityKey contextKey = "identity"

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "session_token"

type identityResolver interface {
	Identity(ctx context.Context, sessionToken string) (*domain.Identity, error)
}

// Auth returns middleware that validates the session token and injects the
// identity into context. The token is read from the session cookie, falling
// back to an Authorization Bearer header.
func Auth(resolver identityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := SessionToken(r)
			if tokenStr == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing session token")
				return
			}
			id, err := resolver.Identity(r.Context(), tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), IdentityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionToken returns the session token presented by r, or "".
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// IdentityFromContext extracts the authenticated identity from the request context.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(*domain.Identity)
	return id, ok
}
