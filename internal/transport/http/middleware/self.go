package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RequireSelf rejects requests whose {param} path value is not the
// authenticated user's id. Must be used after Auth.
func RequireSelf(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if chi.URLParam(r, param) != id.UserID {
				writeJSONError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
