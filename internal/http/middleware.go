package http

import (
	"net/http"

	"bugtracker/internal/apperr"
	"bugtracker/internal/auth"
)

// RequireAPIToken guards admin routes with a static bearer token.
func RequireAPIToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := auth.BearerToken(r.Header.Get("Authorization"))
			if !ok || !auth.TokenEquals(got, token) {
				writeError(w, r, apperr.Unauthorized())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
