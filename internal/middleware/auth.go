package middleware

import (
	"net/http"
	"strings"

	"github.com/mealbox/orders-api/internal/httpx"
)

const APIKeyHeader = "X-Api-Key"

type Verifier interface {
	Verify(token string) bool
}

// RequireAPIKey rejects requests whose X-Api-Key header does not match the
// configured shared secret.
func RequireAPIKey(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if key == "" {
				httpx.WriteError(w, r, http.StatusUnauthorized, httpx.CodeUnauthorized, "API key required", nil)
				return
			}
			if !v.Verify(key) {
				httpx.WriteError(w, r, http.StatusUnauthorized, httpx.CodeUnauthorized, "Invalid API key", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
