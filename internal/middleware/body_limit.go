package middleware

import (
	"net/http"
	"strings"
)

type BodyLimitOverride struct {
	PathPrefix string
	MaxBytes   int64
}

// LimitBodyBytes caps request bodies at defaultMax, or at the first override
// whose prefix matches the request path.
func LimitBodyBytes(defaultMax int64, overrides ...BodyLimitOverride) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			maxBytes := defaultMax
			for _, o := range overrides {
				if o.PathPrefix != "" && o.MaxBytes > 0 && strings.HasPrefix(r.URL.Path, o.PathPrefix) {
					maxBytes = o.MaxBytes
					break
				}
			}
			if maxBytes > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
