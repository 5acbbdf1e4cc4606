package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLimitBodyBytesOverride(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router := LimitBodyBytes(2, BodyLimitOverride{PathPrefix: "/webhook/", MaxBytes: 10})(handler)

	t.Run("override applies on webhook path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook/orders", strings.NewReader("12345"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
		}
	})

	t.Run("default limit applies elsewhere", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/imports", strings.NewReader("12345"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected status %d, got %d", http.StatusRequestEntityTooLarge, rr.Code)
		}
	})
}

type fixedVerifier string

func (v fixedVerifier) Verify(token string) bool { return token == string(v) }

func TestRequireAPIKey(t *testing.T) {
	handler := RequestID(RequireAPIKey(fixedVerifier("secret"))(okHandler()))

	cases := []struct {
		name string
		key  string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", "secret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/cooking-plan", nil)
			if tc.key != "" {
				req.Header.Set(APIKeyHeader, tc.key)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, rr.Code)
			}
			if rr.Header().Get(RequestIDHeader) == "" {
				t.Fatal("expected request id header")
			}
			if tc.want == http.StatusUnauthorized && !strings.Contains(rr.Body.String(), `"requestId":"`+rr.Header().Get(RequestIDHeader)+`"`) {
				t.Fatalf("expected request id in error envelope, got %s", rr.Body.String())
			}
		})
	}
}
