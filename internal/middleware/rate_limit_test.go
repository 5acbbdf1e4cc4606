package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIPRateLimiterReturnsRateLimitedEnvelope(t *testing.T) {
	limiter := NewIPRateLimiterWithMaxEntries(1, time.Minute, 32)
	handler := limiter.Middleware("Too many requests")(okHandler())

	first := httptest.NewRecorder()
	req1 := httptest.NewRequest(http.MethodPost, "/webhook/orders", nil)
	req1.RemoteAddr = "127.0.0.1:12345"
	handler.ServeHTTP(first, req1)
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request status 200, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/webhook/orders", nil)
	req2.RemoteAddr = "127.0.0.1:12345"
	handler.ServeHTTP(second, req2)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request status 429, got %d", second.Code)
	}
	body := second.Body.String()
	if !strings.Contains(body, `"code":"RATE_LIMITED"`) {
		t.Fatalf("expected RATE_LIMITED error code in response body, got %s", body)
	}
}

func TestIPRateLimiterWindowResets(t *testing.T) {
	limiter := NewIPRateLimiterWithMaxEntries(1, time.Minute, 32)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.allow("10.0.0.1") {
		t.Fatal("first request should pass")
	}
	if limiter.allow("10.0.0.1") {
		t.Fatal("second request in the window should be limited")
	}
	now = now.Add(2 * time.Minute)
	if !limiter.allow("10.0.0.1") {
		t.Fatal("request after the window should pass")
	}
}

func TestIPRateLimiterSweepsExpiredClients(t *testing.T) {
	limiter := NewIPRateLimiterWithMaxEntries(5, time.Minute, 2)
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.allow("10.0.0.1")
	limiter.allow("10.0.0.2")
	if limiter.allow("10.0.0.3") {
		t.Fatal("new client should be refused while the table is full")
	}

	now = now.Add(2 * time.Minute)
	if !limiter.allow("10.0.0.3") {
		t.Fatal("expired clients should be swept to make room")
	}
	if len(limiter.clients) != 1 {
		t.Fatalf("expected 1 tracked client after sweep, got %d", len(limiter.clients))
	}
}
