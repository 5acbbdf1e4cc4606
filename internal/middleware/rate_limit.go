package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mealbox/orders-api/internal/httpx"
)

const defaultMaxEntries = 10000

type window struct {
	count int
	ends  time.Time
}

// IPRateLimiter allows limit requests per client IP in each fixed window.
type IPRateLimiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	maxEntries int
	clients    map[string]window
	now        func() time.Time
}

func NewIPRateLimiter(limit int, win time.Duration) *IPRateLimiter {
	return NewIPRateLimiterWithMaxEntries(limit, win, defaultMaxEntries)
}

// NewIPRateLimiterWithMaxEntries bounds the number of tracked clients; when
// the table is full, expired windows are swept before a new client is added.
func NewIPRateLimiterWithMaxEntries(limit int, win time.Duration, maxEntries int) *IPRateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if win <= 0 {
		win = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	return &IPRateLimiter{
		limit:      limit,
		window:     win,
		maxEntries: maxEntries,
		clients:    map[string]window{},
		now:        time.Now,
	}
}

func (rl *IPRateLimiter) Middleware(message string) func(http.Handler) http.Handler {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(clientIP(r.RemoteAddr)) {
				httpx.WriteError(w, r, http.StatusTooManyRequests, httpx.CodeRateLimited, message, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *IPRateLimiter) allow(ip string) bool {
	if ip == "" {
		ip = "unknown"
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.clients[ip]
	if !ok && len(rl.clients) >= rl.maxEntries {
		rl.sweep(now)
		if len(rl.clients) >= rl.maxEntries {
			return false
		}
	}
	if entry.ends.Before(now) {
		entry = window{ends: now.Add(rl.window)}
	}
	entry.count++
	rl.clients[ip] = entry
	return entry.count <= rl.limit
}

func (rl *IPRateLimiter) sweep(now time.Time) {
	for ip, entry := range rl.clients {
		if entry.ends.Before(now) {
			delete(rl.clients, ip)
		}
	}
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
