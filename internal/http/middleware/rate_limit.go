package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/retendo/account/internal/http/response"
)

type rateWindow struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a per-client fixed-window limiter. Console traffic is
// bursty but low-volume, so a local window per process is enough.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
	window  time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
	}
}

func (l *RateLimiter) allow(key string) bool {
	if l.limit <= 0 {
		return true
	}
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		if len(l.windows) > 10000 {
			l.windows = make(map[string]*rateWindow)
		}
		l.windows[key] = &rateWindow{count: 1, resetAt: now.Add(l.window)}
		return true
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

func (l *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !l.allow(host) {
				response.XMLError(w, http.StatusTooManyRequests, "0008", "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
