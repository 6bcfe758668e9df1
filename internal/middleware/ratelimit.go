package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hongminglow/ledger-be/internal/http/respond"
)

// RateLimiter allows a fixed number of requests per client per minute.
// Stale clients are swept during calls, so it needs no goroutine of its own.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*window
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type window struct {
	start    time.Time
	requests int
}

// NewRateLimiter returns a limiter for requestsPerMinute; zero or less disables limiting.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*window),
		limit:   requestsPerMinute,
		window:  time.Minute,
		now:     time.Now,
	}
}

// Allow records a request from key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(key string) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > 10*rl.window {
		for k, w := range rl.clients {
			if now.Sub(w.start) > rl.window {
				delete(rl.clients, k)
			}
		}
		rl.lastSweep = now
	}

	w, ok := rl.clients[key]
	if !ok || now.Sub(w.start) > rl.window {
		rl.clients[key] = &window{start: now, requests: 1}
		return true
	}
	w.requests++
	return w.requests <= rl.limit
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			respond.Error(w, http.StatusTooManyRequests, "too many requests, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}
