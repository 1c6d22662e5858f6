package httpx

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a per-client token bucket limiter. It caps total requests
// per window regardless of outcome and is independent of any domain-level
// throttling (e.g. guest creation cooldowns).
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*bucket
	max     int           // requests allowed per window
	window  time.Duration // refill window
	cleanup time.Duration // eviction interval for idle clients
	logger  *slog.Logger
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing max requests per window per client.
// A background goroutine evicts clients idle for longer than the cleanup interval.
func NewRateLimiter(max int, window time.Duration, logger *slog.Logger) *RateLimiter {
	if max <= 0 {
		max = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	rl := &RateLimiter{
		clients: make(map[string]*bucket),
		max:     max,
		window:  window,
		cleanup: 5 * time.Minute,
		logger:  logger,
	}

	go rl.cleanupLoop()

	return rl
}

// Allow consumes one token for key if available and returns true, else false.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[key]
	if !ok {
		rl.clients[key] = &bucket{tokens: float64(rl.max) - 1, lastSeen: now}
		return true
	}

	// Refill proportionally to elapsed time, capped at the bucket size.
	elapsed := now.Sub(b.lastSeen)
	b.tokens = min(float64(rl.max), b.tokens+elapsed.Seconds()/rl.window.Seconds()*float64(rl.max))
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.cleanup)
		for key, b := range rl.clients {
			if b.lastSeen.Before(cutoff) {
				delete(rl.clients, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Limit returns a middleware rejecting clients over the limit with 429.
func (rl *RateLimiter) Limit() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)

			if !rl.Allow(key) {
				rl.logger.WarnContext(r.Context(), "request rate limit exceeded",
					"request_id", GetRequestID(r.Context()),
					"client_ip", key,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", "60")
				WriteError(w, http.StatusTooManyRequests, "rate_limited",
					"Too many requests, please try again later", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the originating client address from a request,
// preferring proxy headers over the raw remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First address in the list is the original client.
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Strip the port from RemoteAddr if present.
	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		return addr[:i]
	}
	return addr
}
