// Package quota throttles guest link creation per source address.
// State is in-memory and process-lifetime only: this is a courtesy throttle,
// not a security boundary, and is separate from the generic request rate limit.
package quota

import (
	"sync"
	"time"
)

// DefaultCooldown is the window during which a source key may create
// at most one guest link.
const DefaultCooldown = time.Hour

// Guard tracks the most recent successful guest creation per source key.
// It is safe for concurrent use.
type Guard struct {
	mu       sync.Mutex
	cooldown time.Duration
	lastSeen map[string]time.Time
	now      func() time.Time
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGuard creates a Guard with the given cooldown window. A non-positive
// cooldown falls back to DefaultCooldown. A background goroutine evicts
// entries older than the cooldown.
func NewGuard(cooldown time.Duration, opts ...Option) *Guard {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	g := &Guard{
		cooldown: cooldown,
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}

	go g.cleanupLoop()

	return g
}

// Reserve atomically checks and claims the cooldown slot for key. When
// denied, the returned duration is the remaining wait until the cooldown
// elapses. Claiming under the same lock as the check keeps two concurrent
// requests from the same key from both passing; Release undoes a reservation
// whose creation ultimately failed, so only persisted links start a cooldown.
func (g *Guard) Reserve(key string) (bool, time.Duration) {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.lastSeen[key]
	if ok {
		elapsed := now.Sub(last)
		if elapsed < g.cooldown {
			return false, g.cooldown - elapsed
		}
	}

	g.lastSeen[key] = now
	return true, 0
}

// Release removes the reservation for key so the next attempt is not blocked
// by a creation that never persisted.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.lastSeen, key)
}

// RetryAfterMinutes converts a remaining wait into whole minutes, rounded up.
func RetryAfterMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Minute - 1) / time.Minute)
}

func (g *Guard) cleanupLoop() {
	ticker := time.NewTicker(g.cooldown)
	defer ticker.Stop()

	for range ticker.C {
		g.mu.Lock()
		cutoff := g.now().Add(-g.cooldown)
		for key, last := range g.lastSeen {
			if last.Before(cutoff) {
				delete(g.lastSeen, key)
			}
		}
		g.mu.Unlock()
	}
}
