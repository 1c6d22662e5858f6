package links

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultClickBuffer = 256
	clickUpdateTimeout = 5 * time.Second
)

// ClickTracker applies click-count increments off the redirect path. Enqueue
// never blocks and failures are logged and dropped; a redirect response must
// not depend on the counter in any way.
type ClickTracker struct {
	store  Store
	logger *slog.Logger
	events chan string
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewClickTracker starts a tracker with a background worker draining the queue.
func NewClickTracker(store Store, logger *slog.Logger) *ClickTracker {
	if logger == nil {
		logger = slog.Default()
	}

	t := &ClickTracker{
		store:  store,
		logger: logger,
		events: make(chan string, defaultClickBuffer),
	}

	t.wg.Add(1)
	go t.worker()

	return t
}

// Track enqueues a click for hash. It never blocks: if the queue is full
// or the tracker is closed, the click is dropped.
func (t *ClickTracker) Track(hash string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	select {
	case t.events <- hash:
	default:
		t.logger.Warn("click queue full, dropping click", "hash", hash)
	}
}

// Close stops accepting clicks and waits for queued increments to drain.
func (t *ClickTracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.events)
	t.mu.Unlock()

	t.wg.Wait()
}

func (t *ClickTracker) worker() {
	defer t.wg.Done()

	for hash := range t.events {
		ctx, cancel := context.WithTimeout(context.Background(), clickUpdateTimeout)
		if err := t.store.IncrementClicks(ctx, hash); err != nil {
			t.logger.Warn("click increment failed",
				"hash", hash,
				"error", err.Error(),
			)
		}
		cancel()
	}
}
