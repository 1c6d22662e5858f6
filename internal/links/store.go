package links

import (
	"context"
	"time"
)

// Store defines the persistence operations for Link records. It owns hash
// uniqueness: Create must fail with a Conflict-kind error when the hash is
// already taken, distinct from other storage errors.
type Store interface {
	Create(ctx context.Context, link Link) (Link, error)
	GetByHash(ctx context.Context, hash string) (Link, error)
	ListByUser(ctx context.Context, userID string) ([]Link, error)
	UpdateTarget(ctx context.Context, hash, targetURL string) (Link, error)
	Restore(ctx context.Context, hash string, expiresAt time.Time) (Link, error)
	Delete(ctx context.Context, hash string) error
	IncrementClicks(ctx context.Context, hash string) error
}
