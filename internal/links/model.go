package links

import "time"

// TTL is the lifetime granted to a link at creation and on restoration.
const TTL = 31 * 24 * time.Hour

// Link is a short-link record. Hash is the public lookup key; UserID is nil
// for guest-created links and never changes after creation.
type Link struct {
	Hash      string
	TargetURL string
	UserID    *string
	Clicks    int64
	IsActive  bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UsableAt reports whether the link may serve a redirect at the given time.
// Shared by redirect resolution and listing so the two cannot drift.
func (l Link) UsableAt(now time.Time) bool {
	return l.IsActive && now.Before(l.ExpiresAt)
}

// OwnedBy reports whether userID may mutate this link. Guest links have no
// owner and are never mutable through the authenticated API.
func (l Link) OwnedBy(userID string) bool {
	return l.UserID != nil && *l.UserID == userID
}
