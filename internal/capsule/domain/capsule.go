package domain

import "time"

// Capsule is a scheduled content release. The share token doubles as the
// public link id; anyone holding it can read the capsule once the unlock
// time has passed.
type Capsule struct {
	ID         string
	OwnerID    string // Account.ID of the creator
	Title      string
	Message    string
	ImageURL   *string // optional illustration (nullable)
	ShareToken string
	UnlockAt   time.Time
	CreatedAt  time.Time
}

// Opened reports whether the capsule's unlock time has passed.
func (c Capsule) Opened(now time.Time) bool { return !now.Before(c.UnlockAt) }
