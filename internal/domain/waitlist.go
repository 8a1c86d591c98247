package domain

import (
	"time"

	"github.com/google/uuid"
)

// WaitlistEntry records that a user wants to hear when an item becomes available.
// At most one entry exists per (ItemID, UserID).
type WaitlistEntry struct {
	ID        uuid.UUID
	ItemID    uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time

	// Filled by ListPage only.
	ItemTitle string
	UserName  string
}

// Before reports whether e is ahead of other in queue order:
// earlier CreatedAt first, ties broken by ID.
func (e WaitlistEntry) Before(other WaitlistEntry) bool {
	if !e.CreatedAt.Equal(other.CreatedAt) {
		return e.CreatedAt.Before(other.CreatedAt)
	}
	return e.ID.String() < other.ID.String()
}

// WaitlistCursor is the keyset position of an entry in queue order.
type WaitlistCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Cursor returns the position of e in queue order.
func (e WaitlistEntry) Cursor() WaitlistCursor {
	return WaitlistCursor{CreatedAt: e.CreatedAt, ID: e.ID}
}
