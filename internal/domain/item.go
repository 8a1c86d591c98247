package domain

import (
	"time"

	"github.com/google/uuid"
)

// Item is one lendable catalog title (a single manga volume, one physical copy).
// Availability is not stored: an item is available when no active loan references it.
type Item struct {
	ID            uuid.UUID
	Title         string
	Author        string
	Genre         string
	Volume        int
	Deleted       bool
	TotalReadings int
	CreatedAt     time.Time
}

// Availability is the derived lending state of an item.
type Availability struct {
	ItemID       uuid.UUID
	Available    bool
	ActiveLoanID *uuid.UUID
	Waiting      int
}
