package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an addressed message produced by a lifecycle event.
type Notification struct {
	ID         uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	ItemID     *uuid.UUID
	Kind       NotificationKind
	Content    string
	Read       bool
	CreatedAt  time.Time

	// Filled by list queries only. ItemTitle is empty when ItemID is nil.
	SenderName   string
	ReceiverName string
	ItemTitle    string
}

// DeliveryFault records a notification that could not be stored after
// bounded retries. Faults are redelivered by the scheduler.
type DeliveryFault struct {
	ID         uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	ItemID     *uuid.UUID
	Kind       NotificationKind
	Content    string
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// NewDeliveryFault captures n as an undelivered notification.
func NewDeliveryFault(n Notification, attempts int, cause error, now time.Time) DeliveryFault {
	f := DeliveryFault{
		ID:         uuid.New(),
		SenderID:   n.SenderID,
		ReceiverID: n.ReceiverID,
		ItemID:     n.ItemID,
		Kind:       n.Kind,
		Content:    n.Content,
		Attempts:   attempts,
		CreatedAt:  now,
	}
	if cause != nil {
		f.LastError = cause.Error()
	}
	return f
}

// Notification rebuilds the notification this fault stands for, with a fresh ID.
func (f DeliveryFault) Notification(now time.Time) Notification {
	return Notification{
		ID:         uuid.New(),
		SenderID:   f.SenderID,
		ReceiverID: f.ReceiverID,
		ItemID:     f.ItemID,
		Kind:       f.Kind,
		Content:    f.Content,
		CreatedAt:  now,
	}
}
