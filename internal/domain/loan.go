package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultLoanPeriod is the time between a loan request and its due date.
const DefaultLoanPeriod = 7 * 24 * time.Hour

// Loan is one request by a user to borrow an item.
// ItemID and UserID never change after creation; Status changes only via Transition.
type Loan struct {
	ID        uuid.UUID
	ItemID    uuid.UUID
	UserID    uuid.UUID
	Status    LoanStatus
	DueDate   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	// Filled by list queries only.
	ItemTitle string
	UserName  string
}

// NewLoan builds a PENDING loan created at now and due after period.
func NewLoan(itemID, userID uuid.UUID, now time.Time, period time.Duration) Loan {
	return Loan{
		ID:        uuid.New(),
		ItemID:    itemID,
		UserID:    userID,
		Status:    LoanStatusPending,
		DueDate:   now.Add(period),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Returned reports whether the item has been handed back.
func (l Loan) Returned() bool {
	return l.Status == LoanStatusReturned
}

// IsActive reports whether the loan blocks other loans of the same item.
func (l Loan) IsActive() bool {
	return l.Status.IsActive()
}

// Transition moves the loan to target if the lifecycle allows it.
func (l *Loan) Transition(target LoanStatus, now time.Time) error {
	if !l.Status.CanTransitionTo(target) {
		return fmt.Errorf("loan %s: %s -> %s: %w", l.ID, l.Status, target, ErrInvalidTransition)
	}
	l.Status = target
	l.UpdatedAt = now
	return nil
}

// LoanFilter narrows loan listings. Nil fields mean no restriction.
type LoanFilter struct {
	UserID *uuid.UUID
	ItemID *uuid.UUID
	Status *LoanStatus
	Limit  int
	Offset int
}
