package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

// Event is a lifecycle or availability event that produces notifications.
type Event interface {
	Kind() domain.NotificationKind
	build(now time.Time) []domain.Notification
}

// LoanRequested tells the administrator that a user asked for an item.
type LoanRequested struct {
	Loan      domain.Loan
	Item      domain.Item
	Requester domain.User
	AdminID   uuid.UUID
}

// LoanApproved tells the requester their loan was approved.
type LoanApproved struct {
	Loan    domain.Loan
	Item    domain.Item
	AdminID uuid.UUID
}

// LoanRejected tells the requester their loan was rejected.
type LoanRejected struct {
	Loan    domain.Loan
	Item    domain.Item
	AdminID uuid.UUID
}

// LoanReturned acknowledges a return to the borrower.
type LoanReturned struct {
	Loan    domain.Loan
	Item    domain.Item
	AdminID uuid.UUID
}

// ItemAvailable tells every drained user, in order, that the item is free.
type ItemAvailable struct {
	Item    domain.Item
	AdminID uuid.UUID
	Users   []uuid.UUID
}

// LoanDueSoon reminds a borrower of an approaching due date.
type LoanDueSoon struct {
	Loan    domain.Loan
	Item    domain.Item
	AdminID uuid.UUID
}

func (LoanRequested) Kind() domain.NotificationKind { return domain.NotificationLoanRequested }
func (LoanApproved) Kind() domain.NotificationKind  { return domain.NotificationLoanApproved }
func (LoanRejected) Kind() domain.NotificationKind  { return domain.NotificationLoanRejected }
func (LoanReturned) Kind() domain.NotificationKind  { return domain.NotificationLoanReturned }
func (ItemAvailable) Kind() domain.NotificationKind { return domain.NotificationItemAvailable }
func (LoanDueSoon) Kind() domain.NotificationKind   { return domain.NotificationLoanDueSoon }

func (e LoanRequested) build(now time.Time) []domain.Notification {
	content := fmt.Sprintf("%s requested a loan of %q.", e.Requester.Name, e.Item.Title)
	return []domain.Notification{newNotification(e.Kind(), e.Requester.ID, e.AdminID, e.Item.ID, content, now)}
}

func (e LoanApproved) build(now time.Time) []domain.Notification {
	content := fmt.Sprintf("Your loan of %q was approved. You can pick it up now.", e.Item.Title)
	return []domain.Notification{newNotification(e.Kind(), e.AdminID, e.Loan.UserID, e.Item.ID, content, now)}
}

func (e LoanRejected) build(now time.Time) []domain.Notification {
	content := fmt.Sprintf("Unfortunately, your loan request for %q was rejected.", e.Item.Title)
	return []domain.Notification{newNotification(e.Kind(), e.AdminID, e.Loan.UserID, e.Item.ID, content, now)}
}

func (e LoanReturned) build(now time.Time) []domain.Notification {
	content := fmt.Sprintf("Your return of %q has been recorded. Thank you!", e.Item.Title)
	return []domain.Notification{newNotification(e.Kind(), e.AdminID, e.Loan.UserID, e.Item.ID, content, now)}
}

func (e ItemAvailable) build(now time.Time) []domain.Notification {
	content := fmt.Sprintf("%q, which you were waiting for, is available! Request a loan before someone else does.", e.Item.Title)
	out := make([]domain.Notification, len(e.Users))
	for i, userID := range e.Users {
		out[i] = newNotification(e.Kind(), e.AdminID, userID, e.Item.ID, content, now)
	}
	return out
}

func (e LoanDueSoon) build(now time.Time) []domain.Notification {
	content := fmt.Sprintf("Your loan of %q is due on %s.", e.Item.Title, e.Loan.DueDate.UTC().Format("2006-01-02 15:04 MST"))
	return []domain.Notification{newNotification(e.Kind(), e.AdminID, e.Loan.UserID, e.Item.ID, content, now)}
}

func newNotification(kind domain.NotificationKind, sender, receiver, itemID uuid.UUID, content string, now time.Time) domain.Notification {
	return domain.Notification{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		ItemID:     &itemID,
		Kind:       kind,
		Content:    content,
		CreatedAt:  now,
	}
}
