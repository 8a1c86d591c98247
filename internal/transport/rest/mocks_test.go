package rest

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
	"github.com/heartmarshall/mangalend-backend/internal/service/lending"
	"github.com/heartmarshall/mangalend-backend/internal/service/notification"
	"github.com/heartmarshall/mangalend-backend/internal/service/waitlist"
)

// ---------------------------------------------------------------------------
// Manual mocks (moq-style)
// ---------------------------------------------------------------------------

type mockLoanService struct {
	RequestLoanFunc      func(ctx context.Context, input lending.RequestLoanInput) (*domain.Loan, error)
	DecideLoanFunc       func(ctx context.Context, input lending.DecideLoanInput) (*domain.Loan, error)
	ReturnLoanFunc       func(ctx context.Context, input lending.ReturnLoanInput) (*domain.Loan, error)
	CancelLoanFunc       func(ctx context.Context, input lending.CancelLoanInput) error
	ListLoansFunc        func(ctx context.Context, input lending.ListLoansInput) ([]domain.Loan, int, error)
	ListUserLoansFunc    func(ctx context.Context, input lending.ListUserLoansInput) ([]domain.Loan, int, error)
	ItemAvailabilityFunc func(ctx context.Context, itemID uuid.UUID) (*domain.Availability, error)
}

func (m *mockLoanService) RequestLoan(ctx context.Context, input lending.RequestLoanInput) (*domain.Loan, error) {
	if m.RequestLoanFunc != nil {
		return m.RequestLoanFunc(ctx, input)
	}
	return nil, errors.New("RequestLoan not mocked")
}

func (m *mockLoanService) DecideLoan(ctx context.Context, input lending.DecideLoanInput) (*domain.Loan, error) {
	if m.DecideLoanFunc != nil {
		return m.DecideLoanFunc(ctx, input)
	}
	return nil, errors.New("DecideLoan not mocked")
}

func (m *mockLoanService) ReturnLoan(ctx context.Context, input lending.ReturnLoanInput) (*domain.Loan, error) {
	if m.ReturnLoanFunc != nil {
		return m.ReturnLoanFunc(ctx, input)
	}
	return nil, errors.New("ReturnLoan not mocked")
}

func (m *mockLoanService) CancelLoan(ctx context.Context, input lending.CancelLoanInput) error {
	if m.CancelLoanFunc != nil {
		return m.CancelLoanFunc(ctx, input)
	}
	return errors.New("CancelLoan not mocked")
}

func (m *mockLoanService) ListLoans(ctx context.Context, input lending.ListLoansInput) ([]domain.Loan, int, error) {
	if m.ListLoansFunc != nil {
		return m.ListLoansFunc(ctx, input)
	}
	return nil, 0, nil
}

func (m *mockLoanService) ListUserLoans(ctx context.Context, input lending.ListUserLoansInput) ([]domain.Loan, int, error) {
	if m.ListUserLoansFunc != nil {
		return m.ListUserLoansFunc(ctx, input)
	}
	return nil, 0, nil
}

func (m *mockLoanService) ItemAvailability(ctx context.Context, itemID uuid.UUID) (*domain.Availability, error) {
	if m.ItemAvailabilityFunc != nil {
		return m.ItemAvailabilityFunc(ctx, itemID)
	}
	return &domain.Availability{ItemID: itemID, Available: true}, nil
}

type mockWaitlistService struct {
	JoinFunc  func(ctx context.Context, input waitlist.JoinInput) (*domain.WaitlistEntry, error)
	LeaveFunc func(ctx context.Context, input waitlist.LeaveInput) error
	ListFunc  func(ctx context.Context, itemID uuid.UUID) ([]domain.WaitlistEntry, error)
}

func (m *mockWaitlistService) Join(ctx context.Context, input waitlist.JoinInput) (*domain.WaitlistEntry, error) {
	if m.JoinFunc != nil {
		return m.JoinFunc(ctx, input)
	}
	return &domain.WaitlistEntry{ID: uuid.New(), ItemID: input.ItemID, UserID: input.UserID}, nil
}

func (m *mockWaitlistService) Leave(ctx context.Context, input waitlist.LeaveInput) error {
	if m.LeaveFunc != nil {
		return m.LeaveFunc(ctx, input)
	}
	return nil
}

func (m *mockWaitlistService) List(ctx context.Context, itemID uuid.UUID) ([]domain.WaitlistEntry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, itemID)
	}
	return nil, nil
}

type mockAdminChecker struct {
	admins map[uuid.UUID]bool
}

func (m *mockAdminChecker) IsAdmin(_ context.Context, userID uuid.UUID) (bool, error) {
	return m.admins[userID], nil
}

type mockInboxService struct {
	InboxFunc    func(ctx context.Context, input notification.ListInput) ([]domain.Notification, int, error)
	SentFunc     func(ctx context.Context, input notification.ListInput) ([]domain.Notification, int, error)
	MarkReadFunc func(ctx context.Context, input notification.ItemInput) error
	DeleteFunc   func(ctx context.Context, input notification.ItemInput) error
}

func (m *mockInboxService) Inbox(ctx context.Context, input notification.ListInput) ([]domain.Notification, int, error) {
	if m.InboxFunc != nil {
		return m.InboxFunc(ctx, input)
	}
	return nil, 0, nil
}

func (m *mockInboxService) Sent(ctx context.Context, input notification.ListInput) ([]domain.Notification, int, error) {
	if m.SentFunc != nil {
		return m.SentFunc(ctx, input)
	}
	return nil, 0, nil
}

func (m *mockInboxService) MarkRead(ctx context.Context, input notification.ItemInput) error {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, input)
	}
	return nil
}

func (m *mockInboxService) Delete(ctx context.Context, input notification.ItemInput) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, input)
	}
	return nil
}

// staticTokens maps bearer tokens to user IDs.
type staticTokens map[string]uuid.UUID

func (s staticTokens) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := s[token]
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return id, nil
}
