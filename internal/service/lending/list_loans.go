package lending

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

// ListLoans returns loans matching the filter, newest first. Administrators only.
func (s *Service) ListLoans(ctx context.Context, input ListLoansInput) ([]domain.Loan, int, error) {
	if err := input.Validate(); err != nil {
		return nil, 0, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireAdmin(ctx, input.ActorID); err != nil {
		return nil, 0, err
	}

	loans, total, err := s.loans.List(ctx, domain.LoanFilter{
		UserID: input.UserID,
		ItemID: input.ItemID,
		Status: input.Status,
		Limit:  pageLimit(input.Limit),
		Offset: input.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list loans: %w", err)
	}
	return loans, total, nil
}

// ListUserLoans returns the user's own loans, newest first.
func (s *Service) ListUserLoans(ctx context.Context, input ListUserLoansInput) ([]domain.Loan, int, error) {
	if err := input.Validate(); err != nil {
		return nil, 0, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	loans, total, err := s.loans.List(ctx, domain.LoanFilter{
		UserID: &input.UserID,
		Limit:  pageLimit(input.Limit),
		Offset: input.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list user loans: %w", err)
	}
	return loans, total, nil
}

// ItemAvailability reports whether the item can be requested, which loan
// holds it otherwise, and how many users wait for it.
func (s *Service) ItemAvailability(ctx context.Context, itemID uuid.UUID) (*domain.Availability, error) {
	if itemID == uuid.Nil {
		return nil, domain.NewValidationError("item_id", "required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	avail := &domain.Availability{ItemID: itemID, Available: true}

	active, err := s.loans.GetActiveByItem(ctx, itemID)
	switch {
	case err == nil:
		avail.Available = false
		avail.ActiveLoanID = &active.ID
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("get active loan: %w", err)
	}

	waiting, err := s.waitlist.Count(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("count waitlist: %w", err)
	}
	avail.Waiting = waiting

	return avail, nil
}
