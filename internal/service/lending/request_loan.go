package lending

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
	"github.com/heartmarshall/mangalend-backend/internal/service/notification"
)

// CanCreateLoan reports whether the item has no PENDING or APPROVED loan.
// Returns domain.ErrNotFound for an unknown or soft-deleted item.
func (s *Service) CanCreateLoan(ctx context.Context, itemID uuid.UUID) (bool, error) {
	_, ok, err := s.guard(ctx, itemID)
	return ok, err
}

func (s *Service) guard(ctx context.Context, itemID uuid.UUID) (*domain.Item, bool, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, false, fmt.Errorf("get item: %w", err)
	}
	active, err := s.loans.HasActive(ctx, itemID)
	if err != nil {
		return nil, false, fmt.Errorf("check active loan: %w", err)
	}
	return item, !active, nil
}

// RequestLoan creates a PENDING loan for the user and notifies the
// administrator. The guard check, the insert and the administrator
// notification commit together: if any of them fails nothing persists.
func (s *Service) RequestLoan(ctx context.Context, input RequestLoanInput) (*domain.Loan, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var created *domain.Loan
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// The partial unique index still rejects a concurrent insert that
		// passes this check.
		item, ok, err := s.guard(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("item %s: %w", input.ItemID, domain.ErrActiveLoanExists)
		}

		admin, err := s.users.FindAdmin(ctx)
		if err != nil {
			return fmt.Errorf("resolve administrator: %w", err)
		}

		requester, err := s.users.GetByID(ctx, input.UserID)
		if err != nil {
			return fmt.Errorf("get requester: %w", err)
		}

		l := domain.NewLoan(input.ItemID, input.UserID, s.now(), s.cfg.LoanPeriod)
		created, err = s.loans.Create(ctx, &l)
		if err != nil {
			return fmt.Errorf("create loan: %w", err)
		}

		if _, err := s.notify.Dispatch(ctx, notification.LoanRequested{
			Loan:      *created,
			Item:      *item,
			Requester: *requester,
			AdminID:   admin.ID,
		}); err != nil {
			return fmt.Errorf("notify administrator: %w", err)
		}
		return nil
	})

	s.metrics.LoanRequest(requestResult(err))
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "loan requested",
		slog.String("loan_id", created.ID.String()),
		slog.String("item_id", created.ItemID.String()),
		slog.String("user_id", created.UserID.String()),
		slog.Time("due_date", created.DueDate),
	)

	s.publish(afterCommit(ctx), EventLoanRequested, loanPayload(created, input.UserID))

	return created, nil
}
