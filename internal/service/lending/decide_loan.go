package lending

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
	"github.com/heartmarshall/mangalend-backend/internal/service/notification"
)

// DecideLoan approves or rejects a PENDING loan and notifies the requester.
// The status change is a compare-and-swap, so of two concurrent decisions
// only one applies; the other fails with domain.ErrInvalidTransition.
func (s *Service) DecideLoan(ctx context.Context, input DecideLoanInput) (*domain.Loan, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireAdmin(ctx, input.AdminID); err != nil {
		return nil, err
	}
	if !input.Decision.IsDecision() {
		return nil, fmt.Errorf("decision %q: %w", input.Decision, domain.ErrInvalidTransition)
	}

	updated, from, err := s.transition(ctx, input.LoanID, input.Decision, nil)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "loan decided",
		slog.String("loan_id", updated.ID.String()),
		slog.String("from", string(from)),
		slog.String("to", string(updated.Status)),
		slog.String("admin_id", input.AdminID.String()),
	)

	post := afterCommit(ctx)
	item := s.noticeItem(post, updated.ItemID)

	var (
		event     notification.Event
		eventType string
	)
	if updated.Status == domain.LoanStatusApproved {
		event = notification.LoanApproved{Loan: *updated, Item: item, AdminID: input.AdminID}
		eventType = EventLoanApproved
	} else {
		event = notification.LoanRejected{Loan: *updated, Item: item, AdminID: input.AdminID}
		eventType = EventLoanRejected
	}
	s.deliver(post, event)
	s.publish(post, eventType, loanPayload(updated, input.AdminID))

	return updated, nil
}

// transition moves a loan to target in a transaction. The current status is
// read and swapped in the same transaction; then, if given, inTx runs
// with the updated loan before commit.
func (s *Service) transition(
	ctx context.Context,
	loanID uuid.UUID,
	target domain.LoanStatus,
	inTx func(ctx context.Context, l *domain.Loan) error,
) (*domain.Loan, domain.LoanStatus, error) {
	var (
		updated *domain.Loan
		from    domain.LoanStatus
	)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.loans.GetByID(ctx, loanID)
		if err != nil {
			return fmt.Errorf("get loan: %w", err)
		}
		from = current.Status

		// Validate against the table before touching the row.
		if err := current.Transition(target, s.now()); err != nil {
			return err
		}

		updated, err = s.loans.UpdateStatus(ctx, loanID, from, target, s.now())
		if err != nil {
			return fmt.Errorf("update loan status: %w", err)
		}

		if inTx != nil {
			return inTx(ctx, updated)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.metrics.LoanTransition(from, target)
	return updated, from, nil
}
