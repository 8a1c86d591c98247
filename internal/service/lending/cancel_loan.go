package lending

import (
	"context"
	"fmt"
	"log/slog"
)

// CancelLoan deletes a loan whatever its status. It bypasses the transition
// table, cannot be undone and sends no notification.
func (s *Service) CancelLoan(ctx context.Context, input CancelLoanInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireAdmin(ctx, input.AdminID); err != nil {
		return err
	}

	deleted, err := s.loans.Delete(ctx, input.LoanID)
	if err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}

	s.log.WarnContext(ctx, "loan deleted",
		slog.String("loan_id", deleted.ID.String()),
		slog.String("item_id", deleted.ItemID.String()),
		slog.String("user_id", deleted.UserID.String()),
		slog.String("status", string(deleted.Status)),
		slog.String("admin_id", input.AdminID.String()),
	)

	s.publish(afterCommit(ctx), EventLoanCancelled, loanPayload(deleted, input.AdminID))

	return nil
}
