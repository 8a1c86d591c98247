package lending

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
	"github.com/heartmarshall/mangalend-backend/internal/service/notification"
)

// ReturnLoan confirms the physical return of an APPROVED loan. The RETURNED
// transition and the waitlist drain commit together, so the drain runs
// exactly once per return. After commit the borrower gets an
// acknowledgment and every drained user, in queue order, an ItemAvailable
// notification. Delivery failures are retried per recipient and never undo
// the return.
func (s *Service) ReturnLoan(ctx context.Context, input ReturnLoanInput) (*domain.Loan, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.requireAdmin(ctx, input.AdminID); err != nil {
		return nil, err
	}

	var drained []uuid.UUID
	returned, _, err := s.transition(ctx, input.LoanID, domain.LoanStatusReturned,
		func(ctx context.Context, l *domain.Loan) error {
			users, err := s.waitlist.Drain(ctx, l.ItemID)
			if err != nil {
				return fmt.Errorf("drain waitlist: %w", err)
			}
			drained = users
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	s.metrics.WaitlistDrained(len(drained))
	s.log.InfoContext(ctx, "loan returned",
		slog.String("loan_id", returned.ID.String()),
		slog.String("item_id", returned.ItemID.String()),
		slog.String("admin_id", input.AdminID.String()),
		slog.Int("waitlist_drained", len(drained)),
	)

	post := afterCommit(ctx)
	item := s.noticeItem(post, returned.ItemID)

	s.deliver(post, notification.LoanReturned{Loan: *returned, Item: item, AdminID: input.AdminID})
	if len(drained) > 0 {
		s.deliver(post, notification.ItemAvailable{Item: item, AdminID: input.AdminID, Users: drained})
	}

	s.publish(post, EventLoanReturned, loanPayload(returned, input.AdminID))
	s.publish(post, EventItemAvailable, map[string]any{
		"item_id":  returned.ItemID.String(),
		"notified": len(drained),
	})

	return returned, nil
}
