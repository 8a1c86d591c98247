package lending

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/heartmarshall/mangalend-backend/internal/service/notification"
)

// ReminderWindow is how far ahead SendDueReminders looks for due dates.
const ReminderWindow = 24 * time.Hour

// SendDueReminders notifies every borrower whose APPROVED loan falls due
// within the next ReminderWindow. It returns the number of reminders stored.
func (s *Service) SendDueReminders(ctx context.Context) (int, error) {
	now := s.now()

	loans, err := s.loans.ListApprovedDueBetween(ctx, now, now.Add(ReminderWindow))
	if err != nil {
		return 0, fmt.Errorf("list due loans: %w", err)
	}
	if len(loans) == 0 {
		return 0, nil
	}

	admin, err := s.users.FindAdmin(ctx)
	if err != nil {
		return 0, fmt.Errorf("resolve administrator: %w", err)
	}

	sent := 0
	for _, l := range loans {
		item := s.noticeItem(ctx, l.ItemID)
		report := s.notify.Deliver(ctx, notification.LoanDueSoon{Loan: l, Item: item, AdminID: admin.ID})
		sent += len(report.Delivered)
	}

	s.log.InfoContext(ctx, "due reminders sent",
		slog.Int("loans", len(loans)),
		slog.Int("sent", sent),
	)
	return sent, nil
}
