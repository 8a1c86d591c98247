package waitlist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

// Drain returns the users waiting for the item at this instant, in queue
// order. Under domain.DrainRetire the drained entries are removed in the
// same statement; under domain.DrainRetain they stay queued.
//
// Callers run Drain inside the transaction that applies the RETURNED
// transition so it happens exactly once per return.
func (s *Service) Drain(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	var (
		entries []domain.WaitlistEntry
		err     error
	)
	switch s.policy {
	case domain.DrainRetain:
		entries, err = s.entries.ListAll(ctx, itemID)
	default:
		entries, err = s.entries.DeleteAll(ctx, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("drain waitlist: %w", err)
	}

	users := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		users[i] = e.UserID
	}

	s.log.InfoContext(ctx, "waitlist drained",
		slog.String("item_id", itemID.String()),
		slog.String("policy", string(s.policy)),
		slog.Int("users", len(users)),
	)

	return users, nil
}
