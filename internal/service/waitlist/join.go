package waitlist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

// Join appends the user to the item's waitlist. The join time defines the
// user's position. A second join for the same pair fails with
// domain.ErrAlreadyWaiting and leaves the queue untouched.
func (s *Service) Join(ctx context.Context, input JoinInput) (*domain.WaitlistEntry, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.items.GetByID(ctx, input.ItemID); err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	entry, err := s.entries.Create(ctx, &domain.WaitlistEntry{
		ID:        uuid.New(),
		ItemID:    input.ItemID,
		UserID:    input.UserID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("create waitlist entry: %w", err)
	}

	s.log.InfoContext(ctx, "waitlist joined",
		slog.String("item_id", input.ItemID.String()),
		slog.String("user_id", input.UserID.String()),
		slog.String("entry_id", entry.ID.String()),
	)

	return entry, nil
}

// Leave removes the user from the item's waitlist.
// Returns domain.ErrNotFound if the user is not waiting.
func (s *Service) Leave(ctx context.Context, input LeaveInput) error {
	if err := input.Validate(); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.entries.Delete(ctx, input.ItemID, input.UserID); err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}

	s.log.InfoContext(ctx, "waitlist left",
		slog.String("item_id", input.ItemID.String()),
		slog.String("user_id", input.UserID.String()),
	)

	return nil
}
