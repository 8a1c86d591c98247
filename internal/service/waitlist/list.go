package waitlist

import (
	"context"
	"fmt"
	"iter"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

// ListOrdered returns the item's waitlist in queue order: earliest join first,
// ties broken by entry ID. The sequence is lazy, reading one keyset page at a
// time, and every range over it starts from the head of the queue.
// A store error is yielded once and ends the sequence. The timeout bounds
// each page read.
func (s *Service) ListOrdered(ctx context.Context, itemID uuid.UUID) iter.Seq2[domain.WaitlistEntry, error] {
	return func(yield func(domain.WaitlistEntry, error) bool) {
		var after *domain.WaitlistCursor
		for {
			page, err := s.listPage(ctx, itemID, after)
			if err != nil {
				yield(domain.WaitlistEntry{}, fmt.Errorf("list waitlist page: %w", err))
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
			cursor := page[len(page)-1].Cursor()
			after = &cursor
		}
	}
}

// List collects the item's waitlist in queue order.
// Returns domain.ErrNotFound for an unknown item.
func (s *Service) List(ctx context.Context, itemID uuid.UUID) ([]domain.WaitlistEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	entries := make([]domain.WaitlistEntry, 0)
	for e, err := range s.ListOrdered(ctx, itemID) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Count returns how many users wait for the item.
func (s *Service) Count(ctx context.Context, itemID uuid.UUID) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	n, err := s.entries.Count(ctx, itemID)
	if err != nil {
		return 0, fmt.Errorf("count waitlist: %w", err)
	}
	return n, nil
}

func (s *Service) listPage(ctx context.Context, itemID uuid.UUID, after *domain.WaitlistCursor) ([]domain.WaitlistEntry, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.entries.ListPage(ctx, itemID, after, s.pageSize)
}
