package waitlist

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

// fakeEntryRepo is an in-memory entryRepo with the store's uniqueness and
// ordering rules.
type fakeEntryRepo struct {
	mu        sync.Mutex
	entries   []domain.WaitlistEntry
	pageCalls int
}

var _ entryRepo = (*fakeEntryRepo)(nil)

func (f *fakeEntryRepo) sorted(itemID uuid.UUID) []domain.WaitlistEntry {
	out := make([]domain.WaitlistEntry, 0)
	for _, e := range f.entries {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b domain.WaitlistEntry) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return out
}

func (f *fakeEntryRepo) Create(_ context.Context, e *domain.WaitlistEntry) (*domain.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.entries {
		if existing.ItemID == e.ItemID && existing.UserID == e.UserID {
			return nil, fmt.Errorf("fake: %w", domain.ErrAlreadyWaiting)
		}
	}
	f.entries = append(f.entries, *e)
	return e, nil
}

func (f *fakeEntryRepo) Delete(_ context.Context, itemID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.entries {
		if e.ItemID == itemID && e.UserID == userID {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeEntryRepo) ListPage(_ context.Context, itemID uuid.UUID, after *domain.WaitlistCursor, limit int) ([]domain.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls++

	page := make([]domain.WaitlistEntry, 0, limit)
	for _, e := range f.sorted(itemID) {
		if after != nil && !(domain.WaitlistEntry{ID: after.ID, CreatedAt: after.CreatedAt}).Before(e) {
			continue
		}
		if len(page) == limit {
			break
		}
		page = append(page, e)
	}
	return page, nil
}

func (f *fakeEntryRepo) ListAll(_ context.Context, itemID uuid.UUID) ([]domain.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(itemID), nil
}

func (f *fakeEntryRepo) DeleteAll(_ context.Context, itemID uuid.UUID) ([]domain.WaitlistEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	drained := f.sorted(itemID)
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.ItemID != itemID {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	return drained, nil
}

func (f *fakeEntryRepo) Count(_ context.Context, itemID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sorted(itemID)), nil
}

type mockItemRepo struct {
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*domain.Item, error)
}

func (m *mockItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &domain.Item{ID: id, Title: "Berserk"}, nil
}
