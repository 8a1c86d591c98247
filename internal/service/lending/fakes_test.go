package lending

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

// ---------------------------------------------------------------------------
// Transactions: undo log carried in the context.
// ---------------------------------------------------------------------------

type undoKey struct{}

type undoLog struct {
	mu    sync.Mutex
	steps []func()
}

func (u *undoLog) add(step func()) {
	u.mu.Lock()
	u.steps = append(u.steps, step)
	u.mu.Unlock()
}

func recordUndo(ctx context.Context, step func()) {
	if u, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		u.add(step)
	}
}

type fakeTx struct{}

func (fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		return fn(ctx)
	}
	u := &undoLog{}
	if err := fn(context.WithValue(ctx, undoKey{}, u)); err != nil {
		for i := len(u.steps) - 1; i >= 0; i-- {
			u.steps[i]()
		}
		return err
	}
	return nil
}

// ---------------------------------------------------------------------------
// Loans: enforces one active loan per item and compare-and-swap updates.
// ---------------------------------------------------------------------------

type fakeLoanStore struct {
	mu    sync.Mutex
	loans map[uuid.UUID]domain.Loan

	// violations counts moments when an item had more than one active loan.
	violations int
}

var _ loanRepo = (*fakeLoanStore)(nil)

func newFakeLoanStore(seed ...domain.Loan) *fakeLoanStore {
	s := &fakeLoanStore{loans: map[uuid.UUID]domain.Loan{}}
	for _, l := range seed {
		s.loans[l.ID] = l
	}
	return s
}

func (s *fakeLoanStore) activeLocked(itemID uuid.UUID) []domain.Loan {
	var out []domain.Loan
	for _, l := range s.loans {
		if l.ItemID == itemID && l.Status.IsActive() {
			out = append(out, l)
		}
	}
	return out
}

func (s *fakeLoanStore) get(id uuid.UUID) (domain.Loan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	return l, ok
}

func (s *fakeLoanStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loans)
}

func (s *fakeLoanStore) activeCount(itemID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeLocked(itemID))
}

func (s *fakeLoanStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return nil, fmt.Errorf("loan %s: %w", id, domain.ErrNotFound)
	}
	return &l, nil
}

func (s *fakeLoanStore) HasActive(_ context.Context, itemID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeLocked(itemID)) > 0, nil
}

func (s *fakeLoanStore) GetActiveByItem(_ context.Context, itemID uuid.UUID) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.activeLocked(itemID)
	if len(active) == 0 {
		return nil, domain.ErrNotFound
	}
	return &active[0], nil
}

func (s *fakeLoanStore) List(_ context.Context, f domain.LoanFilter) ([]domain.Loan, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Loan
	for _, l := range s.loans {
		if f.UserID != nil && l.UserID != *f.UserID {
			continue
		}
		if f.ItemID != nil && l.ItemID != *f.ItemID {
			continue
		}
		if f.Status != nil && l.Status != *f.Status {
			continue
		}
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b domain.Loan) int { return b.CreatedAt.Compare(a.CreatedAt) })
	total := len(out)
	if f.Offset < len(out) {
		out = out[f.Offset:]
	} else {
		out = nil
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (s *fakeLoanStore) ListApprovedDueBetween(_ context.Context, from, to time.Time) ([]domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Loan
	for _, l := range s.loans {
		if l.Status == domain.LoanStatusApproved && !l.DueDate.Before(from) && l.DueDate.Before(to) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeLoanStore) Create(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.activeLocked(l.ItemID)) > 0 {
		return nil, fmt.Errorf("item %s: %w", l.ItemID, domain.ErrActiveLoanExists)
	}
	s.loans[l.ID] = *l
	if len(s.activeLocked(l.ItemID)) > 1 {
		s.violations++
	}
	id := l.ID
	recordUndo(ctx, func() {
		s.mu.Lock()
		delete(s.loans, id)
		s.mu.Unlock()
	})
	out := *l
	return &out, nil
}

func (s *fakeLoanStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.LoanStatus, now time.Time) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if l.Status != from {
		return nil, fmt.Errorf("loan %s is %s: %w", id, l.Status, domain.ErrInvalidTransition)
	}
	prev := l
	l.Status = to
	l.UpdatedAt = now
	s.loans[id] = l
	recordUndo(ctx, func() {
		s.mu.Lock()
		s.loans[id] = prev
		s.mu.Unlock()
	})
	return &l, nil
}

func (s *fakeLoanStore) Delete(_ context.Context, id uuid.UUID) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(s.loans, id)
	return &l, nil
}

// ---------------------------------------------------------------------------
// Items, users, authorization
// ---------------------------------------------------------------------------

type fakeItems struct {
	items map[uuid.UUID]domain.Item
}

func (f *fakeItems) GetByID(_ context.Context, id uuid.UUID) (*domain.Item, error) {
	it, ok := f.items[id]
	if !ok || it.Deleted {
		return nil, domain.ErrNotFound
	}
	return &it, nil
}

func (f *fakeItems) GetByIDWithDeleted(_ context.Context, id uuid.UUID) (*domain.Item, error) {
	it, ok := f.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &it, nil
}

type fakeUsers struct {
	users map[uuid.UUID]domain.User
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) FindAdmin(_ context.Context) (*domain.User, error) {
	var admin *domain.User
	for _, u := range f.users {
		if u.IsAdmin() && (admin == nil || u.CreatedAt.Before(admin.CreatedAt)) {
			admin = &u
		}
	}
	if admin == nil {
		return nil, domain.ErrNoAdministrator
	}
	return admin, nil
}

// IsAdmin lets fakeUsers act as the authorizer too.
func (f *fakeUsers) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	u, err := f.GetByID(ctx, userID)
	if err != nil {
		return false, nil
	}
	return u.IsAdmin(), nil
}

// ---------------------------------------------------------------------------
// Waitlist, notification stores, publisher
// ---------------------------------------------------------------------------

type mockWaitlist struct {
	DrainFunc func(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error)
	CountFunc func(ctx context.Context, itemID uuid.UUID) (int, error)

	mu         sync.Mutex
	drainCalls []uuid.UUID
}

func (m *mockWaitlist) Drain(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	m.drainCalls = append(m.drainCalls, itemID)
	m.mu.Unlock()
	if m.DrainFunc != nil {
		return m.DrainFunc(ctx, itemID)
	}
	return nil, nil
}

func (m *mockWaitlist) Count(ctx context.Context, itemID uuid.UUID) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, itemID)
	}
	return 0, nil
}

// fakeNoteStore backs a real notification.Dispatcher. Creates inside a
// transaction are undone on rollback.
type fakeNoteStore struct {
	// CreateFunc, when set, runs before the notification is stored and may fail it.
	CreateFunc func(n *domain.Notification) error

	mu    sync.Mutex
	notes []domain.Notification
}

func (f *fakeNoteStore) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if f.CreateFunc != nil {
		if err := f.CreateFunc(n); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	f.notes = append(f.notes, *n)
	f.mu.Unlock()
	id := n.ID
	recordUndo(ctx, func() {
		f.mu.Lock()
		f.notes = slices.DeleteFunc(f.notes, func(x domain.Notification) bool { return x.ID == id })
		f.mu.Unlock()
	})
	out := *n
	return &out, nil
}

func (f *fakeNoteStore) all() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.notes)
}

func (f *fakeNoteStore) ofKind(kind domain.NotificationKind) []domain.Notification {
	var out []domain.Notification
	for _, n := range f.all() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type fakeFaultStore struct {
	mu     sync.Mutex
	faults []domain.DeliveryFault
}

func (f *fakeFaultStore) Create(_ context.Context, fault *domain.DeliveryFault) error {
	f.mu.Lock()
	f.faults = append(f.faults, *fault)
	f.mu.Unlock()
	return nil
}

func (f *fakeFaultStore) ListUnresolved(context.Context, int) ([]domain.DeliveryFault, error) {
	return nil, nil
}

func (f *fakeFaultStore) Resolve(context.Context, uuid.UUID, time.Time) error { return nil }

func (f *fakeFaultStore) RecordAttempt(context.Context, uuid.UUID, error) error { return nil }

func (f *fakeFaultStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.faults)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ map[string]any) error {
	p.mu.Lock()
	p.events = append(p.events, eventType)
	p.mu.Unlock()
	return nil
}
