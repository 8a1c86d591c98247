// Package waitlist implements the per-item waiting line: join, leave,
// ordered listing and drain on availability.
package waitlist

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

// DefaultPageSize is the number of entries ListOrdered fetches per round trip.
const DefaultPageSize = 100

type entryRepo interface {
	Create(ctx context.Context, e *domain.WaitlistEntry) (*domain.WaitlistEntry, error)
	Delete(ctx context.Context, itemID, userID uuid.UUID) error
	ListPage(ctx context.Context, itemID uuid.UUID, after *domain.WaitlistCursor, limit int) ([]domain.WaitlistEntry, error)
	ListAll(ctx context.Context, itemID uuid.UUID) ([]domain.WaitlistEntry, error)
	DeleteAll(ctx context.Context, itemID uuid.UUID) ([]domain.WaitlistEntry, error)
	Count(ctx context.Context, itemID uuid.UUID) (int, error)
}

type itemRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error)
}

// Service provides waitlist operations.
type Service struct {
	entries  entryRepo
	items    itemRepo
	policy   domain.DrainPolicy
	pageSize int
	timeout  time.Duration
	log      *slog.Logger
}

// NewService creates a new Waitlist service. An invalid policy falls back to
// domain.DrainRetire. A positive timeout bounds every operation.
func NewService(
	log *slog.Logger,
	entries entryRepo,
	items itemRepo,
	policy domain.DrainPolicy,
	timeout time.Duration,
) *Service {
	if !policy.IsValid() {
		policy = domain.DrainRetire
	}
	return &Service{
		entries:  entries,
		items:    items,
		policy:   policy,
		pageSize: DefaultPageSize,
		timeout:  timeout,
		log:      log.With("service", "waitlist"),
	}
}

// Policy returns the configured drain policy.
func (s *Service) Policy() domain.DrainPolicy {
	return s.policy
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
