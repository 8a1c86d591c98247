// Package lending is the loan lifecycle engine: it requests, decides, returns
// and cancels loans, keeps the one-active-loan-per-item rule, drains the
// waitlist on return and fans out notifications.
package lending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/config"
	"github.com/heartmarshall/mangalend-backend/internal/domain"
	"github.com/heartmarshall/mangalend-backend/internal/metrics"
	"github.com/heartmarshall/mangalend-backend/internal/service/notification"
)

// Routing keys of lifecycle events.
const (
	EventLoanRequested = "loan.requested"
	EventLoanApproved  = "loan.approved"
	EventLoanRejected  = "loan.rejected"
	EventLoanReturned  = "loan.returned"
	EventLoanCancelled = "loan.cancelled"
	EventItemAvailable = "item.available"
)

type loanRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	HasActive(ctx context.Context, itemID uuid.UUID) (bool, error)
	GetActiveByItem(ctx context.Context, itemID uuid.UUID) (*domain.Loan, error)
	List(ctx context.Context, f domain.LoanFilter) ([]domain.Loan, int, error)
	ListApprovedDueBetween(ctx context.Context, from, to time.Time) ([]domain.Loan, error)
	Create(ctx context.Context, l *domain.Loan) (*domain.Loan, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.LoanStatus, now time.Time) (*domain.Loan, error)
	Delete(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
}

type itemRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	GetByIDWithDeleted(ctx context.Context, id uuid.UUID) (*domain.Item, error)
}

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindAdmin(ctx context.Context) (*domain.User, error)
}

type authorizer interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

type waitlistQueue interface {
	Drain(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error)
	Count(ctx context.Context, itemID uuid.UUID) (int, error)
}

type dispatcher interface {
	Dispatch(ctx context.Context, event notification.Event) ([]domain.Notification, error)
	Deliver(ctx context.Context, event notification.Event) notification.DeliveryReport
}

type eventPublisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]any) error
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the lending facade.
type Service struct {
	loans    loanRepo
	items    itemRepo
	users    userRepo
	authz    authorizer
	waitlist waitlistQueue
	notify   dispatcher
	events   eventPublisher
	tx       txManager
	metrics  *metrics.Metrics
	cfg      config.LendingConfig
	now      func() time.Time
	log      *slog.Logger
}

// NewService creates a new lending Service. m may be nil.
func NewService(
	log *slog.Logger,
	loans loanRepo,
	items itemRepo,
	users userRepo,
	authz authorizer,
	waitlist waitlistQueue,
	notify dispatcher,
	events eventPublisher,
	tx txManager,
	m *metrics.Metrics,
	cfg config.LendingConfig,
) *Service {
	if cfg.LoanPeriod <= 0 {
		cfg.LoanPeriod = domain.DefaultLoanPeriod
	}
	return &Service{
		loans:    loans,
		items:    items,
		users:    users,
		authz:    authz,
		waitlist: waitlist,
		notify:   notify,
		events:   events,
		tx:       tx,
		metrics:  m,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.With("service", "lending"),
	}
}

// withTimeout bounds one facade operation by the store timeout.
func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func (s *Service) requireAdmin(ctx context.Context, userID uuid.UUID) error {
	ok, err := s.authz.IsAdmin(ctx, userID)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if !ok {
		return fmt.Errorf("user %s is not an administrator: %w", userID, domain.ErrForbidden)
	}
	return nil
}

// noticeItem returns the item for notification templates. Loans may
// outlive their item's soft deletion, so deleted items are accepted.
func (s *Service) noticeItem(ctx context.Context, itemID uuid.UUID) domain.Item {
	item, err := s.items.GetByIDWithDeleted(ctx, itemID)
	if err != nil {
		s.log.WarnContext(ctx, "item lookup for notification failed",
			slog.String("item_id", itemID.String()),
			slog.String("error", err.Error()),
		)
		return domain.Item{ID: itemID, Title: "your item"}
	}
	return *item
}

// afterCommit returns a context for work that must outlive the request
// deadline: post-commit deliveries and event publishing.
func afterCommit(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (s *Service) deliver(ctx context.Context, event notification.Event) {
	report := s.notify.Deliver(ctx, event)
	if len(report.Faults) > 0 {
		s.log.WarnContext(ctx, "notifications recorded as faults",
			slog.String("kind", string(event.Kind())),
			slog.Int("delivered", len(report.Delivered)),
			slog.Int("faults", len(report.Faults)),
		)
	}
}

func (s *Service) publish(ctx context.Context, eventType string, payload map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.log.WarnContext(ctx, "publish lifecycle event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

func loanPayload(l *domain.Loan, actorID uuid.UUID) map[string]any {
	return map[string]any{
		"loan_id":  l.ID.String(),
		"item_id":  l.ItemID.String(),
		"user_id":  l.UserID.String(),
		"status":   string(l.Status),
		"due_date": l.DueDate.UTC().Format(time.RFC3339),
		"actor_id": actorID.String(),
	}
}

func requestResult(err error) string {
	switch {
	case err == nil:
		return metrics.ResultCreated
	case errors.Is(err, domain.ErrActiveLoanExists):
		return metrics.ResultActiveLoan
	case errors.Is(err, domain.ErrNoAdministrator):
		return metrics.ResultNoAdmin
	case errors.Is(err, domain.ErrNotFound):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}
