package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type inboxRepo interface {
	ListByReceiver(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, int, error)
	ListBySender(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Service is the read side of the notification store: inbox, sent box,
// read flags and deletion.
type Service struct {
	repo    inboxRepo
	timeout time.Duration
	log     *slog.Logger
}

// NewService creates a new notification inbox service. A positive timeout
// bounds every store call.
func NewService(log *slog.Logger, repo inboxRepo, timeout time.Duration) *Service {
	return &Service{
		repo:    repo,
		timeout: timeout,
		log:     log.With("service", "inbox"),
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ListInput holds the parameters for listing a user's notifications.
type ListInput struct {
	UserID uuid.UUID
	Limit  int
	Offset int
}

// Validate checks all fields and collects all errors.
func (i ListInput) Validate() error {
	var errs []domain.FieldError
	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.Limit < 0 {
		errs = append(errs, domain.FieldError{Field: "limit", Message: "must be non-negative"})
	}
	if i.Limit > MaxLimit {
		errs = append(errs, domain.FieldError{Field: "limit", Message: "max 200"})
	}
	if i.Offset < 0 {
		errs = append(errs, domain.FieldError{Field: "offset", Message: "must be non-negative"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

func (i ListInput) limit() int {
	if i.Limit == 0 {
		return DefaultLimit
	}
	return i.Limit
}

// ItemInput addresses one notification on behalf of a user.
type ItemInput struct {
	UserID         uuid.UUID
	NotificationID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i ItemInput) Validate() error {
	var errs []domain.FieldError
	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if i.NotificationID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "notification_id", Message: "required"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// Inbox lists notifications received by the user, newest first.
func (s *Service) Inbox(ctx context.Context, input ListInput) ([]domain.Notification, int, error) {
	if err := input.Validate(); err != nil {
		return nil, 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	items, total, err := s.repo.ListByReceiver(ctx, input.UserID, input.limit(), input.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list inbox: %w", err)
	}
	return items, total, nil
}

// Sent lists notifications sent by the user, newest first.
func (s *Service) Sent(ctx context.Context, input ListInput) ([]domain.Notification, int, error) {
	if err := input.Validate(); err != nil {
		return nil, 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	items, total, err := s.repo.ListBySender(ctx, input.UserID, input.limit(), input.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sent: %w", err)
	}
	return items, total, nil
}

// MarkRead flags a received notification as read.
func (s *Service) MarkRead(ctx context.Context, input ItemInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.MarkRead(ctx, input.UserID, input.NotificationID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// Delete removes a notification the user sent or received.
func (s *Service) Delete(ctx context.Context, input ItemInput) error {
	if err := input.Validate(); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Delete(ctx, input.UserID, input.NotificationID); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}

	s.log.InfoContext(ctx, "notification deleted",
		slog.String("user_id", input.UserID.String()),
		slog.String("notification_id", input.NotificationID.String()),
	)
	return nil
}
