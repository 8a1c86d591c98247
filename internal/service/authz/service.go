// Package authz answers whether a principal holds administrative capability.
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

type userRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Authorizer resolves administrative capability from the stored user role.
type Authorizer struct {
	users   userRepo
	timeout time.Duration
	log     *slog.Logger
}

// NewAuthorizer creates a new Authorizer. A positive timeout bounds the
// role lookup.
func NewAuthorizer(log *slog.Logger, users userRepo, timeout time.Duration) *Authorizer {
	return &Authorizer{
		users:   users,
		timeout: timeout,
		log:     log.With("service", "authz"),
	}
}

// IsAdmin reports whether userID belongs to an administrator.
// Unknown users are not administrators.
func (a *Authorizer) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	u, err := a.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get user: %w", err)
	}
	return u.IsAdmin(), nil
}

// RequireAdmin returns domain.ErrForbidden unless userID is an administrator.
func (a *Authorizer) RequireAdmin(ctx context.Context, userID uuid.UUID) error {
	ok, err := a.IsAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		a.log.WarnContext(ctx, "admin capability denied", slog.String("user_id", userID.String()))
		return fmt.Errorf("user %s: %w", userID, domain.ErrForbidden)
	}
	return nil
}

func (a *Authorizer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}
