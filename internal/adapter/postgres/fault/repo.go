// Package fault stores notifications that could not be delivered after
// bounded retries, so they can be redelivered later.
package fault

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	postgres "github.com/heartmarshall/mangalend-backend/internal/adapter/postgres"
	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

const table = "notification_faults"

var columns = []string{
	"id", "sender_id", "receiver_id", "item_id", "kind", "content",
	"attempts", "last_error", "created_at", "resolved_at",
}

// Repo provides delivery-fault persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new fault repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Create records a fault.
func (r *Repo) Create(ctx context.Context, f *domain.DeliveryFault) error {
	query, args, err := postgres.Builder().
		Insert(table).
		Columns(columns...).
		Values(f.ID, f.SenderID, f.ReceiverID, f.ItemID, string(f.Kind), f.Content,
			f.Attempts, f.LastError, f.CreatedAt, f.ResolvedAt).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "notification_fault", f.ID)
	}
	return nil
}

// ListUnresolved returns up to limit unresolved faults, oldest first.
func (r *Repo) ListUnresolved(ctx context.Context, limit int) ([]domain.DeliveryFault, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"resolved_at": nil}).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "notification_faults", "unresolved")
	}
	defer rows.Close()

	faults := make([]domain.DeliveryFault, 0)
	for rows.Next() {
		f, err := scanFault(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fault: %w", err)
		}
		faults = append(faults, f)
	}
	return faults, rows.Err()
}

// Resolve marks a fault as delivered.
func (r *Repo) Resolve(ctx context.Context, id uuid.UUID, at time.Time) error {
	query, args, err := postgres.Builder().
		Update(table).
		Set("resolved_at", at).
		Where(sq.Eq{"id": id, "resolved_at": nil}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err, "notification_fault", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification_fault %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// RecordAttempt bumps the attempt counter after a failed redelivery.
func (r *Repo) RecordAttempt(ctx context.Context, id uuid.UUID, cause error) error {
	query, args, err := postgres.Builder().
		Update(table).
		Set("attempts", sq.Expr("attempts + 1")).
		Set("last_error", cause.Error()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "notification_fault", id)
	}
	return nil
}

// DeleteResolvedBefore removes faults resolved before the threshold.
func (r *Repo) DeleteResolvedBefore(ctx context.Context, threshold time.Time) (int64, error) {
	query, args, err := postgres.Builder().
		Delete(table).
		Where(sq.Lt{"resolved_at": threshold}).
		ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return 0, postgres.MapError(err, "notification_faults", "cleanup")
	}
	return tag.RowsAffected(), nil
}

func scanFault(row pgx.Row) (domain.DeliveryFault, error) {
	var (
		f          domain.DeliveryFault
		itemID     pgtype.UUID
		kind       string
		resolvedAt pgtype.Timestamptz
	)
	if err := row.Scan(&f.ID, &f.SenderID, &f.ReceiverID, &itemID, &kind, &f.Content,
		&f.Attempts, &f.LastError, &f.CreatedAt, &resolvedAt); err != nil {
		return domain.DeliveryFault{}, err
	}
	f.Kind = domain.NotificationKind(kind)
	if itemID.Valid {
		id := uuid.UUID(itemID.Bytes)
		f.ItemID = &id
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		f.ResolvedAt = &t
	}
	return f, nil
}
