// Package notification implements notification persistence using PostgreSQL.
// Notifications are append-only from the lifecycle side; receivers may mark
// them read or delete them.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	postgres "github.com/heartmarshall/mangalend-backend/internal/adapter/postgres"
	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

const table = "notifications"

var columns = []string{"id", "sender_id", "receiver_id", "item_id", "kind", "content", "read", "created_at"}

var listColumns = []string{
	"n.id", "n.sender_id", "n.receiver_id", "n.item_id", "n.kind", "n.content", "n.read", "n.created_at",
	"s.name", "rc.name", "COALESCE(i.title, '')",
}

// Repo provides notification persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new notification repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// ListByReceiver returns a user's inbox, newest first, with the total count.
func (r *Repo) ListByReceiver(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, int, error) {
	return r.list(ctx, "receiver_id", userID, limit, offset)
}

// ListBySender returns notifications sent on behalf of a user, newest first.
func (r *Repo) ListBySender(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Notification, int, error) {
	return r.list(ctx, "sender_id", userID, limit, offset)
}

// list pages notifications where column equals userID, joining the sender
// and receiver names and the item title.
func (r *Repo) list(ctx context.Context, column string, userID uuid.UUID, limit, offset int) ([]domain.Notification, int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	countSQL, countArgs, err := postgres.Builder().Select("count(*)").From(table).Where(sq.Eq{column: userID}).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, postgres.MapError(err, "notifications", "count")
	}

	query, args, err := postgres.Builder().
		Select(listColumns...).
		From(table + " n").
		Join("users s ON s.id = n.sender_id").
		Join("users rc ON rc.id = n.receiver_id").
		LeftJoin("items i ON i.id = n.item_id").
		Where(sq.Eq{"n." + column: userID}).
		OrderBy("n.created_at DESC", "n.id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, postgres.MapError(err, "notifications", "list")
	}
	defer rows.Close()

	items := make([]domain.Notification, 0)
	for rows.Next() {
		n, err := scanListed(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, postgres.MapError(err, "notifications", "list")
	}

	return items, total, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a notification and returns the persisted row.
func (r *Repo) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	query, args, err := postgres.Builder().
		Insert(table).
		Columns(columns...).
		Values(n.ID, n.SenderID, n.ReceiverID, n.ItemID, string(n.Kind), n.Content, n.Read, n.CreatedAt).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	created, err := scanNotification(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "notification", n.ID)
	}
	return &created, nil
}

// MarkRead flags a notification as read. Only the receiver may do so;
// anything else is reported as domain.ErrNotFound.
func (r *Repo) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	query, args, err := postgres.Builder().
		Update(table).
		Set("read", true).
		Where(sq.Eq{"id": id, "receiver_id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err, "notification", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a notification the user sent or received.
func (r *Repo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query, args, err := postgres.Builder().
		Delete(table).
		Where(sq.Eq{"id": id}).
		Where(sq.Or{sq.Eq{"receiver_id": userID}, sq.Eq{"sender_id": userID}}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err, "notification", id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteReadBefore removes read notifications created before the threshold.
// Returns the number of deleted rows.
func (r *Repo) DeleteReadBefore(ctx context.Context, threshold time.Time) (int64, error) {
	query, args, err := postgres.Builder().
		Delete(table).
		Where(sq.Eq{"read": true}).
		Where(sq.Lt{"created_at": threshold}).
		ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return 0, postgres.MapError(err, "notifications", "cleanup")
	}
	return tag.RowsAffected(), nil
}

// ---------------------------------------------------------------------------
// Scanning
// ---------------------------------------------------------------------------

func scanNotification(row pgx.Row) (domain.Notification, error) {
	var (
		n      domain.Notification
		itemID pgtype.UUID
		kind   string
	)
	if err := row.Scan(&n.ID, &n.SenderID, &n.ReceiverID, &itemID, &kind, &n.Content, &n.Read, &n.CreatedAt); err != nil {
		return domain.Notification{}, err
	}
	n.Kind = domain.NotificationKind(kind)
	n.ItemID = pgUUIDToPtr(itemID)
	return n, nil
}

func scanListed(row pgx.Row) (domain.Notification, error) {
	var (
		n      domain.Notification
		itemID pgtype.UUID
		kind   string
	)
	if err := row.Scan(
		&n.ID, &n.SenderID, &n.ReceiverID, &itemID, &kind, &n.Content, &n.Read, &n.CreatedAt,
		&n.SenderName, &n.ReceiverName, &n.ItemTitle,
	); err != nil {
		return domain.Notification{}, err
	}
	n.Kind = domain.NotificationKind(kind)
	n.ItemID = pgUUIDToPtr(itemID)
	return n, nil
}

// pgUUIDToPtr converts a nullable pgtype.UUID to *uuid.UUID (NULL -> nil).
func pgUUIDToPtr(v pgtype.UUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := uuid.UUID(v.Bytes)
	return &id
}
