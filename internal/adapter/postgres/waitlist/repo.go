// Package waitlist implements the per-item waiting line using PostgreSQL.
// Queue order is (created_at, id) ascending; UNIQUE(item_id, user_id)
// keeps one entry per user and item.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/mangalend-backend/internal/adapter/postgres"
	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

const table = "waitlist_entries"

var columns = []string{"id", "item_id", "user_id", "created_at"}

// Repo provides waitlist persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new waitlist repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// Create appends an entry. A second entry for the same (item, user) pair
// fails with domain.ErrAlreadyWaiting; an unknown item or user with
// domain.ErrNotFound.
func (r *Repo) Create(ctx context.Context, e *domain.WaitlistEntry) (*domain.WaitlistEntry, error) {
	query, args, err := postgres.Builder().
		Insert(table).
		Columns(columns...).
		Values(e.ID, e.ItemID, e.UserID, e.CreatedAt).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	created, err := scanEntry(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		mapped := postgres.MapError(err, "waitlist_entry", e.ID)
		if errors.Is(mapped, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("item %s user %s: %w", e.ItemID, e.UserID, domain.ErrAlreadyWaiting)
		}
		return nil, mapped
	}
	return &created, nil
}

// Delete removes the entry for (itemID, userID).
func (r *Repo) Delete(ctx context.Context, itemID, userID uuid.UUID) error {
	query, args, err := postgres.Builder().
		Delete(table).
		Where(sq.Eq{"item_id": itemID, "user_id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	if err != nil {
		return postgres.MapError(err, "waitlist_entry", itemID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("waitlist_entry item %s user %s: %w", itemID, userID, domain.ErrNotFound)
	}
	return nil
}

// ListPage returns up to limit entries of an item in queue order, starting
// after the cursor (nil means from the head). Entries carry the item title
// and the waiting user's name.
func (r *Repo) ListPage(ctx context.Context, itemID uuid.UUID, after *domain.WaitlistCursor, limit int) ([]domain.WaitlistEntry, error) {
	sel := postgres.Builder().
		Select("w.id", "w.item_id", "w.user_id", "w.created_at", "i.title", "u.name").
		From(table + " w").
		Join("items i ON i.id = w.item_id").
		Join("users u ON u.id = w.user_id").
		Where(sq.Eq{"w.item_id": itemID}).
		OrderBy("w.created_at ASC", "w.id ASC").
		Limit(uint64(limit))
	if after != nil {
		sel = sel.Where(sq.Expr("(w.created_at, w.id) > (?, ?)", after.CreatedAt, after.ID))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "waitlist", itemID)
	}
	defer rows.Close()

	entries := make([]domain.WaitlistEntry, 0, limit)
	for rows.Next() {
		var e domain.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.ItemID, &e.UserID, &e.CreatedAt, &e.ItemTitle, &e.UserName); err != nil {
			return nil, postgres.MapError(err, "waitlist", itemID)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "waitlist", itemID)
	}
	return entries, nil
}

// Count returns the number of users waiting for an item.
func (r *Repo) Count(ctx context.Context, itemID uuid.UUID) (int, error) {
	query, args, err := postgres.Builder().
		Select("count(*)").
		From(table).
		Where(sq.Eq{"item_id": itemID}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var n int
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, postgres.MapError(err, "waitlist", itemID)
	}
	return n, nil
}

// ListAll returns every entry of an item in queue order.
func (r *Repo) ListAll(ctx context.Context, itemID uuid.UUID) ([]domain.WaitlistEntry, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"item_id": itemID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	entries, err := collect(postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "waitlist", itemID)
	}
	return entries, nil
}

// DeleteAll removes every entry of an item and returns them in queue order.
func (r *Repo) DeleteAll(ctx context.Context, itemID uuid.UUID) ([]domain.WaitlistEntry, error) {
	query, args, err := postgres.Builder().
		Delete(table).
		Where(sq.Eq{"item_id": itemID}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	entries, err := collect(postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "waitlist", itemID)
	}

	// DELETE ... RETURNING has no ORDER BY.
	slices.SortFunc(entries, func(a, b domain.WaitlistEntry) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return entries, nil
}

func scanEntry(row pgx.Row) (domain.WaitlistEntry, error) {
	var e domain.WaitlistEntry
	err := row.Scan(&e.ID, &e.ItemID, &e.UserID, &e.CreatedAt)
	return e, err
}

func collect(rows pgx.Rows, err error) ([]domain.WaitlistEntry, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.WaitlistEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
