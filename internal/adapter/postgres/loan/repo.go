// Package loan implements the Loan repository using PostgreSQL.
// The one-active-loan rule is enforced by the partial unique index
// loans_one_active_per_item; status changes are compare-and-swap updates.
package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/mangalend-backend/internal/adapter/postgres"
	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

const table = "loans"

var columns = []string{"id", "item_id", "user_id", "status", "due_date", "created_at", "updated_at"}

// listColumns adds the item title and borrower name to the loan row.
var listColumns = []string{
	"l.id", "l.item_id", "l.user_id", "l.status", "l.due_date", "l.created_at", "l.updated_at",
	"i.title", "u.name",
}

var activeStatuses = []string{string(domain.LoanStatusPending), string(domain.LoanStatusApproved)}

// Repo provides loan persistence backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new loan repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// GetByID returns a loan by primary key.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	l, err := scanLoan(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "loan", id)
	}
	return &l, nil
}

// HasActive reports whether a PENDING or APPROVED loan references the item.
func (r *Repo) HasActive(ctx context.Context, itemID uuid.UUID) (bool, error) {
	query, args, err := postgres.Builder().
		Select("1").
		From(table).
		Where(sq.Eq{"item_id": itemID, "status": activeStatuses}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, err
	}

	var exists bool
	if err := postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, postgres.MapError(err, "item", itemID)
	}
	return exists, nil
}

// GetActiveByItem returns the active loan of an item, or domain.ErrNotFound.
func (r *Repo) GetActiveByItem(ctx context.Context, itemID uuid.UUID) (*domain.Loan, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"item_id": itemID, "status": activeStatuses}).
		ToSql()
	if err != nil {
		return nil, err
	}

	l, err := scanLoan(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "active loan for item", itemID)
	}
	return &l, nil
}

// List returns loans newest first with item titles and borrower names,
// plus the total count matching the filter.
func (r *Repo) List(ctx context.Context, f domain.LoanFilter) ([]domain.Loan, int, error) {
	q := postgres.QuerierFromCtx(ctx, r.db)

	countSQL, countArgs, err := postgres.Builder().
		Select("count(*)").
		From(table).
		Where(filterWhere(f, "")).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := q.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, postgres.MapError(err, "loans", "count")
	}

	sel := postgres.Builder().
		Select(listColumns...).
		From(table + " l").
		Join("items i ON i.id = l.item_id").
		Join("users u ON u.id = l.user_id").
		Where(filterWhere(f, "l.")).
		OrderBy("l.created_at DESC", "l.id DESC")
	if f.Limit > 0 {
		sel = sel.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		sel = sel.Offset(uint64(f.Offset))
	}

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, postgres.MapError(err, "loans", "list")
	}
	defer rows.Close()

	loans := make([]domain.Loan, 0)
	for rows.Next() {
		var (
			l      domain.Loan
			status string
		)
		if err := rows.Scan(&l.ID, &l.ItemID, &l.UserID, &status, &l.DueDate, &l.CreatedAt, &l.UpdatedAt, &l.ItemTitle, &l.UserName); err != nil {
			return nil, 0, postgres.MapError(err, "loans", "list")
		}
		l.Status = domain.LoanStatus(status)
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, postgres.MapError(err, "loans", "list")
	}
	return loans, total, nil
}

func filterWhere(f domain.LoanFilter, prefix string) sq.Eq {
	where := sq.Eq{}
	if f.UserID != nil {
		where[prefix+"user_id"] = *f.UserID
	}
	if f.ItemID != nil {
		where[prefix+"item_id"] = *f.ItemID
	}
	if f.Status != nil {
		where[prefix+"status"] = string(*f.Status)
	}
	return where
}

// ListApprovedDueBetween returns APPROVED loans whose due date is in [from, to).
func (r *Repo) ListApprovedDueBetween(ctx context.Context, from, to time.Time) ([]domain.Loan, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"status": string(domain.LoanStatusApproved)}).
		Where(sq.GtOrEq{"due_date": from}).
		Where(sq.Lt{"due_date": to}).
		OrderBy("due_date ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	loans, err := collect(postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "loans", "due")
	}
	return loans, nil
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new loan. If the item already has an active loan the
// partial unique index rejects the row and domain.ErrActiveLoanExists is returned.
func (r *Repo) Create(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	query, args, err := postgres.Builder().
		Insert(table).
		Columns(columns...).
		Values(l.ID, l.ItemID, l.UserID, string(l.Status), l.DueDate, l.CreatedAt, l.UpdatedAt).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	created, err := scanLoan(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		mapped := postgres.MapError(err, "loan", l.ID)
		if errors.Is(mapped, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("item %s: %w", l.ItemID, domain.ErrActiveLoanExists)
		}
		return nil, mapped
	}
	return &created, nil
}

// UpdateStatus moves a loan from one status to another only if its current
// status still equals from. When the row did not match, it reports
// domain.ErrNotFound for a missing loan and domain.ErrInvalidTransition
// when another writer changed the status first.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.LoanStatus, now time.Time) (*domain.Loan, error) {
	query, args, err := postgres.Builder().
		Update(table).
		Set("status", string(to)).
		Set("updated_at", now).
		Where(sq.Eq{"id": id, "status": string(from)}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	q := postgres.QuerierFromCtx(ctx, r.db)

	updated, err := scanLoan(q.QueryRow(ctx, query, args...))
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, postgres.MapError(err, "loan", id)
	}

	var current string
	if err := q.QueryRow(ctx, `SELECT status FROM loans WHERE id = $1`, id).Scan(&current); err != nil {
		return nil, postgres.MapError(err, "loan", id)
	}
	return nil, fmt.Errorf("loan %s: status is %s, expected %s: %w", id, current, from, domain.ErrInvalidTransition)
}

// Delete physically removes a loan regardless of status and returns the removed row.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query, args, err := postgres.Builder().
		Delete(table).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	deleted, err := scanLoan(postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, postgres.MapError(err, "loan", id)
	}
	return &deleted, nil
}

// ---------------------------------------------------------------------------
// Scanning
// ---------------------------------------------------------------------------

func scanLoan(row pgx.Row) (domain.Loan, error) {
	var (
		l      domain.Loan
		status string
	)
	if err := row.Scan(&l.ID, &l.ItemID, &l.UserID, &status, &l.DueDate, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return domain.Loan{}, err
	}
	l.Status = domain.LoanStatus(status)
	return l, nil
}

func collect(rows pgx.Rows, err error) ([]domain.Loan, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := make([]domain.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}
