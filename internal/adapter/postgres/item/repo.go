// Package item implements read access to the lending catalog.
// Catalog editing lives in another service; this repository only reads items.
package item

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	postgres "github.com/heartmarshall/mangalend-backend/internal/adapter/postgres"
	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

const table = "items"

var columns = []string{"id", "title", "author", "genre", "volume", "deleted", "total_readings", "created_at"}

// Repo provides item lookups backed by PostgreSQL.
type Repo struct {
	db postgres.Querier
}

// New creates a new item repository.
func New(db postgres.Querier) *Repo {
	return &Repo{db: db}
}

// GetByID returns a live item. Soft-deleted items are reported as domain.ErrNotFound.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return r.get(ctx, sq.Eq{"id": id, "deleted": false}, id)
}

// GetByIDWithDeleted returns an item even if it was soft-deleted. Loans keep
// referencing deleted items, so their notifications still need the title.
func (r *Repo) GetByIDWithDeleted(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return r.get(ctx, sq.Eq{"id": id}, id)
}

func (r *Repo) get(ctx context.Context, where sq.Eq, id uuid.UUID) (*domain.Item, error) {
	query, args, err := postgres.Builder().
		Select(columns...).
		From(table).
		Where(where).
		ToSql()
	if err != nil {
		return nil, err
	}

	var it domain.Item
	err = postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(
		&it.ID, &it.Title, &it.Author, &it.Genre, &it.Volume, &it.Deleted, &it.TotalReadings, &it.CreatedAt,
	)
	if err != nil {
		return nil, postgres.MapError(err, "item", id)
	}

	return &it, nil
}
