package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

// uniqueSuffix returns a short unique string for generating non-conflicting test data.
func uniqueSuffix() string {
	return uuid.New().String()[:8]
}

// SeedUser creates a user with the given role.
func SeedUser(t *testing.T, pool *pgxpool.Pool, role domain.UserRole) domain.User {
	t.Helper()

	suffix := uniqueSuffix()
	user := domain.User{
		ID:        uuid.New(),
		Name:      "Reader " + suffix,
		Email:     "reader-" + suffix + "@example.com",
		Role:      role,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, name, email, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Name, user.Email, string(user.Role), user.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedUser: %v", err)
	}

	return user
}

// SeedItem creates a lendable item.
func SeedItem(t *testing.T, pool *pgxpool.Pool) domain.Item {
	t.Helper()

	suffix := uniqueSuffix()
	item := domain.Item{
		ID:        uuid.New(),
		Title:     "Vagabond " + suffix,
		Author:    "Takehiko Inoue",
		Genre:     "seinen",
		Volume:    1,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO items (id, title, author, genre, volume, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, item.Title, item.Author, item.Genre, item.Volume, item.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedItem: %v", err)
	}

	return item
}

// SeedDeletedItem creates a soft-deleted item.
func SeedDeletedItem(t *testing.T, pool *pgxpool.Pool) domain.Item {
	t.Helper()

	item := SeedItem(t, pool)
	if _, err := pool.Exec(context.Background(), `UPDATE items SET deleted = true WHERE id = $1`, item.ID); err != nil {
		t.Fatalf("testhelper: SeedDeletedItem: %v", err)
	}
	item.Deleted = true

	return item
}

// SeedLoan inserts a loan in the given status, bypassing the lifecycle.
func SeedLoan(t *testing.T, pool *pgxpool.Pool, itemID, userID uuid.UUID, status domain.LoanStatus) domain.Loan {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	loan := domain.NewLoan(itemID, userID, now, domain.DefaultLoanPeriod)
	loan.Status = status

	_, err := pool.Exec(context.Background(),
		`INSERT INTO loans (id, item_id, user_id, status, due_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		loan.ID, loan.ItemID, loan.UserID, string(loan.Status), loan.DueDate, loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedLoan: %v", err)
	}

	return loan
}

// SeedWaitlistEntry puts userID on the waitlist of itemID at the given time.
func SeedWaitlistEntry(t *testing.T, pool *pgxpool.Pool, itemID, userID uuid.UUID, at time.Time) domain.WaitlistEntry {
	t.Helper()

	entry := domain.WaitlistEntry{
		ID:        uuid.New(),
		ItemID:    itemID,
		UserID:    userID,
		CreatedAt: at.UTC().Truncate(time.Microsecond),
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO waitlist_entries (id, item_id, user_id, created_at) VALUES ($1, $2, $3, $4)`,
		entry.ID, entry.ItemID, entry.UserID, entry.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedWaitlistEntry: %v", err)
	}

	return entry
}
