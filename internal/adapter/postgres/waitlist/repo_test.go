package waitlist_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/mangalend-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/mangalend-backend/internal/adapter/postgres/waitlist"
	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

func TestRepo_Create_Duplicate(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := waitlist.New(pool)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool, domain.UserRoleUser)
	item := testhelper.SeedItem(t, pool)

	first := domain.WaitlistEntry{ID: uuid.New(), ItemID: item.ID, UserID: user.ID, CreatedAt: time.Now().UTC()}
	_, err := repo.Create(ctx, &first)
	require.NoError(t, err)

	second := domain.WaitlistEntry{ID: uuid.New(), ItemID: item.ID, UserID: user.ID, CreatedAt: time.Now().UTC()}
	_, err = repo.Create(ctx, &second)
	require.ErrorIs(t, err, domain.ErrAlreadyWaiting)

	n, err := repo.Count(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRepo_Create_UnknownItem(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := waitlist.New(pool)

	user := testhelper.SeedUser(t, pool, domain.UserRoleUser)
	e := domain.WaitlistEntry{ID: uuid.New(), ItemID: uuid.New(), UserID: user.ID, CreatedAt: time.Now().UTC()}

	_, err := repo.Create(context.Background(), &e)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepo_Delete(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := waitlist.New(pool)
	ctx := context.Background()

	user := testhelper.SeedUser(t, pool, domain.UserRoleUser)
	item := testhelper.SeedItem(t, pool)
	testhelper.SeedWaitlistEntry(t, pool, item.ID, user.ID, time.Now())

	require.NoError(t, repo.Delete(ctx, item.ID, user.ID))
	require.ErrorIs(t, repo.Delete(ctx, item.ID, user.ID), domain.ErrNotFound)
}

func TestRepo_ListPage_KeysetOrder(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := waitlist.New(pool)
	ctx := context.Background()

	item := testhelper.SeedItem(t, pool)
	base := time.Now().UTC().Add(-time.Hour)

	// Two entries share a timestamp; id breaks the tie.
	var want []domain.WaitlistEntry
	names := map[uuid.UUID]string{}
	for _, offset := range []time.Duration{0, time.Minute, time.Minute, 2 * time.Minute, 3 * time.Minute} {
		u := testhelper.SeedUser(t, pool, domain.UserRoleUser)
		names[u.ID] = u.Name
		want = append(want, testhelper.SeedWaitlistEntry(t, pool, item.ID, u.ID, base.Add(offset)))
	}
	if want[2].Before(want[1]) {
		want[1], want[2] = want[2], want[1]
	}

	var (
		got   []domain.WaitlistEntry
		after *domain.WaitlistCursor
	)
	for {
		page, err := repo.ListPage(ctx, item.ID, after, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		got = append(got, page...)
		last := page[len(page)-1]
		after = &domain.WaitlistCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID, "position %d", i)
		assert.Equal(t, item.Title, got[i].ItemTitle, "position %d", i)
		assert.Equal(t, names[got[i].UserID], got[i].UserName, "position %d", i)
	}

	all, err := repo.ListAll(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, all, len(got))
	for i := range all {
		assert.Equal(t, got[i].ID, all[i].ID, "position %d", i)
	}
}

func TestRepo_DeleteAll_ReturnsQueueOrder(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := waitlist.New(pool)
	ctx := context.Background()

	item := testhelper.SeedItem(t, pool)
	other := testhelper.SeedItem(t, pool)
	base := time.Now().UTC().Add(-time.Hour)

	u1 := testhelper.SeedUser(t, pool, domain.UserRoleUser)
	u2 := testhelper.SeedUser(t, pool, domain.UserRoleUser)
	late := testhelper.SeedWaitlistEntry(t, pool, item.ID, u1.ID, base.Add(time.Minute))
	early := testhelper.SeedWaitlistEntry(t, pool, item.ID, u2.ID, base)
	testhelper.SeedWaitlistEntry(t, pool, other.ID, u1.ID, base)

	drained, err := repo.DeleteAll(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, drained, 2)
	assert.Equal(t, early.ID, drained[0].ID)
	assert.Equal(t, late.ID, drained[1].ID)

	n, err := repo.Count(ctx, item.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.Count(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
