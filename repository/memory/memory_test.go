package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
)

func TestListingRepository_NewestFirstAndFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository()

	for i, owner := range []string{"u1", "u2", "u1"} {
		_, err := repo.Create(ctx, &domain.Listing{
			ID:       fmt.Sprintf("L%d", i),
			OwnerID:  owner,
			Category: "Dev",
			Status:   domain.StatusPublished,
		})
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, repository.ListingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"L2", "L1", "L0"}, listingIDs(all))

	mine, err := repo.List(ctx, repository.ListingFilter{OwnerID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"L2", "L0"}, listingIDs(mine))

	subset, err := repo.List(ctx, repository.ListingFilter{IDs: []string{"L0", "L1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"L1", "L0"}, listingIDs(subset))

	none, err := repo.List(ctx, repository.ListingFilter{IDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	page, err := repo.List(ctx, repository.ListingFilter{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, listingIDs(page))
}

func TestListingRepository_CopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	repo := NewListingRepository()

	in := &domain.Listing{ID: "x", Title: "before", Features: []string{"a"}}
	_, err := repo.Create(ctx, in)
	require.NoError(t, err)
	in.Features[0] = "mutated"

	got, err := repo.GetByID(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Features[0])

	got.Title = "after"
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "after", again.Title)

	require.NoError(t, repo.Delete(ctx, "x"))
	_, err = repo.GetByID(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "x"), domain.ErrListingNotFound)
	assert.ErrorIs(t, repo.Update(ctx, got), domain.ErrListingNotFound)
}

func TestEntitlementRepository_TrialsFloorAtZero(t *testing.T) {
	ctx := context.Background()
	repo := NewEntitlementRepository(3)

	left, err := repo.RemainingTrials(ctx, "u", "L1")
	require.NoError(t, err)
	assert.Equal(t, 3, left)

	for want := 2; want >= 0; want-- {
		left, consumed, err := repo.ConsumeTrial(ctx, "u", "L1")
		require.NoError(t, err)
		assert.True(t, consumed)
		assert.Equal(t, want, left)
	}

	left, consumed, err := repo.ConsumeTrial(ctx, "u", "L1")
	require.NoError(t, err)
	assert.False(t, consumed)
	assert.Equal(t, 0, left)

	other, err := repo.RemainingTrials(ctx, "someone-else", "L1")
	require.NoError(t, err)
	assert.Equal(t, 3, other)
}

func TestEntitlementRepository_GrantIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewEntitlementRepository(3)

	added, err := repo.Grant(ctx, "u", "L2")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Grant(ctx, "u", "L2")
	require.NoError(t, err)
	assert.False(t, added)

	owned, err := repo.Owned(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, []string{"L2"}, owned)

	removed, err := repo.Revoke(ctx, "u", "L2")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Revoke(ctx, "u", "L2")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestNotificationRepository_CapAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(3)

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Push(ctx, &domain.Notification{ID: fmt.Sprintf("n%d", i), UserID: "u"}))
	}

	feed, err := repo.List(ctx, "u")
	require.NoError(t, err)
	require.Len(t, feed, 3)
	assert.Equal(t, "n5", feed[0].ID)
	assert.Equal(t, "n3", feed[2].ID)

	require.NoError(t, repo.MarkRead(ctx, "u", "n4"))
	assert.ErrorIs(t, repo.MarkRead(ctx, "u", "n1"), domain.ErrNotificationNotFound)

	feed, err = repo.List(ctx, "u")
	require.NoError(t, err)
	assert.True(t, feed[1].Read)
	assert.False(t, feed[0].Read)

	require.NoError(t, repo.Clear(ctx, "u"))
	feed, err = repo.List(ctx, "u")
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestSessionRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(time.Minute).(*sessionRepository)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Save(ctx, &domain.Session{ID: "s", UserID: "u"}))
	got, err := repo.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "u", got.UserID)

	now = now.Add(2 * time.Minute)
	_, err = repo.Get(ctx, "s")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, repo.Extend(ctx, "s", 60), domain.ErrSessionNotFound)
}

func listingIDs(listings []domain.Listing) []string {
	ids := make([]string, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	return ids
}
