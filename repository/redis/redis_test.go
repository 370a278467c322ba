package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/nexus/domain"
)

func setupClient(t *testing.T) (*redislib.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestSessionRepository_SaveGetExtend(t *testing.T) {
	client, mr := setupClient(t)
	repo := NewSessionRepository(client, time.Minute)
	ctx := context.Background()

	session := &domain.Session{ID: "s1", UserID: "u_123", View: domain.ViewLibrary}
	require.NoError(t, repo.Save(ctx, session))
	assert.True(t, mr.Exists("nexus:session:s1"))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.ViewLibrary, got.View)

	require.NoError(t, repo.Extend(ctx, "s1", 3600))
	assert.Greater(t, mr.TTL("nexus:session:s1"), 30*time.Minute)

	mr.FastForward(2 * time.Hour)
	_, err = repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, repo.Extend(ctx, "s1", 60), domain.ErrSessionNotFound)
}

func TestEntitlementRepository_TrialDecrementFloorsAtZero(t *testing.T) {
	client, _ := setupClient(t)
	repo := NewEntitlementRepository(client, 3)
	ctx := context.Background()

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

	left, err = repo.RemainingTrials(ctx, "u", "L1")
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestEntitlementRepository_OwnedSet(t *testing.T) {
	client, _ := setupClient(t)
	repo := NewEntitlementRepository(client, 3)
	ctx := context.Background()

	added, err := repo.Grant(ctx, "u", "3")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = repo.Grant(ctx, "u", "3")
	require.NoError(t, err)
	assert.False(t, added)

	_, err = repo.Grant(ctx, "u", "1")
	require.NoError(t, err)

	owned, err := repo.Owned(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, owned)

	ok, err := repo.IsOwned(ctx, "u", "3")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := repo.Revoke(ctx, "u", "3")
	require.NoError(t, err)
	assert.True(t, removed)

	ok, err = repo.IsOwned(ctx, "u", "3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotificationRepository_CappedFeed(t *testing.T) {
	client, _ := setupClient(t)
	repo := NewNotificationRepository(client, 2)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Push(ctx, &domain.Notification{
			ID:       fmt.Sprintf("n%d", i),
			UserID:   "u",
			Title:    "t",
			Severity: domain.SeverityInfo,
		}))
	}

	feed, err := repo.List(ctx, "u")
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "n3", feed[0].ID)
	assert.Equal(t, "n2", feed[1].ID)

	require.NoError(t, repo.MarkRead(ctx, "u", "n2"))
	assert.ErrorIs(t, repo.MarkRead(ctx, "u", "n1"), domain.ErrNotificationNotFound)

	feed, err = repo.List(ctx, "u")
	require.NoError(t, err)
	assert.True(t, feed[1].Read)

	require.NoError(t, repo.Clear(ctx, "u"))
	feed, err = repo.List(ctx, "u")
	require.NoError(t, err)
	assert.Empty(t, feed)
}
