package navigation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
	"github.com/fastygo/nexus/repository/memory"
	"github.com/fastygo/nexus/usecase"
)

func newNavigation(t *testing.T) (*UseCase, repository.SessionRepository, repository.ListingRepository) {
	t.Helper()
	ctx := context.Background()

	sessions := memory.NewSessionRepository(0)
	users := memory.NewUserRepository()
	listings := memory.NewListingRepository()

	require.NoError(t, users.Upsert(ctx, &domain.User{ID: "u1", Name: "Ada"}))
	_, err := listings.Create(ctx, &domain.Listing{ID: "L1", Title: "Tool", Status: domain.StatusPublished})
	require.NoError(t, err)
	require.NoError(t, sessions.Save(ctx, &domain.Session{ID: "in", UserID: "u1"}))
	require.NoError(t, sessions.Save(ctx, &domain.Session{ID: "out"}))

	return New(usecase.NewDispatcher(nil, nil), sessions, users, listings, nil), sessions, listings
}

func TestState_GuardsSignedOutSessions(t *testing.T) {
	uc, _, _ := newNavigation(t)
	ctx := context.Background()

	state, err := uc.State(ctx, "out")
	require.NoError(t, err)
	assert.Equal(t, domain.ViewAuth, state.View)
	assert.Nil(t, state.User)

	_, err = uc.Navigate(ctx, "out", domain.ViewLibrary)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.Select(ctx, "out", "L1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = uc.Back(ctx, "out")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSelectNavigateBack(t *testing.T) {
	uc, _, _ := newNavigation(t)
	ctx := context.Background()

	state, err := uc.State(ctx, "in")
	require.NoError(t, err)
	assert.Equal(t, domain.ViewHome, state.View)
	assert.Equal(t, "Ada", state.User.Name)

	_, err = uc.Navigate(ctx, "in", domain.ViewDetail)
	assert.ErrorIs(t, err, domain.ErrNoSelection)

	state, err = uc.Select(ctx, "in", "L1")
	require.NoError(t, err)
	assert.Equal(t, domain.ViewDetail, state.View)
	require.NotNil(t, state.Selected)
	assert.Equal(t, "Tool", state.Selected.Title)

	state, err = uc.Navigate(ctx, "in", domain.ViewRuntime)
	require.NoError(t, err)
	assert.True(t, state.Standalone)

	state, err = uc.Navigate(ctx, "in", domain.ViewLeaderboard)
	require.NoError(t, err)
	assert.False(t, state.Standalone)

	_, err = uc.Navigate(ctx, "in", "settings-v2")
	assert.ErrorIs(t, err, domain.ErrInvalidView)

	state, err = uc.Back(ctx, "in")
	require.NoError(t, err)
	assert.Equal(t, domain.ViewHome, state.View)
	assert.Nil(t, state.Selected)
}

func TestSelect_UnknownListing(t *testing.T) {
	uc, _, _ := newNavigation(t)

	_, err := uc.Select(context.Background(), "in", "nope")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	state, err := uc.State(context.Background(), "in")
	require.NoError(t, err)
	assert.Equal(t, domain.ViewHome, state.View)
}

func TestState_SelectionDeletedMeanwhile(t *testing.T) {
	uc, _, listings := newNavigation(t)
	ctx := context.Background()

	_, err := uc.Select(ctx, "in", "L1")
	require.NoError(t, err)
	require.NoError(t, listings.Delete(ctx, "L1"))

	state, err := uc.State(ctx, "in")
	require.NoError(t, err)
	assert.Equal(t, domain.ViewDetail, state.View)
	assert.Nil(t, state.Selected)
}
