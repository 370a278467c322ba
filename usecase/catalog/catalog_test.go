package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/internal/fixtures"
	"github.com/fastygo/nexus/internal/services/deferred"
	"github.com/fastygo/nexus/repository"
	"github.com/fastygo/nexus/repository/memory"
	"github.com/fastygo/nexus/usecase"
	"github.com/fastygo/nexus/usecase/notification"
)

var demo = &domain.User{ID: "u_123", Name: "Demo User"}

type harness struct {
	uc           *UseCase
	notes        *notification.UseCase
	entitlements repository.EntitlementRepository
	scheduler    *deferred.Scheduler
}

func newHarness(t *testing.T, delay time.Duration) *harness {
	t.Helper()

	dispatcher := usecase.NewDispatcher(nil, nil)
	notes := notification.New(dispatcher, memory.NewNotificationRepository(50), nil, nil)
	entitlements := memory.NewEntitlementRepository(domain.DefaultTrialRuns)
	scheduler := deferred.New(nil)
	t.Cleanup(func() { _ = scheduler.Stop(context.Background()) })

	uc := New(dispatcher, memory.NewListingRepository(), entitlements, notes, scheduler,
		Config{ApprovalDelay: delay}, nil, nil)
	n, err := uc.Seed(context.Background(), fixtures.MustLoad().Listings)
	require.NoError(t, err)
	require.Equal(t, 10, n)

	return &harness{uc: uc, notes: notes, entitlements: entitlements, scheduler: scheduler}
}

func validDraft() Draft {
	return Draft{
		Title:            "Prompt Forge",
		ShortDescription: "Reusable prompt templates",
		FullDescription:  "Build, version and share prompts.",
		Features:         []string{"Templates", " ", "Sharing"},
		Deployment: domain.Deployment{
			Kind: domain.DeploymentWebApp,
			URL:  "https://promptforge.example.com",
		},
		PricingModel: domain.PricingOneTime,
		Price:        12.5,
		Category:     "Writing",
	}
}

// status and feed are polled from require.Eventually, so they report
// failures through their zero values instead of stopping the test.
func (h *harness) status(id string) domain.ListingStatus {
	l, err := h.uc.Get(context.Background(), id)
	if err != nil {
		return ""
	}
	return l.Status
}

func (h *harness) feed() []domain.Notification {
	f, err := h.notes.List(context.Background(), demo.ID)
	if err != nil {
		return nil
	}
	return f.Items
}

func countSeverity(items []domain.Notification, s domain.Severity) int {
	n := 0
	for _, item := range items {
		if item.Severity == s {
			n++
		}
	}
	return n
}

func TestCreate_GoesThroughReviewThenPublishes(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)
	ctx := context.Background()

	created, err := h.uc.Create(ctx, demo, validDraft())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.StatusUnderReview, created.Status)
	assert.Equal(t, "1.0.0", created.CurrentVersion)
	assert.Equal(t, demo.ID, created.OwnerID)
	assert.Equal(t, demo.Name, created.AuthorName)
	assert.Equal(t, []string{"Templates", "Sharing"}, created.Features)
	assert.Empty(t, created.VersionHistory)

	mine, err := h.uc.MyListings(ctx, demo.ID)
	require.NoError(t, err)
	require.NotEmpty(t, mine)
	assert.Equal(t, created.ID, mine[0].ID)

	require.Eventually(t, func() bool {
		return h.status(created.ID) == domain.StatusPublished
	}, time.Second, 5*time.Millisecond)

	published, err := h.uc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, published.VersionHistory)

	require.Eventually(t, func() bool {
		return countSeverity(h.feed(), domain.SeveritySuccess) == 1
	}, time.Second, 5*time.Millisecond)
	items := h.feed()
	assert.Equal(t, domain.SeveritySuccess, items[0].Severity)
	assert.Equal(t, domain.SeverityInfo, items[1].Severity)
}

func TestUpdate_PrependsOneHistoryEntryForCurrentVersion(t *testing.T) {
	h := newHarness(t, 10*time.Millisecond)
	ctx := context.Background()

	before, err := h.uc.Get(ctx, "1")
	require.NoError(t, err)
	require.Len(t, before.VersionHistory, 2)

	draft := DraftFrom(before)
	draft.Title = "CodeWhiz Pro"
	updated, err := h.uc.Update(ctx, demo, "1", draft)
	require.NoError(t, err)
	assert.Equal(t, "1", updated.ID)
	assert.Equal(t, domain.StatusUnderReview, updated.Status)
	assert.Equal(t, "2.1.0", updated.CurrentVersion)
	assert.Equal(t, before.Downloads, updated.Downloads)

	require.Eventually(t, func() bool {
		return h.status("1") == domain.StatusPublished
	}, time.Second, 5*time.Millisecond)

	after, err := h.uc.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "CodeWhiz Pro", after.Title)
	require.Len(t, after.VersionHistory, 3)
	head := after.VersionHistory[0]
	assert.Equal(t, "2.1.0", head.Version)
	assert.Equal(t, time.Now().Format("2006-01-02"), head.Date)
	assert.Equal(t, []string{"General update and optimization"}, head.Changes)
	assert.Equal(t, before.VersionHistory, after.VersionHistory[1:])
}

func TestUpdate_BumpVersion(t *testing.T) {
	h := newHarness(t, time.Hour)

	before, err := h.uc.Get(context.Background(), "1")
	require.NoError(t, err)
	draft := DraftFrom(before)
	draft.BumpVersion = true

	updated, err := h.uc.Update(context.Background(), demo, "1", draft)
	require.NoError(t, err)
	assert.Equal(t, "2.2.0", updated.CurrentVersion)
	assert.True(t, h.scheduler.Pending("1"))
}

func TestUpdate_RejectsForeignAndMissingListings(t *testing.T) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	_, err := h.uc.Update(ctx, demo, "2", validDraft())
	assert.ErrorIs(t, err, domain.ErrNotListingOwner)

	_, err = h.uc.Update(ctx, demo, "missing", validDraft())
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	assert.Equal(t, 0, h.scheduler.Len())
}

func TestPublish_Validation(t *testing.T) {
	h := newHarness(t, time.Hour)

	tests := []struct {
		name   string
		mutate func(*Draft)
	}{
		{name: "empty title", mutate: func(d *Draft) { d.Title = "   " }},
		{name: "negative price", mutate: func(d *Draft) { d.Price = -1 }},
		{name: "bad deployment url", mutate: func(d *Draft) { d.Deployment.URL = "not a url" }},
		{name: "unknown kind", mutate: func(d *Draft) { d.Deployment.Kind = "mainframe" }},
		{name: "unknown pricing", mutate: func(d *Draft) { d.PricingModel = "barter" }},
		{name: "missing category", mutate: func(d *Draft) { d.Category = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			_, err := h.uc.Create(context.Background(), demo, d)
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid), err.Error())
		})
	}

	_, err := h.uc.Create(context.Background(), nil, validDraft())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDelete_RemovesRecordAndCancelsApproval(t *testing.T) {
	h := newHarness(t, 100*time.Millisecond)
	ctx := context.Background()

	created, err := h.uc.Create(ctx, demo, validDraft())
	require.NoError(t, err)
	require.True(t, h.scheduler.Pending(created.ID))

	require.NoError(t, h.uc.Delete(ctx, demo, created.ID))
	assert.False(t, h.scheduler.Pending(created.ID))

	_, err = h.uc.Get(ctx, created.ID)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	time.Sleep(150 * time.Millisecond)
	_, err = h.uc.Get(ctx, created.ID)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound), "approval must not resurrect a deleted listing")
	assert.Equal(t, 0, countSeverity(h.feed(), domain.SeveritySuccess))
	assert.Equal(t, domain.SeverityWarning, h.feed()[0].Severity)
}

func TestDelete_OwnedFixtureDisappearsFromDerivedViews(t *testing.T) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, h.uc.Delete(ctx, demo, "1"))

	market, err := h.uc.Marketplace(ctx, MarketQuery{})
	require.NoError(t, err)
	assert.NotContains(t, ids(market), "1")
	assert.Len(t, market, 8)

	mine, err := h.uc.MyListings(ctx, demo.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	err = h.uc.Delete(ctx, demo, "2")
	assert.ErrorIs(t, err, domain.ErrNotListingOwner)
	_, err = h.uc.Get(ctx, "2")
	assert.NoError(t, err)
}

func TestRepublish_ReplacesPendingApproval(t *testing.T) {
	h := newHarness(t, 100*time.Millisecond)
	ctx := context.Background()

	created, err := h.uc.Create(ctx, demo, validDraft())
	require.NoError(t, err)
	draft := validDraft()
	draft.Title = "Prompt Forge 2"
	_, err = h.uc.Update(ctx, demo, created.ID, draft)
	require.NoError(t, err)
	assert.Equal(t, 1, h.scheduler.Len())

	require.Eventually(t, func() bool {
		return h.status(created.ID) == domain.StatusPublished
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, countSeverity(h.feed(), domain.SeveritySuccess))
	published, err := h.uc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, published.VersionHistory, 1)
	assert.Equal(t, "1.0.0", published.VersionHistory[0].Version)
}

func TestMarketplace_FiltersAndSorts(t *testing.T) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	all, err := h.uc.Marketplace(ctx, MarketQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 9)
	assert.NotContains(t, ids(all), "5")
	assert.Equal(t, "1", all[0].ID)

	audio, err := h.uc.Marketplace(ctx, MarketQuery{Category: "Audio"})
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "8"}, ids(audio))

	popular, err := h.uc.Marketplace(ctx, MarketQuery{Sort: SortPopularity})
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "6", "1"}, ids(popular)[:3])

	rated, err := h.uc.Marketplace(ctx, MarketQuery{Sort: SortRating})
	require.NoError(t, err)
	assert.Equal(t, 4.9, rated[0].Rating)

	found, err := h.uc.Marketplace(ctx, MarketQuery{Search: "VOICE"})
	require.NoError(t, err)
	assert.Equal(t, []string{"4"}, ids(found))

	_, err = h.uc.Marketplace(ctx, MarketQuery{Sort: "alphabetical"})
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}

func TestLeaderboard_TopByDownloadsTimesRating(t *testing.T) {
	h := newHarness(t, time.Hour)
	h.uc.cfg.LeaderboardSize = 3

	top, err := h.uc.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "6", "1"}, ids(top))
}

func TestOwned_FollowsEntitlementsInCatalogOrder(t *testing.T) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	owned, err := h.uc.Owned(ctx, demo.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)

	for _, id := range []string{"3", "1"} {
		_, err := h.entitlements.Grant(ctx, demo.ID, id)
		require.NoError(t, err)
	}
	owned, err = h.uc.Owned(ctx, demo.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, ids(owned))
}

func TestSeed_SkipsExisting(t *testing.T) {
	h := newHarness(t, time.Hour)

	n, err := h.uc.Seed(context.Background(), fixtures.MustLoad().Listings)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDocs(t *testing.T) {
	h := newHarness(t, time.Hour)
	ctx := context.Background()

	docs, err := h.uc.Docs(ctx, "1")
	require.NoError(t, err)
	assert.Contains(t, docs, "CodeWhiz guide")

	outline, err := h.uc.Docs(ctx, "4")
	require.NoError(t, err)
	assert.Contains(t, outline, "# VoiceMint Voice Cloning")

	_, err = h.uc.Docs(ctx, "missing")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}

type failingListings struct {
	repository.ListingRepository
}

func (failingListings) Create(context.Context, *domain.Listing) (*domain.Listing, error) {
	return nil, assert.AnError
}

type recordingBuffer struct {
	ops []string
}

func (b *recordingBuffer) BufferListing(_ context.Context, op string, l *domain.Listing) error {
	b.ops = append(b.ops, op+":"+l.Title)
	return nil
}

func (b *recordingBuffer) BufferProfile(context.Context, string, *domain.User) error { return nil }

func TestCreate_BuffersWhenStoreFails(t *testing.T) {
	dispatcher := usecase.NewDispatcher(nil, nil)
	repo := failingListings{ListingRepository: memory.NewListingRepository()}

	uc := New(dispatcher, repo, memory.NewEntitlementRepository(3), nil, nil, Config{}, nil, nil)
	_, err := uc.Create(context.Background(), demo, validDraft())
	assert.ErrorIs(t, err, assert.AnError)

	buf := &recordingBuffer{}
	uc.WithBuffer(buf)
	created, err := uc.Create(context.Background(), demo, validDraft())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusUnderReview, created.Status)
	assert.Equal(t, []string{"create:Prompt Forge"}, buf.ops)
}

func ids(listings []domain.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out
}
