package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
	"github.com/fastygo/nexus/usecase"
)

type SortOrder string

const (
	SortNewest     SortOrder = "newest"
	SortPopularity SortOrder = "popularity"
	SortRating     SortOrder = "rating"
)

// MarketQuery narrows the marketplace view. Empty fields match everything.
type MarketQuery struct {
	Category string
	Search   string
	Sort     SortOrder
}

// Marketplace lists published listings.
func (uc *UseCase) Marketplace(ctx context.Context, q MarketQuery) ([]domain.Listing, error) {
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "catalog.marketplace", func(ctx context.Context) ([]domain.Listing, error) {
		filter := repository.ListingFilter{Status: domain.StatusPublished}
		if c := strings.TrimSpace(q.Category); c != "" && !strings.EqualFold(c, "all") {
			filter.Category = c
		}
		listings, err := uc.listings.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		listings = search(listings, q.Search)

		switch q.Sort {
		case SortPopularity:
			sort.SliceStable(listings, func(i, j int) bool {
				return listings[i].Popularity() > listings[j].Popularity()
			})
		case SortRating:
			sort.SliceStable(listings, func(i, j int) bool {
				return listings[i].Rating > listings[j].Rating
			})
		case "", SortNewest:
		default:
			return nil, domain.NewError(domain.ErrCodeInvalid, fmt.Sprintf("unknown sort order %q", q.Sort))
		}
		return listings, nil
	})
}

// Leaderboard ranks published listings by downloads weighted by rating.
func (uc *UseCase) Leaderboard(ctx context.Context) ([]domain.Listing, error) {
	listings, err := uc.Marketplace(ctx, MarketQuery{Sort: SortPopularity})
	if err != nil {
		return nil, err
	}
	if len(listings) > uc.cfg.LeaderboardSize {
		listings = listings[:uc.cfg.LeaderboardSize]
	}
	return listings, nil
}

// MyListings returns every listing ownerID has submitted, whatever its status.
func (uc *UseCase) MyListings(ctx context.Context, ownerID string) ([]domain.Listing, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "catalog.mine", func(ctx context.Context) ([]domain.Listing, error) {
		return uc.listings.List(ctx, repository.ListingFilter{OwnerID: ownerID})
	})
}

// Owned returns the listings in the user's library, in catalog order.
func (uc *UseCase) Owned(ctx context.Context, userID string) ([]domain.Listing, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "catalog.owned", func(ctx context.Context) ([]domain.Listing, error) {
		ids, err := uc.entitlements.Owned(ctx, userID)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []string{}
		}
		return uc.listings.List(ctx, repository.ListingFilter{IDs: ids})
	})
}

func (uc *UseCase) Get(ctx context.Context, id string) (*domain.Listing, error) {
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "catalog.get", func(ctx context.Context) (*domain.Listing, error) {
		return uc.listings.GetByID(ctx, id)
	})
}

// Docs returns the help markdown of a listing, or a generated outline when
// the creator wrote none.
func (uc *UseCase) Docs(ctx context.Context, id string) (string, error) {
	listing, err := uc.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(listing.HelpDocs) != "" {
		return listing.HelpDocs, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", listing.Title, listing.FullDescription)
	if len(listing.Features) > 0 {
		b.WriteString("\n## Features\n\n")
		for _, f := range listing.Features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if listing.Deployment.DocsURL != "" {
		fmt.Fprintf(&b, "\nAPI reference: %s\n", listing.Deployment.DocsURL)
	}
	return b.String(), nil
}

func search(listings []domain.Listing, term string) []domain.Listing {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return listings
	}
	out := listings[:0]
	for _, l := range listings {
		if matches(l, term) {
			out = append(out, l)
		}
	}
	return out
}

func matches(l domain.Listing, term string) bool {
	if strings.Contains(strings.ToLower(l.Title), term) ||
		strings.Contains(strings.ToLower(l.ShortDescription), term) {
		return true
	}
	for _, tag := range l.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}
