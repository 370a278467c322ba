package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
)

type listingRepository struct {
	mu       sync.RWMutex
	listings []*domain.Listing
}

// NewListingRepository returns an in-process catalog. Records are kept
// newest-first and copied on every read and write.
func NewListingRepository() repository.ListingRepository {
	return &listingRepository{}
}

func (r *listingRepository) GetByID(_ context.Context, id string) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return r.listings[i].Clone(), nil
	}
	return nil, domain.ErrListingNotFound
}

func (r *listingRepository) List(_ context.Context, filter repository.ListingFilter) ([]domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids map[string]struct{}
	if filter.IDs != nil {
		ids = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	out := make([]domain.Listing, 0, len(r.listings))
	skipped := 0
	for _, l := range r.listings {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.OwnerID != "" && l.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Category != "" && l.Category != filter.Category {
			continue
		}
		if ids != nil {
			if _, ok := ids[l.ID]; !ok {
				continue
			}
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, *l.Clone())
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *listingRepository) Create(_ context.Context, listing *domain.Listing) (*domain.Listing, error) {
	if listing == nil {
		return nil, domain.ErrInvalidPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	if r.indexOf(listing.ID) >= 0 {
		return nil, domain.NewError(domain.ErrCodeConflict, "listing already exists")
	}
	listing.Touch(time.Now())

	r.listings = append([]*domain.Listing{listing.Clone()}, r.listings...)
	return listing, nil
}

func (r *listingRepository) Update(_ context.Context, listing *domain.Listing) error {
	if listing == nil {
		return domain.ErrInvalidPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(listing.ID)
	if i < 0 {
		return domain.ErrListingNotFound
	}
	listing.Touch(time.Now())
	r.listings[i] = listing.Clone()
	return nil
}

func (r *listingRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return domain.ErrListingNotFound
	}
	r.listings = append(r.listings[:i], r.listings[i+1:]...)
	return nil
}

func (r *listingRepository) indexOf(id string) int {
	for i, l := range r.listings {
		if l.ID == id {
			return i
		}
	}
	return -1
}
