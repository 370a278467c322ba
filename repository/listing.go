package repository

import (
	"context"

	"github.com/fastygo/nexus/domain"
)

// ListingFilter narrows catalog reads. Zero values match everything.
type ListingFilter struct {
	Status   domain.ListingStatus
	OwnerID  string
	Category string
	IDs      []string
	Limit    int
	Offset   int
}

// ListingRepository stores the catalog. List returns newest-first.
type ListingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	List(ctx context.Context, filter ListingFilter) ([]domain.Listing, error)
	Create(ctx context.Context, listing *domain.Listing) (*domain.Listing, error)
	Update(ctx context.Context, listing *domain.Listing) error
	Delete(ctx context.Context, id string) error
}
