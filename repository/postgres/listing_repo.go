package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
)

type listingRepository struct {
	pool *pgxpool.Pool
}

// NewListingRepository creates a Postgres-backed catalog. The full listing is
// kept in a JSONB payload; filterable fields are mirrored into columns and the
// insertion sequence gives the newest-first order.
func NewListingRepository(pool *pgxpool.Pool) repository.ListingRepository {
	return &listingRepository{pool: pool}
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	const query = `
	SELECT payload, created_at, updated_at
	FROM listings
	WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)
	return scanListing(row)
}

func (r *listingRepository) List(ctx context.Context, filter repository.ListingFilter) ([]domain.Listing, error) {
	const query = `
	SELECT payload, created_at, updated_at
	FROM listings
	WHERE ($1 = '' OR status = $1)
	  AND ($2 = '' OR owner_id = $2)
	  AND ($3 = '' OR category = $3)
	  AND ($4::text[] IS NULL OR id = ANY($4))
	ORDER BY seq DESC
	LIMIT $5 OFFSET $6
	`
	rows, err := r.pool.Query(ctx, query,
		string(filter.Status),
		filter.OwnerID,
		filter.Category,
		filter.IDs,
		clampLimit(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *listing)
	}
	return listings, rows.Err()
}

func (r *listingRepository) Create(ctx context.Context, listing *domain.Listing) (*domain.Listing, error) {
	if listing == nil {
		return nil, domain.ErrInvalidPayload
	}
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}

	payload, err := json.Marshal(listing)
	if err != nil {
		return nil, err
	}

	const query = `
	INSERT INTO listings (id, owner_id, status, category, payload)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		listing.ID,
		listing.OwnerID,
		string(listing.Status),
		listing.Category,
		payload,
	).Scan(&listing.CreatedAt, &listing.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.WrapError(domain.ErrCodeConflict, "listing already exists", err)
		}
		return nil, fmt.Errorf("insert listing: %w", err)
	}

	return listing, nil
}

func (r *listingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	if listing == nil {
		return domain.ErrInvalidPayload
	}

	payload, err := json.Marshal(listing)
	if err != nil {
		return err
	}

	const query = `
	UPDATE listings
	SET owner_id = $2,
		status = $3,
		category = $4,
		payload = $5,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		listing.ID,
		listing.OwnerID,
		string(listing.Status),
		listing.Category,
		payload,
	).Scan(&listing.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrListingNotFound
		}
		return fmt.Errorf("update listing: %w", err)
	}

	return nil
}

func (r *listingRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM listings WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func scanListing(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Listing, error) {
	var (
		payload []byte
		listing domain.Listing
	)

	if err := row.Scan(&payload, &listing.CreatedAt, &listing.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrListingNotFound
		}
		return nil, err
	}

	createdAt, updatedAt := listing.CreatedAt, listing.UpdatedAt
	if err := json.Unmarshal(payload, &listing); err != nil {
		return nil, fmt.Errorf("decode listing payload: %w", err)
	}
	listing.CreatedAt, listing.UpdatedAt = createdAt, updatedAt

	return &listing, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 500
	}
	return limit
}
