package repository

import (
	"context"
)

// EntitlementRepository tracks owned listings and trial counters per user.
type EntitlementRepository interface {
	IsOwned(ctx context.Context, userID, listingID string) (bool, error)
	// Grant adds listingID to the owned set and reports whether it was added.
	Grant(ctx context.Context, userID, listingID string) (bool, error)
	// Revoke removes listingID from the owned set and reports whether it was present.
	Revoke(ctx context.Context, userID, listingID string) (bool, error)
	Owned(ctx context.Context, userID string) ([]string, error)
	RemainingTrials(ctx context.Context, userID, listingID string) (int, error)
	// ConsumeTrial decrements the counter if it is positive. It returns the
	// remaining count and whether a run was consumed.
	ConsumeTrial(ctx context.Context, userID, listingID string) (int, bool, error)
}
