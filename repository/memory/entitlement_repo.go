package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fastygo/nexus/repository"
)

type entitlementRepository struct {
	mu        sync.Mutex
	owned     map[string]map[string]struct{}
	trials    map[string]map[string]int
	trialRuns int
}

// NewEntitlementRepository creates an in-process entitlement store. Trial
// counters start at trialRuns the first time they are observed.
func NewEntitlementRepository(trialRuns int) repository.EntitlementRepository {
	if trialRuns < 0 {
		trialRuns = 0
	}
	return &entitlementRepository{
		owned:     make(map[string]map[string]struct{}),
		trials:    make(map[string]map[string]int),
		trialRuns: trialRuns,
	}
}

func (r *entitlementRepository) IsOwned(_ context.Context, userID, listingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.owned[userID][listingID]
	return ok, nil
}

func (r *entitlementRepository) Grant(_ context.Context, userID, listingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.owned[userID]
	if !ok {
		set = make(map[string]struct{})
		r.owned[userID] = set
	}
	if _, exists := set[listingID]; exists {
		return false, nil
	}
	set[listingID] = struct{}{}
	return true, nil
}

func (r *entitlementRepository) Revoke(_ context.Context, userID, listingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owned[userID][listingID]; !ok {
		return false, nil
	}
	delete(r.owned[userID], listingID)
	return true, nil
}

func (r *entitlementRepository) Owned(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.owned[userID]))
	for id := range r.owned[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *entitlementRepository) RemainingTrials(_ context.Context, userID, listingID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining(userID, listingID), nil
}

func (r *entitlementRepository) ConsumeTrial(_ context.Context, userID, listingID string) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	left := r.remaining(userID, listingID)
	if left <= 0 {
		return 0, false, nil
	}
	left--
	r.trials[userID][listingID] = left
	return left, true, nil
}

func (r *entitlementRepository) remaining(userID, listingID string) int {
	counters, ok := r.trials[userID]
	if !ok {
		counters = make(map[string]int)
		r.trials[userID] = counters
	}
	left, ok := counters[listingID]
	if !ok {
		left = r.trialRuns
		counters[listingID] = left
	}
	return left
}
