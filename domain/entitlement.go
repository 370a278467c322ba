package domain

// DefaultTrialRuns is the number of free launches an unowned listing starts with.
const DefaultTrialRuns = 3

// RuntimeGate is the verdict of the runtime view for one visit.
type RuntimeGate struct {
	ListingID string `json:"listing_id"`
	Owned     bool   `json:"owned"`
	Trial     bool   `json:"trial"`
	Remaining int    `json:"trial_remaining"`
	Blocked   bool   `json:"blocked"`
}

// NewRuntimeGate evaluates access. Ownership always wins; otherwise the visit
// must have been granted a trial run.
func NewRuntimeGate(listingID string, owned, granted bool, remaining int) RuntimeGate {
	if remaining < 0 {
		remaining = 0
	}
	if owned {
		return RuntimeGate{ListingID: listingID, Owned: true, Remaining: remaining}
	}
	return RuntimeGate{
		ListingID: listingID,
		Trial:     true,
		Remaining: remaining,
		Blocked:   !granted,
	}
}
