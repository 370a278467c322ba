package domain

import "time"

// View is a navigation token of the client application.
type View string

const (
	ViewAuth        View = "auth"
	ViewHome        View = "home"
	ViewLeaderboard View = "leaderboard"
	ViewLibrary     View = "library"
	ViewProfile     View = "profile"
	ViewSettings    View = "settings"
	ViewReferral    View = "referral"
	ViewDetail      View = "detail"
	ViewRuntime     View = "runtime"
	ViewDashboard   View = "dashboard"
)

var knownViews = map[View]struct{}{
	ViewAuth: {}, ViewHome: {}, ViewLeaderboard: {}, ViewLibrary: {}, ViewProfile: {},
	ViewSettings: {}, ViewReferral: {}, ViewDetail: {}, ViewRuntime: {}, ViewDashboard: {},
}

func (v View) Valid() bool {
	_, ok := knownViews[v]
	return ok
}

// Session holds the navigation state of one signed-in (or signed-out) client.
type Session struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id,omitempty"`
	View              View              `json:"view"`
	SelectedListingID string            `json:"selected_listing_id,omitempty"`
	Standalone        bool              `json:"standalone"`
	RuntimeGranted    bool              `json:"runtime_granted"`
	ExpiresAt         time.Time         `json:"expires_at"`
	CreatedAt         time.Time         `json:"created_at"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

func (s *Session) Authenticated() bool {
	return s != nil && s.UserID != ""
}

// CurrentView is ViewAuth for as long as nobody is signed in.
func (s *Session) CurrentView() View {
	if !s.Authenticated() {
		return ViewAuth
	}
	if s.View == "" || s.View == ViewAuth {
		return ViewHome
	}
	return s.View
}

// IsStandalone reports whether the primary chrome is suppressed.
func (s *Session) IsStandalone() bool {
	return s.Authenticated() && (s.Standalone || s.CurrentView() == ViewRuntime)
}

func (s *Session) Login(userID string) {
	s.UserID = userID
	if s.View == "" || s.View == ViewAuth {
		s.View = ViewHome
	}
}

func (s *Session) Logout() {
	s.UserID = ""
	s.View = ViewHome
	s.SelectedListingID = ""
	s.Standalone = false
	s.RuntimeGranted = false
}

// Navigate switches the active view. Detail and runtime need a selection.
func (s *Session) Navigate(v View) error {
	if !s.Authenticated() {
		return ErrUnauthorized
	}
	if !v.Valid() || v == ViewAuth {
		return ErrInvalidView
	}
	if (v == ViewDetail || v == ViewRuntime) && s.SelectedListingID == "" {
		return ErrNoSelection
	}
	s.View = v
	s.RuntimeGranted = false
	if v != ViewRuntime {
		s.Standalone = false
	}
	return nil
}

func (s *Session) Select(listingID string) error {
	if !s.Authenticated() {
		return ErrUnauthorized
	}
	s.SelectedListingID = listingID
	s.View = ViewDetail
	s.Standalone = false
	s.RuntimeGranted = false
	return nil
}

// Back returns to the marketplace and drops the selection.
func (s *Session) Back() error {
	if !s.Authenticated() {
		return ErrUnauthorized
	}
	s.SelectedListingID = ""
	s.View = ViewHome
	s.Standalone = false
	s.RuntimeGranted = false
	return nil
}

// EnterRuntime opens the runtime view for listingID. granted records whether
// this visit may render interactive content.
func (s *Session) EnterRuntime(listingID string, granted bool) error {
	if !s.Authenticated() {
		return ErrUnauthorized
	}
	s.SelectedListingID = listingID
	s.View = ViewRuntime
	s.RuntimeGranted = granted
	return nil
}
