package library

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
	"github.com/fastygo/nexus/usecase"
)

var errRuntimeClosed = domain.NewError(domain.ErrCodeConflict, "runtime view is not open")

// Launch is the outcome of opening a listing's runtime.
type Launch struct {
	Listing *domain.Listing    `json:"listing"`
	Gate    domain.RuntimeGate `json:"gate"`
}

type Repositories struct {
	Listings     repository.ListingRepository
	Entitlements repository.EntitlementRepository
	Sessions     repository.SessionRepository
}

// UseCase tracks what a user owns and how many trial runs remain.
type UseCase struct {
	dispatcher *usecase.Dispatcher
	repos      Repositories
	notifier   usecase.Notifier
	metrics    usecase.Metrics
	logger     *zap.Logger
}

func New(dispatcher *usecase.Dispatcher, repos Repositories, notifier usecase.Notifier, metrics usecase.Metrics, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = usecase.NopMetrics{}
	}
	return &UseCase{
		dispatcher: dispatcher,
		repos:      repos,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
	}
}

func (uc *UseCase) IsOwned(ctx context.Context, userID, listingID string) (bool, error) {
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "library.is_owned", func(ctx context.Context) (bool, error) {
		return uc.repos.Entitlements.IsOwned(ctx, userID, listingID)
	})
}

// Purchase adds the listing to the user's library. Owning it already is a
// conflict and changes nothing.
func (uc *UseCase) Purchase(ctx context.Context, userID, listingID string) (*domain.Listing, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return usecase.ExecuteCommand(ctx, uc.dispatcher, "library.purchase", func(ctx context.Context) (*domain.Listing, error) {
		listing, err := uc.repos.Listings.GetByID(ctx, listingID)
		if err != nil {
			return nil, err
		}
		added, err := uc.repos.Entitlements.Grant(ctx, userID, listingID)
		if err != nil {
			return nil, err
		}
		if !added {
			return nil, domain.ErrAlreadyOwned
		}

		uc.notify(ctx, userID, "Purchase complete", fmt.Sprintf("You now have access to %q.", listing.Title), domain.SeveritySuccess)
		uc.metrics.Count("library.purchase")
		uc.logger.Info("listing purchased", zap.String("user_id", userID), zap.String("listing_id", listingID))
		return listing, nil
	})
}

// RemoveFromLibrary drops ownership only; the listing stays in the catalog.
func (uc *UseCase) RemoveFromLibrary(ctx context.Context, userID, listingID string) error {
	if userID == "" {
		return domain.ErrUnauthorized
	}
	return uc.dispatcher.Command(ctx, "library.remove", func(ctx context.Context) error {
		removed, err := uc.repos.Entitlements.Revoke(ctx, userID, listingID)
		if err != nil {
			return err
		}
		if !removed {
			return domain.ErrNotOwned
		}

		title := listingID
		if listing, err := uc.repos.Listings.GetByID(ctx, listingID); err == nil {
			title = listing.Title
		}
		uc.notify(ctx, userID, "Removed", fmt.Sprintf("%q has been removed from your library.", title), domain.SeverityWarning)
		uc.metrics.Count("library.remove")
		uc.logger.Info("listing removed from library", zap.String("user_id", userID), zap.String("listing_id", listingID))
		return nil
	})
}

func (uc *UseCase) RemainingTrials(ctx context.Context, userID, listingID string) (int, error) {
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "library.trials", func(ctx context.Context) (int, error) {
		return uc.repos.Entitlements.RemainingTrials(ctx, userID, listingID)
	})
}

// Launch opens the runtime view for a listing. Owners launch freely. Anyone
// else spends a trial run when one is left; with none left the view still
// opens but the visit is not granted and Runtime reports it blocked.
func (uc *UseCase) Launch(ctx context.Context, sessionID, listingID string) (*Launch, error) {
	return usecase.ExecuteCommand(ctx, uc.dispatcher, "library.launch", func(ctx context.Context) (*Launch, error) {
		session, err := uc.repos.Sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !session.Authenticated() {
			return nil, domain.ErrUnauthorized
		}
		listing, err := uc.repos.Listings.GetByID(ctx, listingID)
		if err != nil {
			return nil, err
		}

		owned, err := uc.repos.Entitlements.IsOwned(ctx, session.UserID, listingID)
		if err != nil {
			return nil, err
		}

		var (
			granted   = owned
			remaining int
		)
		if owned {
			remaining, err = uc.repos.Entitlements.RemainingTrials(ctx, session.UserID, listingID)
		} else {
			if !listing.Deployment.Kind.TrialEligible() {
				return nil, domain.ErrTrialUnavailable
			}
			remaining, granted, err = uc.repos.Entitlements.ConsumeTrial(ctx, session.UserID, listingID)
		}
		if err != nil {
			return nil, err
		}

		if err := session.EnterRuntime(listingID, granted); err != nil {
			return nil, err
		}
		if err := uc.repos.Sessions.Save(ctx, session); err != nil {
			return nil, err
		}

		gate := domain.NewRuntimeGate(listingID, owned, granted, remaining)
		switch {
		case owned:
			uc.metrics.Count("library.launch")
		case granted:
			uc.metrics.Count("library.trial")
			uc.logger.Info("trial run consumed",
				zap.String("user_id", session.UserID),
				zap.String("listing_id", listingID),
				zap.Int("remaining", remaining))
		default:
			uc.metrics.Count("library.trial_exhausted")
		}
		return &Launch{Listing: listing, Gate: gate}, nil
	})
}

// Runtime evaluates the gate for the listing open in the session's runtime
// view.
func (uc *UseCase) Runtime(ctx context.Context, sessionID string) (*Launch, error) {
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "library.runtime", func(ctx context.Context) (*Launch, error) {
		session, err := uc.repos.Sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !session.Authenticated() {
			return nil, domain.ErrUnauthorized
		}
		if session.CurrentView() != domain.ViewRuntime {
			return nil, errRuntimeClosed
		}

		listingID := session.SelectedListingID
		listing, err := uc.repos.Listings.GetByID(ctx, listingID)
		if err != nil {
			return nil, err
		}
		owned, err := uc.repos.Entitlements.IsOwned(ctx, session.UserID, listingID)
		if err != nil {
			return nil, err
		}
		remaining, err := uc.repos.Entitlements.RemainingTrials(ctx, session.UserID, listingID)
		if err != nil {
			return nil, err
		}
		return &Launch{
			Listing: listing,
			Gate:    domain.NewRuntimeGate(listingID, owned, session.RuntimeGranted, remaining),
		}, nil
	})
}

func (uc *UseCase) notify(ctx context.Context, userID, title, message string, severity domain.Severity) {
	if uc.notifier == nil {
		return
	}
	if _, err := uc.notifier.Push(ctx, userID, title, message, severity); err != nil {
		uc.logger.Warn("notification failed", zap.String("user_id", userID), zap.Error(err))
	}
}
