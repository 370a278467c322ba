package navigation

import (
	"context"

	"go.uber.org/zap"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
	"github.com/fastygo/nexus/usecase"
)

// State is the navigation snapshot a client renders from.
type State struct {
	SessionID  string          `json:"session_id"`
	View       domain.View     `json:"view"`
	Standalone bool            `json:"standalone"`
	User       *domain.User    `json:"user,omitempty"`
	Selected   *domain.Listing `json:"selected,omitempty"`
}

type UseCase struct {
	dispatcher *usecase.Dispatcher
	sessions   repository.SessionRepository
	users      repository.UserRepository
	listings   repository.ListingRepository
	logger     *zap.Logger
}

func New(
	dispatcher *usecase.Dispatcher,
	sessions repository.SessionRepository,
	users repository.UserRepository,
	listings repository.ListingRepository,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		dispatcher: dispatcher,
		sessions:   sessions,
		users:      users,
		listings:   listings,
		logger:     logger,
	}
}

func (uc *UseCase) State(ctx context.Context, sessionID string) (*State, error) {
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "navigation.state", func(ctx context.Context) (*State, error) {
		session, err := uc.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return uc.snapshot(ctx, session)
	})
}

func (uc *UseCase) Navigate(ctx context.Context, sessionID string, view domain.View) (*State, error) {
	return uc.mutate(ctx, "navigation.navigate", sessionID, func(_ context.Context, s *domain.Session) error {
		return s.Navigate(view)
	})
}

// Select opens the detail view of an existing listing.
func (uc *UseCase) Select(ctx context.Context, sessionID, listingID string) (*State, error) {
	return uc.mutate(ctx, "navigation.select", sessionID, func(ctx context.Context, s *domain.Session) error {
		if !s.Authenticated() {
			return domain.ErrUnauthorized
		}
		if _, err := uc.listings.GetByID(ctx, listingID); err != nil {
			return err
		}
		return s.Select(listingID)
	})
}

func (uc *UseCase) Back(ctx context.Context, sessionID string) (*State, error) {
	return uc.mutate(ctx, "navigation.back", sessionID, func(_ context.Context, s *domain.Session) error {
		return s.Back()
	})
}

func (uc *UseCase) mutate(ctx context.Context, name, sessionID string, fn func(context.Context, *domain.Session) error) (*State, error) {
	return usecase.ExecuteCommand(ctx, uc.dispatcher, name, func(ctx context.Context) (*State, error) {
		session, err := uc.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if err := fn(ctx, session); err != nil {
			return nil, err
		}
		if err := uc.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		uc.logger.Debug("view changed",
			zap.String("session_id", session.ID),
			zap.String("view", string(session.CurrentView())))
		return uc.snapshot(ctx, session)
	})
}

func (uc *UseCase) snapshot(ctx context.Context, session *domain.Session) (*State, error) {
	state := &State{
		SessionID:  session.ID,
		View:       session.CurrentView(),
		Standalone: session.IsStandalone(),
	}
	if !session.Authenticated() {
		return state, nil
	}

	user, err := uc.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	state.User = user

	if session.SelectedListingID != "" {
		listing, err := uc.listings.GetByID(ctx, session.SelectedListingID)
		switch {
		case err == nil:
			state.Selected = listing
		case domain.IsDomainError(err, domain.ErrCodeNotFound):
			// deleted since it was selected
		default:
			return nil, err
		}
	}
	return state, nil
}
