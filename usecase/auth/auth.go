package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
	"github.com/fastygo/nexus/usecase"
)

// DemoAccount is the identity every login resolves to, plus the state it is
// seeded with the first time it appears.
type DemoAccount struct {
	User           domain.User
	OwnedListings  []string
	Transactions   []domain.Transaction
	WelcomeTitle   string
	WelcomeMessage string
}

type Repositories struct {
	Users        repository.UserRepository
	Sessions     repository.SessionRepository
	Entitlements repository.EntitlementRepository
	Transactions repository.TransactionRepository
}

type UseCase struct {
	dispatcher *usecase.Dispatcher
	repos      Repositories
	notifier   usecase.Notifier
	demo       DemoAccount
	ttl        time.Duration
	metrics    usecase.Metrics
	logger     *zap.Logger
}

// LoginResult is returned by Login.
type LoginResult struct {
	Session   *domain.Session
	User      *domain.User
	Onboarded bool
}

func New(
	dispatcher *usecase.Dispatcher,
	repos Repositories,
	notifier usecase.Notifier,
	demo DemoAccount,
	ttl time.Duration,
	metrics usecase.Metrics,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = usecase.NopMetrics{}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &UseCase{
		dispatcher: dispatcher,
		repos:      repos,
		notifier:   notifier,
		demo:       demo,
		ttl:        ttl,
		metrics:    metrics,
		logger:     logger,
	}
}

// Login signs the demo identity into sessionID, or into a fresh session when
// sessionID is empty or unknown. It never fails for lack of credentials.
func (uc *UseCase) Login(ctx context.Context, sessionID string) (*LoginResult, error) {
	return usecase.ExecuteCommand(ctx, uc.dispatcher, "auth.login", func(ctx context.Context) (*LoginResult, error) {
		now := time.Now()

		session, err := uc.loadOrCreate(ctx, sessionID, now)
		if err != nil {
			return nil, err
		}

		user, onboarded, err := uc.ensureDemoUser(ctx)
		if err != nil {
			return nil, err
		}

		session.Login(user.ID)
		session.ExpiresAt = now.Add(uc.ttl)
		if err := uc.repos.Sessions.Save(ctx, session); err != nil {
			return nil, err
		}

		if _, err := uc.notifier.Push(ctx, user.ID, "Signed in", "Welcome back, "+user.Name+".", domain.SeveritySuccess); err != nil {
			uc.logger.Warn("login notification failed", zap.Error(err))
		}

		uc.metrics.Count("auth.login")
		uc.logger.Info("user signed in",
			zap.String("session_id", session.ID),
			zap.String("user_id", user.ID),
			zap.Bool("onboarded", onboarded))

		return &LoginResult{Session: session, User: user, Onboarded: onboarded}, nil
	})
}

// Logout clears the identity but keeps the session so the client lands on
// the sign-in view.
func (uc *UseCase) Logout(ctx context.Context, sessionID string) (*domain.Session, error) {
	return usecase.ExecuteCommand(ctx, uc.dispatcher, "auth.logout", func(ctx context.Context) (*domain.Session, error) {
		session, err := uc.repos.Sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		userID := session.UserID
		session.Logout()
		if err := uc.repos.Sessions.Save(ctx, session); err != nil {
			return nil, err
		}
		uc.metrics.Count("auth.logout")
		uc.logger.Info("user signed out", zap.String("session_id", session.ID), zap.String("user_id", userID))
		return session, nil
	})
}

func (uc *UseCase) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "auth.session", func(ctx context.Context) (*domain.Session, error) {
		return uc.repos.Sessions.Get(ctx, sessionID)
	})
}

// CurrentUser resolves the signed-in user of a session.
func (uc *UseCase) CurrentUser(ctx context.Context, sessionID string) (*domain.User, error) {
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "auth.current_user", func(ctx context.Context) (*domain.User, error) {
		session, err := uc.repos.Sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !session.Authenticated() {
			return nil, domain.ErrUnauthorized
		}
		return uc.repos.Users.GetByID(ctx, session.UserID)
	})
}

// Refresh pushes the session expiry forward by ttl (the configured TTL when
// ttl is not positive).
func (uc *UseCase) Refresh(ctx context.Context, sessionID string, ttl time.Duration) (*domain.Session, error) {
	if ttl <= 0 {
		ttl = uc.ttl
	}
	return usecase.ExecuteCommand(ctx, uc.dispatcher, "auth.refresh", func(ctx context.Context) (*domain.Session, error) {
		if err := uc.repos.Sessions.Extend(ctx, sessionID, int(ttl.Seconds())); err != nil {
			return nil, err
		}
		return uc.repos.Sessions.Get(ctx, sessionID)
	})
}

func (uc *UseCase) loadOrCreate(ctx context.Context, sessionID string, now time.Time) (*domain.Session, error) {
	if sessionID != "" {
		session, err := uc.repos.Sessions.Get(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
	}
	return &domain.Session{
		ID:        uuid.NewString(),
		View:      domain.ViewHome,
		CreatedAt: now,
	}, nil
}

func (uc *UseCase) ensureDemoUser(ctx context.Context) (*domain.User, bool, error) {
	user, err := uc.repos.Users.GetByID(ctx, uc.demo.User.ID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, err
	}

	fresh := uc.demo.User
	if err := uc.repos.Users.Upsert(ctx, &fresh); err != nil {
		return nil, false, err
	}
	for _, listingID := range uc.demo.OwnedListings {
		if _, err := uc.repos.Entitlements.Grant(ctx, fresh.ID, listingID); err != nil {
			return nil, false, err
		}
	}
	// Ledger fixtures are newest-first; append oldest first so order survives.
	for i := len(uc.demo.Transactions) - 1; i >= 0; i-- {
		tx := uc.demo.Transactions[i]
		tx.UserID = fresh.ID
		if err := uc.repos.Transactions.Append(ctx, &tx); err != nil {
			return nil, false, err
		}
	}
	if uc.demo.WelcomeTitle != "" {
		if _, err := uc.notifier.Push(ctx, fresh.ID, uc.demo.WelcomeTitle, uc.demo.WelcomeMessage, domain.SeverityInfo); err != nil {
			uc.logger.Warn("welcome notification failed", zap.Error(err))
		}
	}
	uc.logger.Info("demo account onboarded", zap.String("user_id", fresh.ID))
	return &fresh, true, nil
}
