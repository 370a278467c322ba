package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/nexus/api/handler"
	"github.com/fastygo/nexus/internal/config"
	"github.com/fastygo/nexus/internal/fixtures"
	"github.com/fastygo/nexus/internal/infrastructure/buffer"
	"github.com/fastygo/nexus/internal/infrastructure/genai"
	"github.com/fastygo/nexus/internal/infrastructure/metrics"
	"github.com/fastygo/nexus/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/nexus/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/nexus/internal/infrastructure/redis"
	"github.com/fastygo/nexus/internal/middleware"
	"github.com/fastygo/nexus/internal/router"
	"github.com/fastygo/nexus/internal/services"
	"github.com/fastygo/nexus/internal/services/deferred"
	"github.com/fastygo/nexus/internal/services/lifecycle"
	"github.com/fastygo/nexus/pkg/httpcontext"
	"github.com/fastygo/nexus/repository"
	"github.com/fastygo/nexus/repository/memory"
	"github.com/fastygo/nexus/repository/postgres"
	redisRepo "github.com/fastygo/nexus/repository/redis"
	"github.com/fastygo/nexus/usecase"
	authUC "github.com/fastygo/nexus/usecase/auth"
	catalogUC "github.com/fastygo/nexus/usecase/catalog"
	creatorUC "github.com/fastygo/nexus/usecase/creator"
	libraryUC "github.com/fastygo/nexus/usecase/library"
	navigationUC "github.com/fastygo/nexus/usecase/navigation"
	notificationUC "github.com/fastygo/nexus/usecase/notification"
	paymentUC "github.com/fastygo/nexus/usecase/payment"
	profileUC "github.com/fastygo/nexus/usecase/profile"
	walletUC "github.com/fastygo/nexus/usecase/wallet"
)

// stores are the repository adapters chosen by configuration.
type stores struct {
	users         repository.UserRepository
	listings      repository.ListingRepository
	sessions      repository.SessionRepository
	entitlements  repository.EntitlementRepository
	notifications repository.NotificationRepository
	flows         repository.PaymentRepository
	transactions  repository.TransactionRepository
}

type application struct {
	handler fasthttp.RequestHandler
}

// buildApplication connects the configured drivers, seeds the catalog and
// assembles the HTTP handler. Every component it starts is registered with
// manager for shutdown.
func buildApplication(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (*application, error) {
	data, err := fixtures.Load()
	if err != nil {
		return nil, err
	}

	st := stores{
		users:         memory.NewUserRepository(),
		listings:      memory.NewListingRepository(),
		sessions:      memory.NewSessionRepository(cfg.Storage.SessionTTL),
		entitlements:  memory.NewEntitlementRepository(cfg.Market.TrialRuns),
		notifications: memory.NewNotificationRepository(cfg.Market.NotificationCap),
		flows:         memory.NewPaymentRepository(),
		transactions:  memory.NewTransactionRepository(),
	}
	mon := monitor.New(10*time.Second, logger.Named("monitor"))

	var (
		opBuffer  usecase.OperationBuffer
		processor *services.BufferProcessor
	)
	if cfg.Storage.CatalogDriver == "postgres" {
		pool, store, err := openCatalog(ctx, cfg, manager, logger)
		if err != nil {
			return nil, err
		}
		st.listings = postgres.NewListingRepository(pool)
		st.users = postgres.NewUserRepository(pool)
		mon.WatchPostgres(pool).WithBuffer(store)

		processor = services.NewBufferProcessor(store, mon, st.users, st.listings, logger, services.ProcessorConfig{
			Interval:   cfg.Buffer.SyncInterval,
			MaxRetries: cfg.Buffer.MaxRetry,
			Retention:  time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
		})
		opBuffer = services.NewBufferBridge(processor)
	}
	if cfg.Storage.StateDriver == "redis" {
		client, err := redisInfra.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		manager.RegisterCloser("redis", client.Close)
		st.sessions = redisRepo.NewSessionRepository(client, cfg.Storage.SessionTTL)
		st.entitlements = redisRepo.NewEntitlementRepository(client, cfg.Market.TrialRuns)
		st.notifications = redisRepo.NewNotificationRepository(client, cfg.Market.NotificationCap)
		mon.WatchRedis(client)
	}

	mon.Start()
	manager.Register("monitor", func(context.Context) error {
		mon.Stop()
		return nil
	})
	var (
		recorder   *metrics.Recorder
		appMetrics usecase.Metrics = usecase.NopMetrics{}
	)
	if cfg.HTTP.EnableMetrics {
		recorder = metrics.New("nexus")
		appMetrics = recorder
	}

	scheduler := deferred.New(logger.Named("deferred"))
	manager.Register("scheduler", scheduler.Stop)

	dispatcher := usecase.NewDispatcher(appMetrics, logger)
	notifications := notificationUC.New(dispatcher, st.notifications, appMetrics, logger)

	catalog := catalogUC.New(dispatcher, st.listings, st.entitlements, notifications, scheduler, catalogUC.Config{
		ApprovalDelay:   cfg.Market.ApprovalDelay,
		LeaderboardSize: cfg.Market.LeaderboardSize,
	}, appMetrics, logger)
	if opBuffer != nil {
		catalog.WithBuffer(opBuffer)
	}
	if processor != nil {
		processor.WithReviews(catalog).Start()
		manager.Register("buffer_processor", processor.Stop)
	}
	seeded, err := catalog.Seed(ctx, data.Listings)
	if err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	logger.Info("catalog ready", zap.Int("seeded", seeded), zap.String("driver", cfg.Storage.CatalogDriver))

	auth := authUC.New(dispatcher, authUC.Repositories{
		Users:        st.users,
		Sessions:     st.sessions,
		Entitlements: st.entitlements,
		Transactions: st.transactions,
	}, notifications, authUC.DemoAccount{
		User:           data.DemoUser,
		OwnedListings:  cfg.Market.DemoOwnedListings,
		Transactions:   data.Transactions,
		WelcomeTitle:   data.Welcome.Title,
		WelcomeMessage: data.Welcome.Message,
	}, cfg.Storage.SessionTTL, appMetrics, logger)

	navigation := navigationUC.New(dispatcher, st.sessions, st.users, st.listings, logger)
	library := libraryUC.New(dispatcher, libraryUC.Repositories{
		Listings:     st.listings,
		Entitlements: st.entitlements,
		Sessions:     st.sessions,
	}, notifications, appMetrics, logger)
	wallet := walletUC.New(dispatcher, st.users, st.transactions, notifications, appMetrics, logger)
	payment := paymentUC.New(dispatcher, paymentUC.Repositories{
		Flows:        st.flows,
		Listings:     st.listings,
		Entitlements: st.entitlements,
		Users:        st.users,
	}, library, wallet, scheduler, paymentUC.Config{ProcessingDelay: cfg.Market.PaymentDelay}, appMetrics, logger)
	profile := profileUC.New(dispatcher, st.users, opBuffer, notifications, logger)

	assistant, err := genai.New(ctx, genai.Config{
		APIKey:  cfg.GenAI.APIKey,
		Model:   cfg.GenAI.Model,
		Timeout: cfg.GenAI.Timeout,
	}, logger.Named("genai"))
	if err != nil {
		return nil, err
	}
	creator := creatorUC.New(assistant, creatorUC.Dashboard{Payouts: data.Payouts, Sales: data.Sales},
		creatorUC.Config{BuildStepInterval: cfg.Market.BuildStepInterval}, appMetrics, logger)

	adapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)
	tokens := middleware.NewTokens(cfg.JWT)
	handlers := router.Handlers{
		Auth:         apiHandler.NewAuthHandler(auth, tokens, adapter, logger),
		Session:      apiHandler.NewSessionHandler(navigation, adapter, logger),
		Listing:      apiHandler.NewListingHandler(catalog, adapter, logger),
		Library:      apiHandler.NewLibraryHandler(library, catalog, auth, adapter, logger),
		Payment:      apiHandler.NewPaymentHandler(payment, auth, adapter, logger),
		Notification: apiHandler.NewNotificationHandler(notifications, auth, adapter, logger),
		Profile:      apiHandler.NewProfileHandler(profile, auth, adapter, logger),
		Wallet:       apiHandler.NewWalletHandler(wallet, auth, adapter, logger),
		Creator:      apiHandler.NewCreatorHandler(catalog, creator, auth, adapter, logger),
		Health:       apiHandler.NewHealthHandler(mon, adapter, logger),
	}
	if recorder != nil {
		handlers.Metrics = recorder.Handler()
	}

	r := router.New(handlers, router.Middlewares{
		RequireSession: middleware.SessionAuth(tokens, logger),
		ResumeSession:  middleware.OptionalSession(tokens),
		AssistLimit:    middleware.NewRateLimiter(cfg.RateLimit.AssistRPS, cfg.RateLimit.AssistBurst, logger).Middleware,
	})

	return &application{handler: r.Handler}, nil
}

// openCatalog migrates and connects Postgres and opens the write-behind buffer.
func openCatalog(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, logger *zap.Logger) (*pgxpool.Pool, *buffer.Store, error) {
	if err := pgInfra.RunMigrations(cfg, logger); err != nil {
		return nil, nil, err
	}
	pool, err := pgInfra.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	manager.Register("postgres", func(context.Context) error {
		pgInfra.Close(pool, logger)
		return nil
	})

	store, err := buffer.Open(cfg.Buffer.Path, buffer.Options{MaxSize: cfg.Buffer.MaxSize})
	if err != nil {
		return nil, nil, fmt.Errorf("open buffer store: %w", err)
	}
	manager.RegisterCloser("buffer", store.Close)
	return pool, store, nil
}
