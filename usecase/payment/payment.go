package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/internal/services/deferred"
	"github.com/fastygo/nexus/repository"
	"github.com/fastygo/nexus/usecase"
)

var errNotForSale = domain.NewError(domain.ErrCodeConflict, "listing is not available for purchase")

// Purchaser grants ownership once a flow settles.
type Purchaser interface {
	Purchase(ctx context.Context, userID, listingID string) (*domain.Listing, error)
}

// Wallet debits the in-app balance and returns debits that could not be
// honoured.
type Wallet interface {
	Charge(ctx context.Context, userID string, amount float64, description string) (*domain.Transaction, error)
	Refund(ctx context.Context, userID string, amount float64, description string) (*domain.Transaction, error)
}

type Repositories struct {
	Flows        repository.PaymentRepository
	Listings     repository.ListingRepository
	Entitlements repository.EntitlementRepository
	Users        repository.UserRepository
}

type Config struct {
	ProcessingDelay time.Duration
}

// UseCase drives checkout: confirm, method, processing, success.
type UseCase struct {
	dispatcher *usecase.Dispatcher
	repos      Repositories
	purchaser  Purchaser
	wallet     Wallet
	scheduler  usecase.Scheduler
	cfg        Config
	metrics    usecase.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func New(
	dispatcher *usecase.Dispatcher,
	repos Repositories,
	purchaser Purchaser,
	wallet Wallet,
	scheduler usecase.Scheduler,
	cfg Config,
	metrics usecase.Metrics,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = usecase.NopMetrics{}
	}
	return &UseCase{
		dispatcher: dispatcher,
		repos:      repos,
		purchaser:  purchaser,
		wallet:     wallet,
		scheduler:  scheduler,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Start opens a checkout for a published listing the user does not own.
func (uc *UseCase) Start(ctx context.Context, userID, listingID string) (*domain.PaymentFlow, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return usecase.ExecuteCommand(ctx, uc.dispatcher, "payment.start", func(ctx context.Context) (*domain.PaymentFlow, error) {
		listing, err := uc.repos.Listings.GetByID(ctx, listingID)
		if err != nil {
			return nil, err
		}
		if !listing.IsPublished() {
			return nil, errNotForSale
		}
		owned, err := uc.repos.Entitlements.IsOwned(ctx, userID, listingID)
		if err != nil {
			return nil, err
		}
		if owned {
			return nil, domain.ErrAlreadyOwned
		}

		flow := domain.NewPaymentFlow(uuid.NewString(), userID, listing, uc.now())
		if err := uc.repos.Flows.Save(ctx, flow); err != nil {
			return nil, err
		}
		uc.logger.Info("checkout started",
			zap.String("flow_id", flow.ID),
			zap.String("listing_id", listingID),
			zap.Float64("amount", flow.Amount))
		return flow, nil
	})
}

func (uc *UseCase) Get(ctx context.Context, userID, flowID string) (*domain.PaymentFlow, error) {
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "payment.get", func(ctx context.Context) (*domain.PaymentFlow, error) {
		return uc.load(ctx, userID, flowID)
	})
}

func (uc *UseCase) Confirm(ctx context.Context, userID, flowID string) (*domain.PaymentFlow, error) {
	return uc.step(ctx, "payment.confirm", userID, flowID, func(_ context.Context, f *domain.PaymentFlow) error {
		return f.Confirm()
	})
}

// SelectMethod picks how to pay. The wallet is only accepted when it covers
// the amount.
func (uc *UseCase) SelectMethod(ctx context.Context, userID, flowID string, method domain.PaymentMethod) (*domain.PaymentFlow, error) {
	return uc.step(ctx, "payment.method", userID, flowID, func(ctx context.Context, f *domain.PaymentFlow) error {
		if err := f.ChooseMethod(method); err != nil {
			return err
		}
		return uc.checkFunds(ctx, f)
	})
}

// Pay moves the flow to processing and settles it after the configured
// delay. Wallet funds are taken here, in the same command, so the balance
// cannot drain away before settlement. Paying twice is an invalid transition.
func (uc *UseCase) Pay(ctx context.Context, userID, flowID string) (*domain.PaymentFlow, error) {
	flow, err := uc.step(ctx, "payment.pay", userID, flowID, func(ctx context.Context, f *domain.PaymentFlow) error {
		if err := f.BeginProcessing(); err != nil {
			return err
		}
		if !uc.walletPays(f) {
			return nil
		}
		if _, err := uc.wallet.Charge(ctx, f.UserID, f.Amount, "Purchase: "+f.Title); err != nil {
			return err
		}
		f.Charged = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if uc.scheduler != nil {
		uc.scheduler.Schedule("payment:"+flow.ID, uc.cfg.ProcessingDelay, uc.settle(flow.ID))
	} else {
		uc.settle(flow.ID)(ctx)
	}
	return flow, nil
}

// Cancel abandons a flow that has not reached processing.
func (uc *UseCase) Cancel(ctx context.Context, userID, flowID string) (*domain.PaymentFlow, error) {
	return usecase.ExecuteCommand(ctx, uc.dispatcher, "payment.cancel", func(ctx context.Context) (*domain.PaymentFlow, error) {
		flow, err := uc.load(ctx, userID, flowID)
		if err != nil {
			return nil, err
		}
		if err := flow.Cancel(); err != nil {
			return nil, err
		}
		if err := uc.repos.Flows.Delete(ctx, flow.ID); err != nil {
			return nil, err
		}
		uc.metrics.Count("payment.cancelled")
		return flow, nil
	})
}

// settle completes a processing flow. Ownership is granted before the flow is
// marked successful; when it cannot be granted any charge is returned and the
// flow ends refunded. Succeed and Refund only report true once, so a repeated
// run cannot purchase or refund twice.
func (uc *UseCase) settle(flowID string) deferred.Job {
	return func(ctx context.Context) {
		err := uc.dispatcher.Command(ctx, "payment.settle", func(ctx context.Context) error {
			flow, err := uc.repos.Flows.Get(ctx, flowID)
			if err != nil {
				return err
			}
			if flow.Step != domain.StepProcessing {
				return nil
			}

			owned, err := uc.repos.Entitlements.IsOwned(ctx, flow.UserID, flow.ListingID)
			if err != nil {
				return err
			}
			if owned {
				uc.logger.Warn("listing owned before settlement, returning charge",
					zap.String("flow_id", flow.ID),
					zap.String("listing_id", flow.ListingID))
				if err := uc.returnCharge(ctx, flow); err != nil {
					return err
				}
				flow.Succeed(uc.now())
				return uc.repos.Flows.Save(ctx, flow)
			}

			if _, err := uc.purchaser.Purchase(ctx, flow.UserID, flow.ListingID); err != nil {
				uc.logger.Warn("purchase failed at settlement, refunding",
					zap.String("flow_id", flow.ID),
					zap.String("listing_id", flow.ListingID),
					zap.Error(err))
				if err := uc.returnCharge(ctx, flow); err != nil {
					return err
				}
				flow.Refund(uc.now())
				uc.metrics.Count("payment.refunded")
				return uc.repos.Flows.Save(ctx, flow)
			}

			flow.Succeed(uc.now())
			if err := uc.repos.Flows.Save(ctx, flow); err != nil {
				return err
			}
			uc.metrics.Count("payment.completed")
			uc.logger.Info("payment completed",
				zap.String("flow_id", flow.ID),
				zap.String("method", string(flow.Method)),
				zap.Float64("amount", flow.Amount))
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			uc.logger.Error("payment settlement failed", zap.String("flow_id", flowID), zap.Error(err))
		}
	}
}

// returnCharge credits back what Pay took from the wallet.
func (uc *UseCase) returnCharge(ctx context.Context, f *domain.PaymentFlow) error {
	if !f.Charged {
		return nil
	}
	if _, err := uc.wallet.Refund(ctx, f.UserID, f.Amount, "Refund: "+f.Title); err != nil {
		return err
	}
	f.Charged = false
	return nil
}

func (uc *UseCase) walletPays(f *domain.PaymentFlow) bool {
	return f.Method == domain.MethodWallet && uc.wallet != nil && f.Amount > 0
}

func (uc *UseCase) step(ctx context.Context, name, userID, flowID string, fn func(context.Context, *domain.PaymentFlow) error) (*domain.PaymentFlow, error) {
	return usecase.ExecuteCommand(ctx, uc.dispatcher, name, func(ctx context.Context) (*domain.PaymentFlow, error) {
		flow, err := uc.load(ctx, userID, flowID)
		if err != nil {
			return nil, err
		}
		if err := fn(ctx, flow); err != nil {
			return nil, err
		}
		if err := uc.repos.Flows.Save(ctx, flow); err != nil {
			return nil, err
		}
		return flow, nil
	})
}

func (uc *UseCase) load(ctx context.Context, userID, flowID string) (*domain.PaymentFlow, error) {
	flow, err := uc.repos.Flows.Get(ctx, flowID)
	if err != nil {
		return nil, err
	}
	if flow.UserID != userID {
		return nil, domain.ErrPaymentNotFound
	}
	return flow, nil
}

func (uc *UseCase) checkFunds(ctx context.Context, f *domain.PaymentFlow) error {
	if f.Method != domain.MethodWallet {
		return nil
	}
	user, err := uc.repos.Users.GetByID(ctx, f.UserID)
	if err != nil {
		return err
	}
	if !user.CanAfford(f.Amount) {
		return domain.ErrInsufficientFunds
	}
	return nil
}
