package wallet

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
	"github.com/fastygo/nexus/usecase"
)

const dateLayout = "2006-01-02"

// Summary is the wallet view: balance plus ledger, newest first.
type Summary struct {
	Balance      float64              `json:"balance"`
	Transactions []domain.Transaction `json:"transactions"`
}

type UseCase struct {
	dispatcher   *usecase.Dispatcher
	users        repository.UserRepository
	transactions repository.TransactionRepository
	notifier     usecase.Notifier
	metrics      usecase.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

func New(
	dispatcher *usecase.Dispatcher,
	users repository.UserRepository,
	transactions repository.TransactionRepository,
	notifier usecase.Notifier,
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
		dispatcher:   dispatcher,
		users:        users,
		transactions: transactions,
		notifier:     notifier,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

func (uc *UseCase) Summary(ctx context.Context, userID string) (*Summary, error) {
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "wallet.summary", func(ctx context.Context) (*Summary, error) {
		user, err := uc.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		txs, err := uc.transactions.List(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &Summary{Balance: domain.RoundMoney(user.Balance), Transactions: txs}, nil
	})
}

// Deposit tops the wallet up immediately.
func (uc *UseCase) Deposit(ctx context.Context, userID string, amount float64) (*domain.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return usecase.ExecuteCommand(ctx, uc.dispatcher, "wallet.deposit", func(ctx context.Context) (*domain.Transaction, error) {
		tx, err := uc.post(ctx, userID, domain.TransactionDeposit, amount, domain.TransactionCompleted, "Wallet top-up")
		if err != nil {
			return nil, err
		}
		uc.metrics.Count("wallet.deposit")
		return tx, nil
	})
}

// Withdraw moves funds out of the wallet. The balance drops at once; the
// ledger line stays pending until the payout settles.
func (uc *UseCase) Withdraw(ctx context.Context, userID string, amount float64) (*domain.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return usecase.ExecuteCommand(ctx, uc.dispatcher, "wallet.withdraw", func(ctx context.Context) (*domain.Transaction, error) {
		tx, err := uc.post(ctx, userID, domain.TransactionWithdrawal, -amount, domain.TransactionPending, "Withdrawal to linked account")
		if err != nil {
			return nil, err
		}
		if uc.notifier != nil {
			msg := fmt.Sprintf("Withdrawal of %.2f is being processed.", amount)
			if _, err := uc.notifier.Push(ctx, userID, "Withdrawal requested", msg, domain.SeverityInfo); err != nil {
				uc.logger.Warn("notification failed", zap.Error(err))
			}
		}
		uc.metrics.Count("wallet.withdraw")
		return tx, nil
	})
}

// Charge debits the wallet for a purchase.
func (uc *UseCase) Charge(ctx context.Context, userID string, amount float64, description string) (*domain.Transaction, error) {
	if amount < 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "amount must not be negative")
	}
	return usecase.ExecuteCommand(ctx, uc.dispatcher, "wallet.charge", func(ctx context.Context) (*domain.Transaction, error) {
		return uc.post(ctx, userID, domain.TransactionPurchase, -amount, domain.TransactionCompleted, description)
	})
}

// Refund returns a purchase debit to the wallet.
func (uc *UseCase) Refund(ctx context.Context, userID string, amount float64, description string) (*domain.Transaction, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}
	return usecase.ExecuteCommand(ctx, uc.dispatcher, "wallet.refund", func(ctx context.Context) (*domain.Transaction, error) {
		tx, err := uc.post(ctx, userID, domain.TransactionRefund, amount, domain.TransactionCompleted, description)
		if err != nil {
			return nil, err
		}
		uc.metrics.Count("wallet.refund")
		return tx, nil
	})
}

// post applies a signed amount to the balance and records it. Debits beyond
// the balance fail with ErrInsufficientFunds.
func (uc *UseCase) post(ctx context.Context, userID string, kind domain.TransactionType, amount float64, status domain.TransactionStatus, description string) (*domain.Transaction, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if amount < 0 && !user.CanAfford(-amount) {
		return nil, domain.ErrInsufficientFunds
	}

	now := uc.now()
	user.Balance = domain.RoundMoney(user.Balance + amount)
	user.Touch(now)
	if err := uc.users.Upsert(ctx, user); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		UserID:      userID,
		Type:        kind,
		Amount:      domain.RoundMoney(amount),
		Date:        now.Format(dateLayout),
		Status:      status,
		Description: description,
		CreatedAt:   now,
	}
	if err := uc.transactions.Append(ctx, tx); err != nil {
		return nil, err
	}
	uc.logger.Info("wallet posted",
		zap.String("user_id", userID),
		zap.String("type", string(kind)),
		zap.Float64("amount", tx.Amount),
		zap.Float64("balance", user.Balance))
	return tx, nil
}

func checkAmount(amount float64) error {
	if domain.RoundMoney(amount) <= 0 {
		return domain.NewError(domain.ErrCodeInvalid, "amount must be positive")
	}
	return nil
}
