package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
)

type transactionRepository struct {
	mu      sync.RWMutex
	ledgers map[string][]domain.Transaction
}

func NewTransactionRepository() repository.TransactionRepository {
	return &transactionRepository{ledgers: make(map[string][]domain.Transaction)}
}

// Append records tx at the head of the user's ledger.
func (r *transactionRepository) Append(_ context.Context, tx *domain.Transaction) error {
	if tx == nil || tx.UserID == "" {
		return domain.ErrInvalidPayload
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ledgers[tx.UserID] = append([]domain.Transaction{*tx}, r.ledgers[tx.UserID]...)
	return nil
}

func (r *transactionRepository) List(_ context.Context, userID string) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Transaction{}, r.ledgers[userID]...), nil
}
