package repository

import (
	"context"

	"github.com/fastygo/nexus/domain"
)

type TransactionRepository interface {
	Append(ctx context.Context, tx *domain.Transaction) error
	List(ctx context.Context, userID string) ([]domain.Transaction, error)
}
