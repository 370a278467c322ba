package repository

import (
	"context"

	"github.com/fastygo/nexus/domain"
)

type PaymentRepository interface {
	Get(ctx context.Context, id string) (*domain.PaymentFlow, error)
	Save(ctx context.Context, flow *domain.PaymentFlow) error
	Delete(ctx context.Context, id string) error
}
