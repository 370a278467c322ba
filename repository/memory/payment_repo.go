package memory

import (
	"context"
	"sync"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
)

type paymentRepository struct {
	mu    sync.Mutex
	flows map[string]*domain.PaymentFlow
}

func NewPaymentRepository() repository.PaymentRepository {
	return &paymentRepository{flows: make(map[string]*domain.PaymentFlow)}
}

func (r *paymentRepository) Get(_ context.Context, id string) (*domain.PaymentFlow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	flow, ok := r.flows[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	return flow.Clone(), nil
}

func (r *paymentRepository) Save(_ context.Context, flow *domain.PaymentFlow) error {
	if flow == nil || flow.ID == "" {
		return domain.ErrInvalidPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[flow.ID] = flow.Clone()
	return nil
}

func (r *paymentRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows, id)
	return nil
}
