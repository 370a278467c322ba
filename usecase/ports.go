package usecase

import (
	"context"
	"time"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/internal/services/deferred"
)

const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// OperationBuffer abstracts the write-behind buffer so use cases stay storage-agnostic.
type OperationBuffer interface {
	BufferListing(ctx context.Context, operation string, listing *domain.Listing) error
	BufferProfile(ctx context.Context, operation string, user *domain.User) error
}

// Notifier appends to a user's notification feed.
type Notifier interface {
	Push(ctx context.Context, userID, title, message string, severity domain.Severity) (*domain.Notification, error)
}

// Scheduler runs delayed jobs keyed by record ID.
type Scheduler interface {
	Schedule(key string, delay time.Duration, job deferred.Job) *deferred.Handle
	Cancel(key string) bool
}

// Metrics receives business events and operation timings.
type Metrics interface {
	Count(event string)
	ObserveOperation(name string, took time.Duration, err error)
}

type NopMetrics struct{}

func (NopMetrics) Count(string) {}
func (NopMetrics) ObserveOperation(string, time.Duration, error) {}
