package repository

import (
	"context"

	"github.com/fastygo/nexus/domain"
)

// NotificationRepository keeps a bounded newest-first feed per user.
type NotificationRepository interface {
	Push(ctx context.Context, notification *domain.Notification) error
	List(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	Clear(ctx context.Context, userID string) error
}
