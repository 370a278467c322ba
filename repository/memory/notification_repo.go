package memory

import (
	"context"
	"sync"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
)

type notificationRepository struct {
	mu    sync.Mutex
	feeds map[string][]domain.Notification
	limit int
}

// NewNotificationRepository keeps at most limit entries per user; older ones
// fall off the end.
func NewNotificationRepository(limit int) repository.NotificationRepository {
	if limit <= 0 {
		limit = 50
	}
	return &notificationRepository{feeds: make(map[string][]domain.Notification), limit: limit}
}

func (r *notificationRepository) Push(_ context.Context, n *domain.Notification) error {
	if n == nil || n.ID == "" || n.UserID == "" {
		return domain.ErrInvalidPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	feed := append([]domain.Notification{*n}, r.feeds[n.UserID]...)
	if len(feed) > r.limit {
		feed = feed[:r.limit]
	}
	r.feeds[n.UserID] = feed
	return nil
}

func (r *notificationRepository) List(_ context.Context, userID string) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification{}, r.feeds[userID]...), nil
}

func (r *notificationRepository) MarkRead(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	feed := r.feeds[userID]
	for i := range feed {
		if feed[i].ID == id {
			feed[i].Read = true
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

func (r *notificationRepository) Clear(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.feeds, userID)
	return nil
}
