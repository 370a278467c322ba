package redis

import (
	"context"
	"encoding/json"
	"fmt"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
)

type notificationRepository struct {
	client redislib.Cmdable
	prefix string
	limit  int
}

// NewNotificationRepository keeps each feed in a capped Redis list, newest at
// the head.
func NewNotificationRepository(client redislib.Cmdable, limit int) repository.NotificationRepository {
	if limit <= 0 {
		limit = 50
	}
	return &notificationRepository{client: client, prefix: "nexus:notifications:", limit: limit}
}

func (r *notificationRepository) Push(ctx context.Context, n *domain.Notification) error {
	if n == nil || n.ID == "" || n.UserID == "" {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	key := r.key(n.UserID)
	_, err = r.client.TxPipelined(ctx, func(pipe redislib.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, int64(r.limit-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis push notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	raw, err := r.client.LRange(ctx, r.key(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list notifications: %w", err)
	}
	out := make([]domain.Notification, 0, len(raw))
	for _, item := range raw {
		var n domain.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// MarkRead rewrites the matching element in place. Writers are serialized by
// the application dispatcher, so read-modify-write is safe here.
func (r *notificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	feed, err := r.List(ctx, userID)
	if err != nil {
		return err
	}
	for i := range feed {
		if feed[i].ID != id {
			continue
		}
		if feed[i].Read {
			return nil
		}
		feed[i].Read = true
		payload, err := json.Marshal(feed[i])
		if err != nil {
			return err
		}
		return r.client.LSet(ctx, r.key(userID), int64(i), payload).Err()
	}
	return domain.ErrNotificationNotFound
}

func (r *notificationRepository) Clear(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}

func (r *notificationRepository) key(userID string) string {
	return r.prefix + userID
}
