package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/repository"
	"github.com/fastygo/nexus/usecase"
)

// Feed is the notification list shown to one user.
type Feed struct {
	Items  []domain.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

type UseCase struct {
	dispatcher *usecase.Dispatcher
	repo       repository.NotificationRepository
	metrics    usecase.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func New(dispatcher *usecase.Dispatcher, repo repository.NotificationRepository, metrics usecase.Metrics, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = usecase.NopMetrics{}
	}
	return &UseCase{
		dispatcher: dispatcher,
		repo:       repo,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Push prepends a new unread entry to the user's feed.
func (uc *UseCase) Push(ctx context.Context, userID, title, message string, severity domain.Severity) (*domain.Notification, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if !severity.Valid() {
		severity = domain.SeverityInfo
	}
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Severity:  severity,
		CreatedAt: uc.now(),
	}
	err := uc.dispatcher.Command(ctx, "notification.push", func(ctx context.Context) error {
		return uc.repo.Push(ctx, n)
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.Count("notification." + string(severity))
	return n, nil
}

func (uc *UseCase) List(ctx context.Context, userID string) (*Feed, error) {
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "notification.list", func(ctx context.Context) (*Feed, error) {
		items, err := uc.repo.List(ctx, userID)
		if err != nil {
			return nil, err
		}
		feed := &Feed{Items: items}
		for _, n := range items {
			if !n.Read {
				feed.Unread++
			}
		}
		return feed, nil
	})
}

func (uc *UseCase) MarkRead(ctx context.Context, userID, id string) error {
	return uc.dispatcher.Command(ctx, "notification.mark_read", func(ctx context.Context) error {
		return uc.repo.MarkRead(ctx, userID, id)
	})
}

func (uc *UseCase) ClearAll(ctx context.Context, userID string) error {
	return uc.dispatcher.Command(ctx, "notification.clear", func(ctx context.Context) error {
		return uc.repo.Clear(ctx, userID)
	})
}

var _ usecase.Notifier = (*UseCase)(nil)
