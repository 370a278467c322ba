package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/internal/infrastructure/buffer"
	"github.com/fastygo/nexus/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// Store is the write-behind queue the processor drains.
type Store interface {
	Enqueue(item buffer.Item) error
	GetBatch(limit int) ([]buffer.Item, error)
	Remove(item buffer.Item) error
	Requeue(item buffer.Item) error
	Size() (int, error)
	Cleanup(olderThan time.Time) (int, error)
}

// ReviewQueue re-arms moderation for a listing whose write only reached
// storage on replay. released marks an update of a live listing.
type ReviewQueue interface {
	ResumeReview(listing *domain.Listing, released bool)
}

// ProcessorConfig controls how frequently the buffer is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// BufferProcessor replays catalog and profile writes that were parked while
// Postgres was unreachable.
type BufferProcessor struct {
	store    Store
	monitor  ConnectionHealth
	users    repository.UserRepository
	listings repository.ListingRepository
	reviews  ReviewQueue
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      ProcessorConfig
}

func NewBufferProcessor(
	store Store,
	monitor ConnectionHealth,
	users repository.UserRepository,
	listings repository.ListingRepository,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *BufferProcessor {
	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:    store,
		monitor:  monitor,
		users:    users,
		listings: listings,
		logger:   logger.Named("buffer"),
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}

	_, _ = bp.cron.AddFunc("@every "+cfg.Interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := bp.Drain(ctx); err != nil {
			bp.logger.Error("buffer drain failed", zap.Error(err))
		}
	})
	_, _ = bp.cron.AddFunc("@hourly", func() {
		if _, err := bp.Cleanup(time.Now()); err != nil {
			bp.logger.Error("buffer cleanup failed", zap.Error(err))
		}
	})

	return bp
}

// WithReviews hands replayed listings that still await review back to
// moderation. Call it before Start.
func (bp *BufferProcessor) WithReviews(q ReviewQueue) *BufferProcessor {
	bp.reviews = q
	return bp
}

// Start launches the cron scheduler.
func (bp *BufferProcessor) Start() {
	if bp == nil || bp.store == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started", zap.Duration("interval", bp.cfg.Interval))
}

// Stop waits for a running drain or until ctx ends.
func (bp *BufferProcessor) Stop(ctx context.Context) error {
	if bp == nil || bp.cron == nil {
		return nil
	}
	stopCtx := bp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	bp.logger.Info("buffer processor stopped")
	return nil
}

// Drain replays one batch and reports how many writes reached the store.
// Nothing is attempted while the monitor reports the database offline.
func (bp *BufferProcessor) Drain(ctx context.Context) (int, error) {
	if bp == nil || bp.store == nil {
		return 0, nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return 0, nil
	}

	items, err := bp.store.GetBatch(bp.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("read buffer batch: %w", err)
	}

	replayed := 0
	for _, item := range items {
		if err := bp.replay(ctx, item); err != nil {
			bp.logger.Warn("buffered write failed",
				zap.String("item_id", item.ID),
				zap.String("entity", item.Entity),
				zap.String("record_id", item.RecordID),
				zap.Int("retries", item.Retries),
				zap.Error(err))

			item.Retries++
			if item.Retries >= bp.cfg.MaxRetries {
				bp.logger.Error("dropping buffered write (max retries reached)", zap.String("item_id", item.ID))
				_ = bp.store.Remove(item)
				continue
			}
			if err := bp.store.Requeue(item); err != nil {
				bp.logger.Error("failed to requeue buffer item", zap.Error(err))
			}
			continue
		}

		replayed++
		if err := bp.store.Remove(item); err != nil {
			bp.logger.Warn("failed to purge processed buffer item", zap.Error(err))
		}
	}
	if replayed > 0 {
		bp.logger.Info("buffered writes replayed", zap.Int("count", replayed))
	}
	return replayed, nil
}

// Cleanup drops writes older than the retention window measured from now.
func (bp *BufferProcessor) Cleanup(now time.Time) (int, error) {
	if bp == nil || bp.store == nil {
		return 0, nil
	}
	dropped, err := bp.store.Cleanup(now.Add(-bp.cfg.Retention))
	if dropped > 0 {
		bp.logger.Warn("expired buffered writes dropped", zap.Int("count", dropped))
	}
	return dropped, err
}

// Park persists an item for later replay.
func (bp *BufferProcessor) Park(item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return fmt.Errorf("buffer processor not configured")
	}
	return bp.store.Enqueue(item)
}

// Size returns the number of buffered items.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

// replay applies one write. Replays are idempotent: a create that finds the
// row becomes an update, an update that misses it becomes a create and a
// delete of a missing row succeeds.
func (bp *BufferProcessor) replay(ctx context.Context, item buffer.Item) error {
	switch item.Entity {
	case buffer.EntityProfile:
		var user domain.User
		if err := json.Unmarshal(item.Data, &user); err != nil {
			return err
		}
		return bp.users.Upsert(ctx, &user)

	case buffer.EntityListing:
		var listing domain.Listing
		if err := json.Unmarshal(item.Data, &listing); err != nil {
			return err
		}
		switch item.Operation {
		case buffer.OperationCreate:
			_, err := bp.listings.Create(ctx, &listing)
			if domain.IsDomainError(err, domain.ErrCodeConflict) {
				err = bp.listings.Update(ctx, &listing)
			}
			if err != nil {
				return err
			}
			bp.resumeReview(&listing, false)
			return nil
		case buffer.OperationUpdate:
			err := bp.listings.Update(ctx, &listing)
			if errors.Is(err, domain.ErrListingNotFound) {
				_, err = bp.listings.Create(ctx, &listing)
			}
			if err != nil {
				return err
			}
			bp.resumeReview(&listing, true)
			return nil
		case buffer.OperationDelete:
			err := bp.listings.Delete(ctx, listing.ID)
			if errors.Is(err, domain.ErrListingNotFound) {
				return nil
			}
			return err
		default:
			return fmt.Errorf("unsupported operation %s", item.Operation)
		}
	default:
		return fmt.Errorf("unsupported entity %s", item.Entity)
	}
}

// resumeReview reschedules approval for a replayed listing still under
// review. The approval armed at publish time ran against a store that did not
// have this row yet.
func (bp *BufferProcessor) resumeReview(listing *domain.Listing, released bool) {
	if bp.reviews == nil || listing.Status != domain.StatusUnderReview {
		return
	}
	bp.reviews.ResumeReview(listing, released)
	bp.logger.Debug("review resumed after replay", zap.String("listing_id", listing.ID))
}
