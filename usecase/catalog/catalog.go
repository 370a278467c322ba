package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/internal/services/deferred"
	"github.com/fastygo/nexus/internal/validation"
	"github.com/fastygo/nexus/repository"
	"github.com/fastygo/nexus/usecase"
)

const (
	initialVersion = "1.0.0"
	approvalNote   = "General update and optimization"
	dateLayout     = "2006-01-02"
)

type Config struct {
	ApprovalDelay   time.Duration
	LeaderboardSize int
}

// UseCase owns the listing catalog and its moderation lifecycle.
type UseCase struct {
	dispatcher   *usecase.Dispatcher
	listings     repository.ListingRepository
	entitlements repository.EntitlementRepository
	notifier     usecase.Notifier
	scheduler    usecase.Scheduler
	buffer       usecase.OperationBuffer
	validator    *validation.Validator
	cfg          Config
	metrics      usecase.Metrics
	logger       *zap.Logger
	now          func() time.Time
}

func New(
	dispatcher *usecase.Dispatcher,
	listings repository.ListingRepository,
	entitlements repository.EntitlementRepository,
	notifier usecase.Notifier,
	scheduler usecase.Scheduler,
	cfg Config,
	metrics usecase.Metrics,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = usecase.NopMetrics{}
	}
	if cfg.LeaderboardSize <= 0 {
		cfg.LeaderboardSize = 10
	}
	return &UseCase{
		dispatcher:   dispatcher,
		listings:     listings,
		entitlements: entitlements,
		notifier:     notifier,
		scheduler:    scheduler,
		validator:    validation.New(),
		cfg:          cfg,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// WithBuffer enables write-behind buffering when the listing store fails.
func (uc *UseCase) WithBuffer(buffer usecase.OperationBuffer) *UseCase {
	uc.buffer = buffer
	return uc
}

// Create submits a new listing for review on behalf of actor.
func (uc *UseCase) Create(ctx context.Context, actor *domain.User, draft Draft) (*domain.Listing, error) {
	if actor == nil || actor.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	draft.normalize()
	if err := uc.validator.Struct(draft); err != nil {
		return nil, err
	}

	return usecase.ExecuteCommand(ctx, uc.dispatcher, "catalog.create", func(ctx context.Context) (*domain.Listing, error) {
		now := uc.now()
		listing := &domain.Listing{
			ID:             uuid.NewString(),
			OwnerID:        actor.ID,
			AuthorName:     actor.Name,
			Reviews:        []domain.Review{},
			ReleaseDate:    now.Format(dateLayout),
			Status:         domain.StatusUnderReview,
			CurrentVersion: initialVersion,
			VersionHistory: []domain.VersionEntry{},
		}
		draft.apply(listing)

		if _, err := uc.listings.Create(ctx, listing); err != nil {
			if err := uc.bufferWrite(ctx, usecase.OperationCreate, listing, err); err != nil {
				return nil, err
			}
		}

		uc.scheduleApproval(listing.ID, false)
		uc.notify(ctx, actor.ID, "Submitted", fmt.Sprintf("%q has been submitted for review, please wait.", listing.Title), domain.SeverityInfo)
		uc.metrics.Count("listing.created")
		uc.logger.Info("listing submitted",
			zap.String("listing_id", listing.ID),
			zap.String("owner_id", actor.ID))
		return listing.Clone(), nil
	})
}

// Update overwrites an owned listing in place and sends it back to review.
func (uc *UseCase) Update(ctx context.Context, actor *domain.User, id string, draft Draft) (*domain.Listing, error) {
	if actor == nil || actor.ID == "" {
		return nil, domain.ErrUnauthorized
	}
	draft.normalize()
	if err := uc.validator.Struct(draft); err != nil {
		return nil, err
	}

	return usecase.ExecuteCommand(ctx, uc.dispatcher, "catalog.update", func(ctx context.Context) (*domain.Listing, error) {
		listing, err := uc.owned(ctx, actor, id)
		if err != nil {
			return nil, err
		}

		draft.apply(listing)
		listing.Status = domain.StatusUnderReview
		if draft.BumpVersion {
			listing.CurrentVersion = domain.NextVersion(listing.CurrentVersion)
		}

		if err := uc.listings.Update(ctx, listing); err != nil {
			if err := uc.bufferWrite(ctx, usecase.OperationUpdate, listing, err); err != nil {
				return nil, err
			}
		}

		uc.scheduleApproval(listing.ID, true)
		uc.notify(ctx, actor.ID, "Submitted", fmt.Sprintf("%q has been submitted for review.", listing.Title), domain.SeverityInfo)
		uc.metrics.Count("listing.updated")
		uc.logger.Info("listing resubmitted",
			zap.String("listing_id", listing.ID),
			zap.String("version", listing.CurrentVersion))
		return listing, nil
	})
}

// Delete removes an owned listing and drops its pending approval.
func (uc *UseCase) Delete(ctx context.Context, actor *domain.User, id string) error {
	if actor == nil || actor.ID == "" {
		return domain.ErrUnauthorized
	}
	return uc.dispatcher.Command(ctx, "catalog.delete", func(ctx context.Context) error {
		listing, err := uc.owned(ctx, actor, id)
		if err != nil {
			return err
		}
		if err := uc.listings.Delete(ctx, id); err != nil {
			if err := uc.bufferWrite(ctx, usecase.OperationDelete, listing, err); err != nil {
				return err
			}
		}
		if uc.scheduler != nil {
			uc.scheduler.Cancel(id)
		}

		uc.notify(ctx, actor.ID, "Deleted", fmt.Sprintf("%q has been removed from the platform.", listing.Title), domain.SeverityWarning)
		uc.metrics.Count("listing.deleted")
		uc.logger.Info("listing deleted", zap.String("listing_id", id))
		return nil
	})
}

// Seed loads listings given in catalog order, skipping IDs that already exist.
func (uc *UseCase) Seed(ctx context.Context, listings []domain.Listing) (int, error) {
	return usecase.ExecuteCommand(ctx, uc.dispatcher, "catalog.seed", func(ctx context.Context) (int, error) {
		seeded := 0
		for i := len(listings) - 1; i >= 0; i-- {
			listing := listings[i].Clone()
			_, err := uc.listings.Create(ctx, listing)
			if domain.IsDomainError(err, domain.ErrCodeConflict) {
				continue
			}
			if err != nil {
				return seeded, fmt.Errorf("seed listing %s: %w", listing.ID, err)
			}
			seeded++
		}
		return seeded, nil
	})
}

func (uc *UseCase) owned(ctx context.Context, actor *domain.User, id string) (*domain.Listing, error) {
	listing, err := uc.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != actor.ID {
		return nil, domain.ErrNotListingOwner
	}
	return listing, nil
}

// ResumeReview arms approval for a listing that reached storage late, for
// example on replay from the write-behind buffer. Listings not under review
// are ignored.
func (uc *UseCase) ResumeReview(listing *domain.Listing, released bool) {
	if listing == nil || listing.Status != domain.StatusUnderReview {
		return
	}
	uc.scheduleApproval(listing.ID, released)
}

func (uc *UseCase) scheduleApproval(id string, released bool) {
	if uc.scheduler == nil {
		return
	}
	uc.scheduler.Schedule(id, uc.cfg.ApprovalDelay, uc.approve(id, released))
}

// approve publishes the listing if it is still waiting for review. A record
// deleted or republished in the meantime is left alone.
func (uc *UseCase) approve(id string, released bool) deferred.Job {
	return func(ctx context.Context) {
		err := uc.dispatcher.Command(ctx, "catalog.approve", func(ctx context.Context) error {
			listing, err := uc.listings.GetByID(ctx, id)
			if domain.IsDomainError(err, domain.ErrCodeNotFound) {
				uc.logger.Debug("approval dropped, listing gone", zap.String("listing_id", id))
				return nil
			}
			if err != nil {
				return err
			}
			if !listing.Approve(released, uc.now().Format(dateLayout), approvalNote) {
				return nil
			}
			if err := uc.listings.Update(ctx, listing); err != nil {
				return err
			}

			uc.notify(ctx, listing.OwnerID, "Approved",
				fmt.Sprintf("Congratulations! %q passed review and is now published.", listing.Title),
				domain.SeveritySuccess)
			uc.metrics.Count("listing.published")
			uc.logger.Info("listing published",
				zap.String("listing_id", id),
				zap.String("version", listing.CurrentVersion))
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			uc.logger.Error("approval failed", zap.String("listing_id", id), zap.Error(err))
		}
	}
}

// bufferWrite parks a failed write when a buffer is configured. Domain errors
// are returned untouched.
func (uc *UseCase) bufferWrite(ctx context.Context, op string, listing *domain.Listing, cause error) error {
	var dErr *domain.Error
	if uc.buffer == nil || errors.As(cause, &dErr) {
		return cause
	}
	if err := uc.buffer.BufferListing(ctx, op, listing); err != nil {
		uc.logger.Error("listing write lost", zap.String("operation", op), zap.Error(err), zap.NamedError("cause", cause))
		return cause
	}
	uc.logger.Warn("listing write buffered",
		zap.String("operation", op),
		zap.String("listing_id", listing.ID),
		zap.Error(cause))
	return nil
}

func (uc *UseCase) notify(ctx context.Context, userID, title, message string, severity domain.Severity) {
	if uc.notifier == nil || userID == "" {
		return
	}
	if _, err := uc.notifier.Push(ctx, userID, title, message, severity); err != nil {
		uc.logger.Warn("notification failed", zap.String("user_id", userID), zap.Error(err))
	}
}
