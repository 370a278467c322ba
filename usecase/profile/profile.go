package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/internal/validation"
	"github.com/fastygo/nexus/repository"
	"github.com/fastygo/nexus/usecase"
)

// UpdateRequest carries the account settings a user may change.
type UpdateRequest struct {
	Name      string `json:"name" validate:"required,max=80"`
	Email     string `json:"email" validate:"omitempty,email"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

type UseCase struct {
	dispatcher *usecase.Dispatcher
	users      repository.UserRepository
	buffer     usecase.OperationBuffer
	notifier   usecase.Notifier
	validator  *validation.Validator
	logger     *zap.Logger
}

func New(dispatcher *usecase.Dispatcher, users repository.UserRepository, buffer usecase.OperationBuffer, notifier usecase.Notifier, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		dispatcher: dispatcher,
		users:      users,
		buffer:     buffer,
		notifier:   notifier,
		validator:  validation.New(),
		logger:     logger,
	}
}

func (uc *UseCase) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	return usecase.ExecuteQuery(ctx, uc.dispatcher, "profile.get", func(ctx context.Context) (*domain.User, error) {
		return uc.users.GetByID(ctx, userID)
	})
}

func (uc *UseCase) UpdateProfile(ctx context.Context, userID string, req UpdateRequest) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := uc.validator.Struct(req); err != nil {
		return nil, err
	}

	return usecase.ExecuteCommand(ctx, uc.dispatcher, "profile.update", func(ctx context.Context) (*domain.User, error) {
		user, err := uc.users.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		user.Name = req.Name
		user.Email = req.Email
		user.AvatarURL = req.AvatarURL
		user.Touch(time.Now())

		if err := uc.users.Upsert(ctx, user); err != nil {
			var dErr *domain.Error
			if uc.buffer == nil || errors.As(err, &dErr) {
				return nil, err
			}
			if bufErr := uc.buffer.BufferProfile(ctx, usecase.OperationUpdate, user); bufErr != nil {
				uc.logger.Error("failed to buffer profile update", zap.Error(bufErr))
				return nil, err
			}
			uc.logger.Warn("profile update buffered due to repository error", zap.Error(err))
		}

		if uc.notifier != nil {
			if _, err := uc.notifier.Push(ctx, userID, "Profile updated", "Your account settings were saved.", domain.SeveritySuccess); err != nil {
				uc.logger.Warn("notification failed", zap.Error(err))
			}
		}
		return user, nil
	})
}
