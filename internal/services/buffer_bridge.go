package services

import (
	"context"
	"encoding/json"

	"github.com/fastygo/nexus/domain"
	"github.com/fastygo/nexus/internal/infrastructure/buffer"
	"github.com/fastygo/nexus/usecase"
)

// BufferBridge turns use-case writes into buffer items.
type BufferBridge struct {
	processor *BufferProcessor
}

func NewBufferBridge(processor *BufferProcessor) *BufferBridge {
	return &BufferBridge{processor: processor}
}

func (b *BufferBridge) BufferProfile(_ context.Context, operation string, user *domain.User) error {
	if b.processor == nil || user == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return b.processor.Park(buffer.Item{
		RecordID:  user.ID,
		UserID:    user.ID,
		Entity:    buffer.EntityProfile,
		Operation: operation,
		Data:      payload,
		Priority:  3,
	})
}

// BufferListing parks catalog writes ahead of profile writes.
func (b *BufferBridge) BufferListing(_ context.Context, operation string, listing *domain.Listing) error {
	if b.processor == nil || listing == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(listing)
	if err != nil {
		return err
	}
	return b.processor.Park(buffer.Item{
		RecordID:  listing.ID,
		UserID:    listing.OwnerID,
		Entity:    buffer.EntityListing,
		Operation: operation,
		Data:      payload,
		Priority:  2,
	})
}

var _ usecase.OperationBuffer = (*BufferBridge)(nil)
