package repository

import (
	"context"

	"soulcircle/internal/domain/entity"
)

type ConversationRepository interface {
	// GetOrCreate returns the conversation with conv.ID, creating it from
	// conv if it does not exist yet.
	GetOrCreate(ctx context.Context, conv *entity.Conversation) (*entity.Conversation, error)
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Conversation, error)
	// RecordMessage sets the last message and atomically adds 1 to the
	// recipient's unread counter.
	RecordMessage(ctx context.Context, id string, last *entity.LastMessage, recipientID string) error
	// ResetUnread overwrites userID's counter with 0.
	ResetUnread(ctx context.Context, id, userID string) error
	SubscribeByUser(ctx context.Context, userID string) (*Subscription[[]*entity.Conversation], error)
}
