package repository

import (
	"context"

	"soulcircle/internal/domain/entity"
)

// MessageMutation edits a stored message in place.
type MessageMutation func(m *entity.Message) error

type MessageRepository interface {
	// Append stores msg with a store-assigned timestamp and returns it.
	Append(ctx context.Context, log entity.LogRef, msg *entity.Message) (*entity.Message, error)
	GetByID(ctx context.Context, log entity.LogRef, id string) (*entity.Message, error)
	Mutate(ctx context.Context, log entity.LogRef, id string, fn MessageMutation) (*entity.Message, error)
	// Window returns the latest limit messages in ascending timestamp order.
	Window(ctx context.Context, log entity.LogRef, limit int) ([]*entity.Message, error)
	Subscribe(ctx context.Context, log entity.LogRef, limit int) (*Subscription[[]*entity.Message], error)
}
