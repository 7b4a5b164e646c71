package repository

import (
	"context"
	"time"

	"soulcircle/internal/domain/entity"
)

type PresenceRepository interface {
	Set(ctx context.Context, p *entity.Presence) error
	Get(ctx context.Context, userID string) (*entity.Presence, error)
	All(ctx context.Context) (map[string]*entity.Presence, error)
	Subscribe(ctx context.Context) (*Subscription[map[string]*entity.Presence], error)
}

type TypingRepository interface {
	// Start sets the flag with ttl unless it is already set; an existing
	// flag keeps its original expiry.
	Start(ctx context.Context, groupID, userID string, ttl time.Duration) error
	Stop(ctx context.Context, groupID, userID string) error
	List(ctx context.Context, groupID string) (map[string]bool, error)
	Subscribe(ctx context.Context, groupID string) (*Subscription[map[string]bool], error)
}
