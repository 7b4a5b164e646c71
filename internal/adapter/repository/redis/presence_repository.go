package redis

import (
	"context"
	"encoding/json"

	goredis "github.com/redis/go-redis/v9"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
)

type presenceRepository struct {
	client *goredis.Client
}

func NewPresenceRepository(client *goredis.Client) repository.PresenceRepository {
	return &presenceRepository{client: client}
}

func (r *presenceRepository) Set(ctx context.Context, p *entity.Presence) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Internal("Failed to encode presence", err)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, presenceKey, p.UserID, data)
	pipe.Publish(ctx, presenceChannel, p.UserID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Internal("Failed to write presence", err)
	}
	return nil
}

func (r *presenceRepository) Get(ctx context.Context, userID string) (*entity.Presence, error) {
	data, err := r.client.HGet(ctx, presenceKey, userID).Bytes()
	if err == goredis.Nil {
		return nil, errors.NotFound("Presence", nil)
	}
	if err != nil {
		return nil, errors.Internal("Failed to read presence", err)
	}

	var p entity.Presence
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Internal("Failed to decode presence", err)
	}
	return &p, nil
}

func (r *presenceRepository) All(ctx context.Context) (map[string]*entity.Presence, error) {
	raw, err := r.client.HGetAll(ctx, presenceKey).Result()
	if err != nil {
		return nil, errors.Internal("Failed to read presence", err)
	}

	out := make(map[string]*entity.Presence, len(raw))
	for uid, data := range raw {
		var p entity.Presence
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, errors.Internal("Failed to decode presence", err)
		}
		out[uid] = &p
	}
	return out, nil
}

func (r *presenceRepository) Subscribe(ctx context.Context) (*repository.Subscription[map[string]*entity.Presence], error) {
	return watch(ctx, r.client, presenceChannel, r.All)
}
