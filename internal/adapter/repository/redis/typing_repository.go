package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
)

type typingRepository struct {
	client *goredis.Client
}

func NewTypingRepository(client *goredis.Client) repository.TypingRepository {
	return &typingRepository{client: client}
}

// Start sets the flag with SET NX, so repeated starts keep the first expiry.
func (r *typingRepository) Start(ctx context.Context, groupID, userID string, ttl time.Duration) error {
	created, err := r.client.SetNX(ctx, typingFlagKey(groupID, userID), "1", ttl).Result()
	if err != nil {
		return errors.Internal("Failed to set typing flag", err)
	}
	if !created {
		return nil
	}

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, typingSetKey(groupID), userID)
	pipe.Publish(ctx, typingChannel(groupID), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Internal("Failed to announce typing", err)
	}

	// Redis expiry is silent; announce it so listeners drop the flag.
	time.AfterFunc(ttl, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.client.Publish(ctx, typingChannel(groupID), userID).Err(); err != nil {
			logger.L().Debug().Err(err).Str("group_id", groupID).Msg("typing expiry publish failed")
		}
	})
	return nil
}

func (r *typingRepository) Stop(ctx context.Context, groupID, userID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, typingFlagKey(groupID, userID))
	pipe.SRem(ctx, typingSetKey(groupID), userID)
	pipe.Publish(ctx, typingChannel(groupID), userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Internal("Failed to clear typing flag", err)
	}
	return nil
}

// List returns users whose flag is still live and prunes the rest.
func (r *typingRepository) List(ctx context.Context, groupID string) (map[string]bool, error) {
	candidates, err := r.client.SMembers(ctx, typingSetKey(groupID)).Result()
	if err != nil {
		return nil, errors.Internal("Failed to list typing users", err)
	}

	out := make(map[string]bool, len(candidates))
	if len(candidates) == 0 {
		return out, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*goredis.IntCmd, len(candidates))
	for i, uid := range candidates {
		cmds[i] = pipe.Exists(ctx, typingFlagKey(groupID, uid))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, errors.Internal("Failed to read typing flags", err)
	}

	var expired []interface{}
	for i, uid := range candidates {
		if cmds[i].Val() > 0 {
			out[uid] = true
		} else {
			expired = append(expired, uid)
		}
	}
	if len(expired) > 0 {
		r.client.SRem(ctx, typingSetKey(groupID), expired...)
	}
	return out, nil
}

func (r *typingRepository) Subscribe(ctx context.Context, groupID string) (*repository.Subscription[map[string]bool], error) {
	return watch(ctx, r.client, typingChannel(groupID), func(ctx context.Context) (map[string]bool, error) {
		return r.List(ctx, groupID)
	})
}
