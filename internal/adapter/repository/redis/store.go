// Package redis implements the ephemeral realtime state, presence and typing
// flags, on Redis. Changes are announced on pub/sub channels and every
// subscriber re-reads the full snapshot on each announcement.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"soulcircle/internal/domain/repository"
	"soulcircle/pkg/errors"
	"soulcircle/pkg/logger"
)

type Config struct {
	Address  string
	Password string
	DB       int
}

// NewClient connects and pings Redis.
func NewClient(cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Key patterns:
// presence:users             HASH<user_id, presence json>
// presence:updates           CHANNEL                       - presence changed
// typing:{group_id}:users    SET<user_id>                  - candidates, pruned on read
// typing:{group_id}:{uid}    STRING "1" with TTL           - live typing flag
// typing:{group_id}:updates  CHANNEL                       - typing changed

const (
	presenceKey     = "presence:users"
	presenceChannel = "presence:updates"
)

func typingSetKey(groupID string) string {
	return fmt.Sprintf("typing:%s:users", groupID)
}

func typingFlagKey(groupID, userID string) string {
	return fmt.Sprintf("typing:%s:%s", groupID, userID)
}

func typingChannel(groupID string) string {
	return fmt.Sprintf("typing:%s:updates", groupID)
}

// watch delivers snapshot() once the channel subscription is active, then
// again after every message published on channel.
func watch[T any](parent context.Context, client *goredis.Client, channel string, snapshot func(ctx context.Context) (T, error)) (*repository.Subscription[T], error) {
	sub, ctx := repository.NewSubscription[T](parent, 1)

	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		sub.Close()
		return nil, errors.Internal("Failed to subscribe", err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			v, err := snapshot(ctx)
			if err != nil {
				if ctx.Err() != nil {
					sub.Finish(nil)
					return
				}
				logger.L().Warn().Err(err).Str("channel", channel).Msg("redis snapshot failed")
				sub.Finish(err)
				return
			}
			if !sub.Send(ctx, v) {
				sub.Finish(nil)
				return
			}

			select {
			case <-ctx.Done():
				sub.Finish(nil)
				return
			case _, ok := <-ch:
				if !ok {
					sub.Finish(nil)
					return
				}
				drain(ch)
			}
		}
	}()

	return sub, nil
}

// drain coalesces a burst of notifications into one re-read.
func drain(ch <-chan *goredis.Message) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
