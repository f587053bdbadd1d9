package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/orgball2608/story-playback-engine/internal/domain"
	"github.com/orgball2608/story-playback-engine/pkg/config"
	"github.com/orgball2608/story-playback-engine/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In
	LC fx.Lifecycle

	Logger logger.Logger
	Config *config.Config
}

// NewClient creates a redis client and manages its lifecycle.
func NewClient(opts Opts) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Config.Redis.Addr,
		Password: opts.Config.Redis.Password,
		DB:       opts.Config.Redis.DB,
	})

	opts.LC.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := client.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("failed to ping redis: %w", err)
				}
				opts.Logger.Info("Connected to redis")
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		},
	)

	return client, nil
}

// RedisViewCache implements ViewCache on redis. Records carry no TTL: a view
// survives process restarts until the remote store is reconciled and beyond.
type RedisViewCache struct {
	client *redis.Client
}

func NewRedisViewCache(client *redis.Client) *RedisViewCache {
	return &RedisViewCache{client: client}
}

var _ ViewCache = (*RedisViewCache)(nil)

func recordKey(viewerID, storyID string) string {
	return fmt.Sprintf("viewstatus:%s:%s", viewerID, storyID)
}

func pendingKey(viewerID string) string {
	return fmt.Sprintf("viewstatus:pending:%s", viewerID)
}

func (c *RedisViewCache) Get(ctx context.Context, viewerID, storyID string) (*domain.ViewRecord, error) {
	raw, err := c.client.Get(ctx, recordKey(viewerID, storyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read view record from cache: %w", err)
	}

	var record domain.ViewRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode cached view record: %w", err)
	}
	return &record, nil
}

func (c *RedisViewCache) Set(ctx context.Context, record domain.ViewRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode view record: %w", err)
	}

	if err := c.client.Set(ctx, recordKey(record.ViewerID, record.StoryID), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to cache view record: %w", err)
	}
	return nil
}

func (c *RedisViewCache) AddPending(ctx context.Context, viewerID, storyID string) error {
	return c.client.SAdd(ctx, pendingKey(viewerID), storyID).Err()
}

func (c *RedisViewCache) RemovePending(ctx context.Context, viewerID, storyID string) error {
	return c.client.SRem(ctx, pendingKey(viewerID), storyID).Err()
}

func (c *RedisViewCache) ListPending(ctx context.Context, viewerID string) ([]string, error) {
	ids, err := c.client.SMembers(ctx, pendingKey(viewerID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending view records: %w", err)
	}
	return ids, nil
}
