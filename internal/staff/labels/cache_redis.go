package labels

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "dsnap/pkg/domain"
)

const redisKeyPrefix = "dsnap:staff:label:"

// RedisCache shares labels across instances.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, ids []id.StaffID) (map[id.StaffID]string, error) {
	if len(ids) == 0 {
		return map[id.StaffID]string{}, nil
	}
	keys := make([]string, len(ids))
	for i, staffID := range ids {
		keys[i] = redisKeyPrefix + staffID.String()
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget labels: %w", err)
	}
	hits := make(map[id.StaffID]string, len(ids))
	for i, value := range values {
		if label, ok := value.(string); ok {
			hits[ids[i]] = label
		}
	}
	return hits, nil
}

func (c *RedisCache) Set(ctx context.Context, labels map[id.StaffID]string) error {
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for staffID, label := range labels {
			pipe.Set(ctx, redisKeyPrefix+staffID.String(), label, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set labels: %w", err)
	}
	return nil
}
