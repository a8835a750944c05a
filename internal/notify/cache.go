package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rushinski/rdk-webstore-sub003/internal/redisx"
)

// RedisCache backs the notifier's dedup and invalidation with Redis.
type RedisCache struct {
	Client *redis.Client
}

func (c *RedisCache) Seen(ctx context.Context, eventID string) (bool, error) {
	return redisx.Exists(ctx, c.Client, c.key(eventID))
}

func (c *RedisCache) Mark(ctx context.Context, eventID string) error {
	return c.Client.Set(ctx, c.key(eventID), "1", redisx.TTLDedup).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

func (c *RedisCache) key(eventID string) string {
	return fmt.Sprintf(redisx.KeyDedup, "notify", eventID)
}
