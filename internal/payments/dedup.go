package payments

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rushinski/rdk-webstore-sub003/internal/redisx"
)

// RedisDedup short-circuits replayed payment events before they reach
// Postgres. Misses are harmless: the durable ledger is authoritative.
type RedisDedup struct {
	Client *redis.Client
}

func (d *RedisDedup) Seen(ctx context.Context, eventID string) (bool, error) {
	return redisx.Exists(ctx, d.Client, d.key(eventID))
}

func (d *RedisDedup) Mark(ctx context.Context, eventID string) error {
	return d.Client.Set(ctx, d.key(eventID), "1", redisx.TTLDedup).Err()
}

func (d *RedisDedup) key(eventID string) string {
	return fmt.Sprintf(redisx.KeyDedup, "payments", eventID)
}
