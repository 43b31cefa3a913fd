package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisThrottle allows one action per key per window using SET NX
type RedisThrottle struct {
	redis  *redis.Client
	prefix string
}

func NewRedisThrottle(client *redis.Client, prefix string) *RedisThrottle {
	return &RedisThrottle{redis: client, prefix: prefix}
}

// Allow reports whether the action for key may run now. The first caller in
// a window wins; later callers are refused until the key expires.
func (t *RedisThrottle) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := t.redis.SetNX(ctx, t.prefix+key, time.Now().Unix(), window).Result()
	if err != nil {
		return false, fmt.Errorf("throttle %s: %w", key, err)
	}
	return ok, nil
}
