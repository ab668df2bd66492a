package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps counters in Redis so limits hold across replicas.
type RedisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisLimiter creates a Limiter backed by the given Redis client.
func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client, now: time.Now}
}

// Consume increments the day's counter and rolls it back when the limit is exceeded.
func (l *RedisLimiter) Consume(ctx context.Context, feature string, userID uuid.UUID, limit int) (int, error) {
	now := l.now()
	key := Key(feature, userID, now)

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		// Keep a day of slack so the key outlives clock skew between replicas.
		pipe.ExpireNX(ctx, key, untilMidnight(now)+24*time.Hour)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("incrementing quota counter: %w", err)
	}

	used := int(incr.Val())
	if used > limit {
		if err := l.client.Decr(ctx, key).Err(); err != nil {
			return 0, fmt.Errorf("rolling back quota counter: %w", err)
		}
		return 0, ErrExceeded
	}
	return limit - used, nil
}

// Refund decrements the day's counter, never below zero.
func (l *RedisLimiter) Refund(ctx context.Context, feature string, userID uuid.UUID) error {
	key := Key(feature, userID, l.now())
	n, err := l.client.Decr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("refunding quota: %w", err)
	}
	if n < 0 {
		if err := l.client.Set(ctx, key, 0, redis.KeepTTL).Err(); err != nil {
			return fmt.Errorf("resetting quota counter: %w", err)
		}
	}
	return nil
}
