// ABOUTME: Redis-backed Limiter using INCR with a fixed-window expiry
// ABOUTME: Counters are shared by every portal instance on the same Redis

package throttle

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts failures in Redis.
type RedisLimiter struct {
	client redis.UniversalClient
	cfg    Config
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedis creates a limiter on an existing client.
func NewRedis(client redis.UniversalClient, cfg Config) *RedisLimiter {
	return &RedisLimiter{client: client, cfg: cfg.withDefaults()}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr string, cfg Config) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return NewRedis(client, cfg), nil
}

// Check returns ErrRateLimited while the key's count is at the maximum.
func (l *RedisLimiter) Check(ctx context.Context, key string) error {
	count, err := l.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= int64(l.cfg.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Fail increments the key's counter. The first failure starts the cooldown window.
func (l *RedisLimiter) Fail(ctx context.Context, key string) error {
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.cfg.Cooldown).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if count >= int64(l.cfg.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

// Reset deletes the key's counter.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the underlying client.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
