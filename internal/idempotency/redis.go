package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Store = (*Redis)(nil)

// Redis is a Store shared across instances. Keys are reserved with SETNX.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedis(client *redis.Client, keyPrefix string, ttl time.Duration) *Redis {
	if keyPrefix == "" {
		keyPrefix = "payment:idempotency:"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (r *Redis) Begin(ctx context.Context, key string) (string, bool, error) {
	full := r.keyPrefix + key
	ok, err := r.client.SetNX(ctx, full, pendingMarker, r.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}
	value, err := r.client.Get(ctx, full).Result()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		ok, err = r.client.SetNX(ctx, full, pendingMarker, r.ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if ok {
			return "", true, nil
		}
		return "", false, ErrInProgress
	}
	if err != nil {
		return "", false, fmt.Errorf("read idempotency key: %w", err)
	}
	if value == pendingMarker {
		return "", false, ErrInProgress
	}
	return value, false, nil
}

func (r *Redis) Finish(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.keyPrefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("record idempotency key: %w", err)
	}
	return nil
}

func (r *Redis) Abort(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("drop idempotency key: %w", err)
	}
	return nil
}
