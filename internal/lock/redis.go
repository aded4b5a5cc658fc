package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX PX. The TTL bounds how long a crashed
// holder can block the key, and therefore also how long Acquire waits. The lease
// is not renewed: a holder must finish well inside the TTL or the key may be
// taken by the next caller.
type Redis struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{client: client, ttl: ttl, retryDelay: 25 * time.Millisecond}
}

// Acquire polls until the key is free, ctx ends or one TTL has passed. Past the
// TTL any previous holder's lease has expired, so a key still taken means a live
// contender and the caller gets ErrNotAcquired.
func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	ctx, cancel := context.WithTimeout(ctx, r.ttl)
	defer cancel()
	token := uuid.NewString()
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrNotAcquired
			}
			return nil, fmt.Errorf("set lock: %w", err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(r.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ErrNotAcquired
		case <-timer.C:
		}
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lock: %w", err)
		}
		return nil
	}, nil
}
