package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	_ Notifier   = (*Redis)(nil)
	_ Subscriber = (*Redis)(nil)
)

// Redis fans cart updates out over Redis pub/sub, one channel per cart.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewRedis(client *redis.Client, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, logger: logger, now: time.Now}
}

// EmitCartUpdated publishes to the cart room. Failures are logged, never returned.
func (r *Redis) EmitCartUpdated(ctx context.Context, cartID string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		r.logger.Warn("encode cart update", zap.String("cart_id", cartID), zap.Error(err))
		return
	}
	msg, err := json.Marshal(Message{Event: EventCartUpdated, CartID: cartID, Data: payload, SentAt: r.now().UTC()})
	if err != nil {
		r.logger.Warn("encode cart update", zap.String("cart_id", cartID), zap.Error(err))
		return
	}
	if err := r.client.Publish(ctx, Room(cartID), msg).Err(); err != nil {
		r.logger.Warn("publish cart update", zap.String("cart_id", cartID), zap.Error(err))
	}
}

// Subscribe joins the cart room. Undecodable messages are skipped.
func (r *Redis) Subscribe(ctx context.Context, cartID string) (<-chan Message, func() error, error) {
	sub := r.client.Subscribe(ctx, Room(cartID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", Room(cartID), err)
	}

	out := make(chan Message)
	go func() {
		defer close(out)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-ch:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
					r.logger.Debug("skip malformed cart event", zap.String("cart_id", cartID), zap.Error(err))
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, sub.Close, nil
}
