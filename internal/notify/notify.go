// Package notify pushes cart updates to subscribers of a per-cart room.
package notify

import (
	"context"
	"encoding/json"
	"time"
)

// EventCartUpdated is emitted after any cart mutation.
const EventCartUpdated = "cart_updated"

// Message is the payload published to a cart room.
type Message struct {
	Event  string          `json:"event"`
	CartID string          `json:"cartId"`
	Data   json.RawMessage `json:"data,omitempty"`
	SentAt time.Time       `json:"sentAt"`
}

// Notifier publishes cart updates. Delivery is best effort.
type Notifier interface {
	EmitCartUpdated(ctx context.Context, cartID string, data interface{})
}

// Subscriber streams a cart room until ctx is done or the returned close func is called.
type Subscriber interface {
	Subscribe(ctx context.Context, cartID string) (<-chan Message, func() error, error)
}

// Room is the channel name for a cart.
func Room(cartID string) string {
	return "cart:" + cartID
}

// Nop drops every event.
type Nop struct{}

func (Nop) EmitCartUpdated(context.Context, string, interface{}) {}
