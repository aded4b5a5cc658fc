package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart changelog actions.
const (
	ChangeCreated             = "created"
	ChangeItemAdded           = "item_added"
	ChangeItemUpdated         = "item_updated"
	ChangeItemRemoved         = "item_removed"
	ChangeItemsReplaced       = "items_replaced"
	ChangeCustomization       = "customization_updated"
	ChangeActivated           = "activated"
	ChangeExpired             = "expired"
	ChangeCancelled           = "cancelled"
	ChangePricesApplied       = "prices_applied"
	ChangePriceChangeApproved = "price_change_approved"
	ChangePaid                = "paid"
)

// CartChange is one entry of a cart's audit trail.
type CartChange struct {
	ID        string                 `json:"id"`
	CartID    string                 `json:"cartId"`
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

func NewCartChange(cartID, action string, details map[string]interface{}, now time.Time) CartChange {
	return CartChange{
		ID:        uuid.NewString(),
		CartID:    cartID,
		Action:    action,
		Details:   details,
		CreatedAt: now,
	}
}
