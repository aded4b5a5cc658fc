package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartStatus is the lifecycle status of a quote.
type CartStatus string

const (
	CartStatusDraft     CartStatus = "draft"
	CartStatusActive    CartStatus = "active"
	CartStatusExpired   CartStatus = "expired"
	CartStatusPaid      CartStatus = "paid"
	CartStatusCancelled CartStatus = "cancelled"
)

// IsValid reports whether s is a known cart status.
func (s CartStatus) IsValid() bool {
	switch s {
	case CartStatusDraft, CartStatusActive, CartStatusExpired, CartStatusPaid, CartStatusCancelled:
		return true
	}
	return false
}

// PayableStatuses are the statuses a payment may start from.
var PayableStatuses = []CartStatus{CartStatusActive, CartStatusDraft}

// Cart is a quote: a set of items with a price commitment window.
type Cart struct {
	ID                    string                 `json:"id"`
	OrganizationID        string                 `json:"organizationId"`
	CustomerType          *string                `json:"customerType,omitempty"`
	Status                CartStatus             `json:"status"`
	Currency              string                 `json:"currency"`
	Items                 []CartItem             `json:"items"`
	TotalItems            int                    `json:"totalItems"`
	TotalPrice            decimal.Decimal        `json:"totalPrice"`
	OriginalTotalPrice    decimal.NullDecimal    `json:"originalTotalPrice"`
	AppliedPriceListID    *string                `json:"appliedPriceListId,omitempty"`
	ValidUntil            *time.Time             `json:"validUntil,omitempty"`
	PriceValidatedAt      *time.Time             `json:"priceValidatedAt,omitempty"`
	PriceChangeApproved   bool                   `json:"priceChangeApproved"`
	PriceChangeApprovedAt *time.Time             `json:"priceChangeApprovedAt,omitempty"`
	Customization         map[string]interface{} `json:"customization,omitempty"`
	CreatedAt             time.Time              `json:"createdAt"`
	UpdatedAt             time.Time              `json:"updatedAt"`
}

// CartItem is a product line with the price captured when it was added.
type CartItem struct {
	ID        string          `json:"id"`
	CartID    string          `json:"cartId"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	MaxStock  int             `json:"maxStock"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// LineTotal is price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func clampQuantity(quantity, maxStock int) int {
	if quantity > maxStock {
		quantity = maxStock
	}
	if quantity < 0 {
		quantity = 0
	}
	return quantity
}

// NewCart returns a draft cart for the organization.
func NewCart(organizationID, currency string, now time.Time) *Cart {
	return &Cart{
		OrganizationID: organizationID,
		Status:         CartStatusDraft,
		Currency:       currency,
		Items:          []CartItem{},
		TotalPrice:     decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AddItem merges the item into a line with the same product, size and color,
// or appends it. The resulting quantity is clamped to the item's max stock.
// It returns the resulting line, or false when clamping removed it.
func (c *Cart) AddItem(item CartItem, now time.Time) (CartItem, bool) {
	for idx := range c.Items {
		existing := &c.Items[idx]
		if existing.ProductID != item.ProductID || existing.Size != item.Size || existing.Color != item.Color {
			continue
		}
		existing.MaxStock = item.MaxStock
		existing.Quantity = clampQuantity(existing.Quantity+item.Quantity, existing.MaxStock)
		line := *existing
		if line.Quantity == 0 {
			c.removeAt(idx)
			c.Recalculate()
			return line, false
		}
		c.Recalculate()
		return line, true
	}

	item.Quantity = clampQuantity(item.Quantity, item.MaxStock)
	if item.Quantity == 0 {
		return item, false
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.CartID = c.ID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	c.Items = append(c.Items, item)
	c.Recalculate()
	return item, true
}

// SetItemQuantity updates a line's quantity; zero (after clamping) removes the line.
func (c *Cart) SetItemQuantity(itemID string, quantity int) (CartItem, error) {
	if quantity < 0 {
		return CartItem{}, InvalidInput("quantity must not be negative")
	}
	for idx := range c.Items {
		if c.Items[idx].ID != itemID {
			continue
		}
		c.Items[idx].Quantity = clampQuantity(quantity, c.Items[idx].MaxStock)
		line := c.Items[idx]
		if line.Quantity == 0 {
			c.removeAt(idx)
		}
		c.Recalculate()
		return line, nil
	}
	return CartItem{}, ErrNotFound
}

// RemoveItem drops a line from the cart.
func (c *Cart) RemoveItem(itemID string) error {
	for idx := range c.Items {
		if c.Items[idx].ID == itemID {
			c.removeAt(idx)
			c.Recalculate()
			return nil
		}
	}
	return ErrNotFound
}

// ReplaceItems swaps the whole item collection, clamping every line.
func (c *Cart) ReplaceItems(items []CartItem, now time.Time) {
	c.Items = make([]CartItem, 0, len(items))
	for _, item := range items {
		c.AddItem(item, now)
	}
	c.Recalculate()
}

// Recalculate recomputes TotalItems and TotalPrice from the current items.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	count := 0
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
		count += item.Quantity
	}
	c.TotalItems = count
	c.TotalPrice = total
}

func (c *Cart) removeAt(idx int) {
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
}

// ItemByID returns the line with the given id.
func (c *Cart) ItemByID(itemID string) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return CartItem{}, false
}

// IsMutable reports whether items may still change.
func (c *Cart) IsMutable() bool {
	return c.Status == CartStatusDraft || c.Status == CartStatusActive
}
