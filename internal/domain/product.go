package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	SKU            string         `json:"sku"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Size           string         `json:"size,omitempty"`
	Color          string         `json:"color,omitempty"`
	Stock          int            `json:"stock"`
	ImageURL       string         `json:"imageUrl,omitempty"`
	Prices         []ProductPrice `json:"prices"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// ProductPrice is the price of a product under one price list.
type ProductPrice struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organizationId"`
	ProductID      string          `json:"productId"`
	PriceListID    string          `json:"priceListId"`
	Currency       string          `json:"currency"`
	Amount         decimal.Decimal `json:"amount"`
	TaxIncluded    bool            `json:"taxIncluded"`
	ValidFrom      *time.Time      `json:"validFrom,omitempty"`
	ValidTo        *time.Time      `json:"validTo,omitempty"`
}

// Validate checks amount > 0 and validFrom <= validTo.
func (p ProductPrice) Validate() error {
	if !p.Amount.IsPositive() {
		return InvalidInput("price amount must be greater than zero")
	}
	if p.ValidFrom != nil && p.ValidTo != nil && p.ValidFrom.After(*p.ValidTo) {
		return InvalidInput("validFrom must not be after validTo")
	}
	return nil
}

// ValidAt reports whether the price window contains now.
func (p ProductPrice) ValidAt(now time.Time) bool {
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidTo != nil && now.After(*p.ValidTo) {
		return false
	}
	return true
}

// PriceIn returns the product's price under priceListID valid at now.
func (p Product) PriceIn(priceListID string, now time.Time) (ProductPrice, bool) {
	for _, price := range p.Prices {
		if price.PriceListID == priceListID && price.ValidAt(now) {
			return price, true
		}
	}
	return ProductPrice{}, false
}
