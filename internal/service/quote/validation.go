package quote

import (
	"fmt"

	"github.com/shopspring/decimal"
	"quote-commerce/internal/config"
	"quote-commerce/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// PriceChange is the drift of one cart line between its snapshot and the current price.
type PriceChange struct {
	ItemID           string          `json:"itemId"`
	ProductID        string          `json:"productId"`
	Name             string          `json:"name"`
	Quantity         int             `json:"quantity"`
	OldPrice         decimal.Decimal `json:"oldPrice"`
	NewPrice         decimal.Decimal `json:"newPrice"`
	Difference       decimal.Decimal `json:"difference"`
	PercentageChange decimal.Decimal `json:"percentageChange"`
}

// PriceValidationResult compares a cart's snapshot prices with current prices.
type PriceValidationResult struct {
	CartID                string          `json:"cartId"`
	PriceListID           string          `json:"priceListId,omitempty"`
	IsValid               bool            `json:"isValid"`
	Changes               []PriceChange   `json:"changes"`
	TotalOldPrice         decimal.Decimal `json:"totalOldPrice"`
	TotalNewPrice         decimal.Decimal `json:"totalNewPrice"`
	TotalDifference       decimal.Decimal `json:"totalDifference"`
	TotalPercentageChange decimal.Decimal `json:"totalPercentageChange"`
	RequiresApproval      bool            `json:"requiresApproval"`
}

// PriceChangedError reports drift that needs the customer's consent before payment.
type PriceChangedError struct {
	Validation *PriceValidationResult
}

func (e *PriceChangedError) Error() string {
	return fmt.Sprintf("prices of cart %s changed by %s%%; approval required", e.Validation.CartID, e.Validation.TotalPercentageChange.StringFixed(2))
}

// Err converts a non-applied check into the error a payment must fail with.
func (c *PaymentCheck) Err() error {
	switch c.Outcome {
	case OutcomeBlocked:
		return c.Reason
	case OutcomeRequiresApproval:
		return &PriceChangedError{Validation: c.Validation}
	}
	return nil
}

// percentageChange is (new-old)/old*100 rounded to 2 places. A zero baseline
// yields 0 when nothing changed and 100 when a price appeared.
func percentageChange(oldValue, newValue decimal.Decimal) decimal.Decimal {
	if oldValue.IsZero() {
		switch {
		case newValue.IsZero():
			return decimal.Zero
		case newValue.IsPositive():
			return hundred
		default:
			return hundred.Neg()
		}
	}
	return newValue.Sub(oldValue).Div(oldValue).Mul(hundred).Round(2)
}

// RequiresApproval classifies a validation result under policy:
//
//	no changes                                      -> no
//	|change| < threshold                            -> no
//	price dropped and lower prices auto-apply       -> no
//	increase > threshold and increases need consent -> yes
//	anything else                                   -> no
func RequiresApproval(res *PriceValidationResult, policy config.QuotePolicy) bool {
	if res == nil || res.IsValid || len(res.Changes) == 0 {
		return false
	}
	threshold := decimal.NewFromFloat(policy.PriceChangeThreshold)
	pct := res.TotalPercentageChange
	if pct.Abs().LessThan(threshold) {
		return false
	}
	if pct.IsNegative() && policy.ApplyLowerPriceAutomatically {
		return false
	}
	if pct.IsPositive() && pct.GreaterThan(threshold) && policy.RequireApprovalOnIncrease {
		return true
	}
	return false
}

// applyValidation writes the current prices into the cart and stamps the reconciliation.
func applyValidation(cart *domain.Cart, res *PriceValidationResult) {
	for _, change := range res.Changes {
		for i := range cart.Items {
			if cart.Items[i].ID == change.ItemID {
				cart.Items[i].Price = change.NewPrice
			}
		}
	}
	if res.PriceListID != "" && len(cart.Items) > 0 {
		listID := res.PriceListID
		cart.AppliedPriceListID = &listID
	}
	cart.Recalculate()
}

func changeDetails(res *PriceValidationResult) map[string]interface{} {
	return map[string]interface{}{
		"changes":               len(res.Changes),
		"totalOldPrice":         res.TotalOldPrice.String(),
		"totalNewPrice":         res.TotalNewPrice.String(),
		"totalPercentageChange": res.TotalPercentageChange.String(),
	}
}
