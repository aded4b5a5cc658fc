package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"quote-commerce/internal/domain"
)

// ProgressContext carries the cart aggregates progress is measured against.
type ProgressContext struct {
	TotalPrice    decimal.Decimal
	TotalQuantity int
	Cart          *domain.Cart
}

// PriceListProgress reports how close a cart is to unlocking a conditional list.
type PriceListProgress struct {
	PriceListID   string              `json:"priceListId"`
	PriceListName string              `json:"priceListName"`
	Conditions    []ConditionProgress `json:"conditions"`
	MetCount      int                 `json:"metCount"`
	TotalCount    int                 `json:"totalCount"`
	// Progress is the mean of the condition progresses.
	Progress float64 `json:"progress"`
}

// CalculatePriceListProgress evaluates every non-default list with at least one
// active condition. Lists whose conditions are all met are omitted.
func (s *Selector) CalculatePriceListProgress(ctx context.Context, pc ProgressContext, organizationID string) ([]PriceListProgress, error) {
	lists, err := s.priceLists.List(ctx, organizationID, domain.PriceListStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list price lists: %w", err)
	}

	out := []PriceListProgress{}
	for _, list := range lists {
		if list.IsDefault {
			continue
		}
		conditions := list.ActiveConditions()
		if len(conditions) == 0 {
			continue
		}
		entry := PriceListProgress{
			PriceListID:   list.ID,
			PriceListName: list.Name,
			TotalCount:    len(conditions),
		}
		sum := 0.0
		for _, cond := range conditions {
			res := s.evaluator.Evaluate(cond, pc.TotalPrice, pc.TotalQuantity, pc.Cart)
			if res.IsMet {
				entry.MetCount++
			}
			sum += res.Progress
			entry.Conditions = append(entry.Conditions, res)
		}
		if entry.MetCount == entry.TotalCount {
			continue
		}
		entry.Progress = decimal.NewFromFloat(sum / float64(entry.TotalCount)).Round(2).InexactFloat64()
		out = append(out, entry)
	}
	return out, nil
}
