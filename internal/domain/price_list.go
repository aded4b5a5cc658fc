package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type PriceListStatus string

const (
	PriceListStatusActive   PriceListStatus = "active"
	PriceListStatusInactive PriceListStatus = "inactive"
)

// ConditionType selects which cart aggregate a condition looks at.
type ConditionType string

const (
	ConditionTypeAmount       ConditionType = "amount"
	ConditionTypeQuantity     ConditionType = "quantity"
	ConditionTypeDateRange    ConditionType = "date_range"
	ConditionTypeCustomerType ConditionType = "customer_type"
)

// ConditionOperator is the comparison applied by a condition.
type ConditionOperator string

const (
	OperatorGreaterThan    ConditionOperator = "greater_than"
	OperatorGreaterOrEqual ConditionOperator = "greater_or_equal"
	OperatorLessThan       ConditionOperator = "less_than"
	OperatorLessOrEqual    ConditionOperator = "less_or_equal"
	OperatorEquals         ConditionOperator = "equals"
	OperatorBetween        ConditionOperator = "between"
	OperatorAfter          ConditionOperator = "after"
	OperatorBefore         ConditionOperator = "before"
)

// PriceList is a named table of per-product prices, optionally gated by conditions.
type PriceList struct {
	ID             string               `json:"id"`
	OrganizationID string               `json:"organizationId"`
	Name           string               `json:"name"`
	Currency       string               `json:"currency"`
	IsDefault      bool                 `json:"isDefault"`
	Status         PriceListStatus      `json:"status"`
	PricingTaxMode string               `json:"pricingTaxMode"`
	Conditions     []PriceListCondition `json:"conditions"`
	CreatedAt      time.Time            `json:"createdAt"`
	UpdatedAt      time.Time            `json:"updatedAt"`
}

// ActiveConditions returns the conditions with status active.
func (p PriceList) ActiveConditions() []PriceListCondition {
	out := make([]PriceListCondition, 0, len(p.Conditions))
	for _, c := range p.Conditions {
		if c.Status == PriceListStatusActive {
			out = append(out, c)
		}
	}
	return out
}

// PriceListCondition gates a price list on one cart aggregate.
type PriceListCondition struct {
	ID             string            `json:"id"`
	PriceListID    string            `json:"priceListId"`
	Status         PriceListStatus   `json:"status"`
	ConditionType  ConditionType     `json:"conditionType"`
	Operator       ConditionOperator `json:"operator"`
	ConditionValue ConditionValue    `json:"conditionValue"`
	ValidFrom      *time.Time        `json:"validFrom,omitempty"`
	ValidTo        *time.Time        `json:"validTo,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// WithinValidity reports whether now falls inside [ValidFrom, ValidTo] where set.
func (c PriceListCondition) WithinValidity(now time.Time) bool {
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidTo != nil && now.After(*c.ValidTo) {
		return false
	}
	return true
}

// ConditionValue is the typed payload of a condition, keyed by condition type
// (min_amount, max_amount, min_quantity, max_quantity, from_date, to_date, customer_type).
type ConditionValue map[string]interface{}

// Decimal reads a numeric key. Strings and JSON numbers are accepted.
func (v ConditionValue) Decimal(key string) (decimal.Decimal, bool) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return decimal.Zero, false
	}
	switch n := raw.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case decimal.Decimal:
		return n, true
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

// Time reads a date key in RFC3339 or YYYY-MM-DD form.
func (v ConditionValue) Time(key string) (time.Time, bool) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return time.Time{}, false
	}
	switch t := raw.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	case float64:
		return time.UnixMilli(int64(t)), true
	}
	return time.Time{}, false
}

// String reads a text key.
func (v ConditionValue) String(key string) (string, bool) {
	raw, ok := v[key]
	if !ok || raw == nil {
		return "", false
	}
	switch s := raw.(type) {
	case string:
		return s, s != ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	}
	return "", false
}

var conditionKeys = map[ConditionType][]string{
	ConditionTypeAmount:       {"min_amount", "max_amount"},
	ConditionTypeQuantity:     {"min_quantity", "max_quantity"},
	ConditionTypeDateRange:    {"from_date", "to_date"},
	ConditionTypeCustomerType: {"customer_type"},
}

// Validate checks the condition type, operator and that the value carries at least
// one key the type reads.
func (c PriceListCondition) Validate() error {
	keys, ok := conditionKeys[c.ConditionType]
	if !ok {
		return InvalidInput("unknown condition type %q", c.ConditionType)
	}
	switch c.Operator {
	case OperatorGreaterThan, OperatorGreaterOrEqual, OperatorLessThan, OperatorLessOrEqual,
		OperatorEquals, OperatorBetween, OperatorAfter, OperatorBefore:
	case "":
		if c.ConditionType != ConditionTypeCustomerType {
			return InvalidInput("operator required")
		}
	default:
		return InvalidInput("unknown operator %q", c.Operator)
	}
	if c.Status != "" && c.Status != PriceListStatusActive && c.Status != PriceListStatusInactive {
		return InvalidInput("unknown status %q", c.Status)
	}
	if c.ValidFrom != nil && c.ValidTo != nil && c.ValidFrom.After(*c.ValidTo) {
		return InvalidInput("validFrom must not be after validTo")
	}
	for _, k := range keys {
		if v, ok := c.ConditionValue[k]; ok && v != nil {
			return nil
		}
	}
	return InvalidInput("%s condition needs one of %v", c.ConditionType, keys)
}
