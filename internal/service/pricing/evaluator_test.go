package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"quote-commerce/internal/domain"
)

func fixedEvaluator(now time.Time) *Evaluator {
	e := NewEvaluator(nil)
	e.now = func() time.Time { return now }
	return e
}

func TestEvaluate_AmountAndQuantity(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := fixedEvaluator(now)

	tests := []struct {
		name     string
		cond     domain.PriceListCondition
		total    int64
		quantity int
		met      bool
		progress float64
	}{
		{
			name:     "amount below minimum",
			cond:     domain.PriceListCondition{ConditionType: domain.ConditionTypeAmount, Operator: domain.OperatorGreaterOrEqual, ConditionValue: domain.ConditionValue{"min_amount": 100.0}},
			total:    50,
			met:      false,
			progress: 50,
		},
		{
			name:     "amount reaches minimum",
			cond:     domain.PriceListCondition{ConditionType: domain.ConditionTypeAmount, Operator: domain.OperatorGreaterOrEqual, ConditionValue: domain.ConditionValue{"min_amount": 100.0}},
			total:    150,
			met:      true,
			progress: 100,
		},
		{
			name:     "greater than is strict",
			cond:     domain.PriceListCondition{ConditionType: domain.ConditionTypeAmount, Operator: domain.OperatorGreaterThan, ConditionValue: domain.ConditionValue{"min_amount": "100"}},
			total:    100,
			met:      false,
			progress: 100,
		},
		{
			name:     "between without max is open ended",
			cond:     domain.PriceListCondition{ConditionType: domain.ConditionTypeAmount, Operator: domain.OperatorBetween, ConditionValue: domain.ConditionValue{"min_amount": 10.0}},
			total:    1000000,
			met:      true,
			progress: 100,
		},
		{
			name:     "between above max",
			cond:     domain.PriceListCondition{ConditionType: domain.ConditionTypeAmount, Operator: domain.OperatorBetween, ConditionValue: domain.ConditionValue{"min_amount": 10.0, "max_amount": 20.0}},
			total:    25,
			met:      false,
			progress: 100,
		},
		{
			name:     "less than max",
			cond:     domain.PriceListCondition{ConditionType: domain.ConditionTypeAmount, Operator: domain.OperatorLessThan, ConditionValue: domain.ConditionValue{"max_amount": 20.0}},
			total:    19,
			met:      true,
			progress: 100,
		},
		{
			name:     "quantity minimum",
			cond:     domain.PriceListCondition{ConditionType: domain.ConditionTypeQuantity, Operator: domain.OperatorGreaterOrEqual, ConditionValue: domain.ConditionValue{"min_quantity": 10}},
			quantity: 3,
			met:      false,
			progress: 30,
		},
		{
			name:     "quantity equals",
			cond:     domain.PriceListCondition{ConditionType: domain.ConditionTypeQuantity, Operator: domain.OperatorEquals, ConditionValue: domain.ConditionValue{"min_quantity": 4.0}},
			quantity: 4,
			met:      true,
			progress: 100,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Evaluate(tc.cond, decimal.NewFromInt(tc.total), tc.quantity, nil)
			assert.Equal(t, tc.met, res.IsMet)
			assert.Equal(t, tc.progress, res.Progress)
		})
	}
}

func TestEvaluate_AmountRemainingMessage(t *testing.T) {
	e := fixedEvaluator(time.Now())
	cond := domain.PriceListCondition{ConditionType: domain.ConditionTypeAmount, Operator: domain.OperatorGreaterOrEqual, ConditionValue: domain.ConditionValue{"min_amount": 100.0}}

	res := e.Evaluate(cond, decimal.RequireFromString("62.5"), 1, nil)
	assert.False(t, res.IsMet)
	assert.True(t, decimal.RequireFromString("37.5").Equal(res.Remaining))
	assert.Equal(t, "add 37.50 more to unlock this price list", res.Message)
}

func TestEvaluate_DateRange(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := fixedEvaluator(now)

	tests := []struct {
		name  string
		op    domain.ConditionOperator
		value domain.ConditionValue
		met   bool
	}{
		{"between inside", domain.OperatorBetween, domain.ConditionValue{"from_date": "2025-05-01", "to_date": "2025-07-01"}, true},
		{"between missing bound", domain.OperatorBetween, domain.ConditionValue{"from_date": "2025-05-01"}, false},
		{"after", domain.OperatorAfter, domain.ConditionValue{"from_date": "2025-05-01T00:00:00Z"}, true},
		{"after missing bound", domain.OperatorAfter, domain.ConditionValue{"to_date": "2025-05-01"}, false},
		{"before future", domain.OperatorBefore, domain.ConditionValue{"to_date": "2025-07-01"}, true},
		{"before past", domain.OperatorBefore, domain.ConditionValue{"to_date": "2025-05-01"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cond := domain.PriceListCondition{ConditionType: domain.ConditionTypeDateRange, Operator: tc.op, ConditionValue: tc.value}
			assert.Equal(t, tc.met, e.Evaluate(cond, decimal.Zero, 0, nil).IsMet)
		})
	}
}

func TestEvaluate_ValidityWindowGate(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	e := fixedEvaluator(now)
	ended := now.Add(-time.Hour)
	cond := domain.PriceListCondition{
		ConditionType:  domain.ConditionTypeAmount,
		Operator:       domain.OperatorGreaterOrEqual,
		ConditionValue: domain.ConditionValue{"min_amount": 1.0},
		ValidTo:        &ended,
	}
	assert.False(t, e.Evaluate(cond, decimal.NewFromInt(100), 1, nil).IsMet)
}

func TestEvaluate_CustomerType(t *testing.T) {
	e := fixedEvaluator(time.Now())
	cond := domain.PriceListCondition{
		ConditionType:  domain.ConditionTypeCustomerType,
		Operator:       domain.OperatorEquals,
		ConditionValue: domain.ConditionValue{"customer_type": "wholesale"},
	}

	assert.False(t, e.Evaluate(cond, decimal.Zero, 0, nil).IsMet)
	assert.False(t, e.Evaluate(cond, decimal.Zero, 0, &domain.Cart{}).IsMet)

	retail := "retail"
	assert.False(t, e.Evaluate(cond, decimal.Zero, 0, &domain.Cart{CustomerType: &retail}).IsMet)

	wholesale := "Wholesale"
	assert.True(t, e.Evaluate(cond, decimal.Zero, 0, &domain.Cart{CustomerType: &wholesale}).IsMet)
}

func TestEvaluate_UnknownTypeOrOperatorLogsAndFails(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	e := NewEvaluator(zap.New(core))

	res := e.Evaluate(domain.PriceListCondition{ID: "x", ConditionType: "loyalty"}, decimal.NewFromInt(10), 1, nil)
	assert.False(t, res.IsMet)

	res = e.Evaluate(domain.PriceListCondition{
		ID:             "y",
		ConditionType:  domain.ConditionTypeAmount,
		Operator:       "roughly",
		ConditionValue: domain.ConditionValue{"min_amount": 1.0},
	}, decimal.NewFromInt(10), 1, nil)
	assert.False(t, res.IsMet)
	assert.Equal(t, "unsupported operator", res.Message)

	assert.Equal(t, 2, logs.Len())
}

func TestProgressOf(t *testing.T) {
	assert.Equal(t, 0.0, progressOf(decimal.Zero, decimal.Zero, false))
	assert.Equal(t, 100.0, progressOf(decimal.Zero, decimal.Zero, true))
	assert.Equal(t, 33.33, progressOf(decimal.NewFromInt(1), decimal.NewFromInt(3), false))
	assert.Equal(t, 100.0, progressOf(decimal.NewFromInt(5), decimal.NewFromInt(3), true))
}
