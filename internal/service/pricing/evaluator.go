package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"quote-commerce/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// ConditionProgress is the evaluation of one condition against a cart's aggregates.
type ConditionProgress struct {
	ConditionID   string                   `json:"conditionId"`
	ConditionType domain.ConditionType     `json:"conditionType"`
	Operator      domain.ConditionOperator `json:"operator"`
	IsMet         bool                     `json:"isMet"`
	Progress      float64                  `json:"progress"`
	CurrentValue  decimal.Decimal          `json:"currentValue"`
	TargetValue   decimal.Decimal          `json:"targetValue"`
	Remaining     decimal.Decimal          `json:"remaining"`
	Message       string                   `json:"message"`
}

// Evaluator checks price-list conditions. It never fails: malformed conditions
// evaluate as not met and are logged.
type Evaluator struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{logger: logger, now: time.Now}
}

// Evaluate checks cond against the cart totals. The validity window is checked first.
func (e *Evaluator) Evaluate(cond domain.PriceListCondition, totalPrice decimal.Decimal, totalQuantity int, cart *domain.Cart) ConditionProgress {
	now := e.now()
	res := ConditionProgress{
		ConditionID:   cond.ID,
		ConditionType: cond.ConditionType,
		Operator:      cond.Operator,
		CurrentValue:  decimal.Zero,
		TargetValue:   decimal.Zero,
		Remaining:     decimal.Zero,
	}
	if !cond.WithinValidity(now) {
		res.Message = "condition is outside its validity window"
		return res
	}

	switch cond.ConditionType {
	case domain.ConditionTypeAmount:
		e.evaluateRange(&res, cond, totalPrice, "min_amount", "max_amount")
		if !res.IsMet && res.Message == "" && res.Remaining.IsPositive() {
			res.Message = fmt.Sprintf("add %s more to unlock this price list", res.Remaining.StringFixed(2))
		}
	case domain.ConditionTypeQuantity:
		e.evaluateRange(&res, cond, decimal.NewFromInt(int64(totalQuantity)), "min_quantity", "max_quantity")
		if !res.IsMet && res.Message == "" && res.Remaining.IsPositive() {
			res.Message = fmt.Sprintf("add %s more items to unlock this price list", res.Remaining.String())
		}
	case domain.ConditionTypeDateRange:
		e.evaluateDateRange(&res, cond, now)
	case domain.ConditionTypeCustomerType:
		e.evaluateCustomerType(&res, cond, cart)
	default:
		e.logger.Warn("unknown price list condition type",
			zap.String("condition_id", cond.ID),
			zap.String("condition_type", string(cond.ConditionType)))
		res.Message = "unsupported condition type"
		return res
	}

	if res.IsMet {
		res.Message = "condition met"
	} else if res.Message == "" {
		res.Message = "condition not met"
	}
	return res
}

func (e *Evaluator) evaluateRange(res *ConditionProgress, cond domain.PriceListCondition, current decimal.Decimal, minKey, maxKey string) {
	floor, _ := cond.ConditionValue.Decimal(minKey)
	ceiling, hasCeiling := cond.ConditionValue.Decimal(maxKey)

	switch cond.Operator {
	case domain.OperatorGreaterThan:
		res.IsMet = current.GreaterThan(floor)
	case domain.OperatorGreaterOrEqual:
		res.IsMet = current.GreaterThanOrEqual(floor)
	case domain.OperatorLessThan:
		res.IsMet = !hasCeiling || current.LessThan(ceiling)
	case domain.OperatorLessOrEqual:
		res.IsMet = !hasCeiling || current.LessThanOrEqual(ceiling)
	case domain.OperatorEquals:
		res.IsMet = current.Equal(floor)
	case domain.OperatorBetween:
		res.IsMet = current.GreaterThanOrEqual(floor) && (!hasCeiling || current.LessThanOrEqual(ceiling))
	default:
		e.logger.Warn("unknown price list condition operator",
			zap.String("condition_id", cond.ID),
			zap.String("condition_type", string(cond.ConditionType)),
			zap.String("operator", string(cond.Operator)))
		res.Message = "unsupported operator"
	}

	res.CurrentValue = current
	res.TargetValue = floor
	res.Remaining = decimal.Max(decimal.Zero, floor.Sub(current))
	res.Progress = progressOf(current, floor, res.IsMet)
}

func (e *Evaluator) evaluateDateRange(res *ConditionProgress, cond domain.PriceListCondition, now time.Time) {
	from, hasFrom := cond.ConditionValue.Time("from_date")
	to, hasTo := cond.ConditionValue.Time("to_date")

	switch cond.Operator {
	case domain.OperatorBetween:
		res.IsMet = hasFrom && hasTo && !now.Before(from) && !now.After(to)
	case domain.OperatorAfter:
		res.IsMet = hasFrom && now.After(from)
	case domain.OperatorBefore:
		res.IsMet = hasTo && now.Before(to)
	default:
		e.logger.Warn("unknown price list condition operator",
			zap.String("condition_id", cond.ID),
			zap.String("condition_type", string(cond.ConditionType)),
			zap.String("operator", string(cond.Operator)))
		res.Message = "unsupported operator"
	}
	if res.IsMet {
		res.Progress = 100
	}
}

func (e *Evaluator) evaluateCustomerType(res *ConditionProgress, cond domain.PriceListCondition, cart *domain.Cart) {
	want, ok := cond.ConditionValue.String("customer_type")
	if !ok {
		res.Message = "customer type not configured"
		return
	}
	if cond.Operator != domain.OperatorEquals && cond.Operator != "" {
		e.logger.Warn("unknown price list condition operator",
			zap.String("condition_id", cond.ID),
			zap.String("condition_type", string(cond.ConditionType)),
			zap.String("operator", string(cond.Operator)))
		res.Message = "unsupported operator"
		return
	}
	if cart == nil || cart.CustomerType == nil {
		res.Message = "customer type unknown"
		return
	}
	res.IsMet = strings.EqualFold(strings.TrimSpace(*cart.CustomerType), strings.TrimSpace(want))
	if res.IsMet {
		res.Progress = 100
	}
}

// progressOf is min(100, current/target*100); a zero target counts as complete only when met.
func progressOf(current, target decimal.Decimal, met bool) float64 {
	if !target.IsPositive() {
		if met {
			return 100
		}
		return 0
	}
	pct := current.Div(target).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	return pct.Round(2).InexactFloat64()
}
