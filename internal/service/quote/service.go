package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"quote-commerce/internal/config"
	"quote-commerce/internal/domain"
	"quote-commerce/internal/lock"
	"quote-commerce/internal/metrics"
	"quote-commerce/internal/notify"
)

type cartStore interface {
	GetByID(ctx context.Context, organizationID, id string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart, changes ...domain.CartChange) error
}

type priceSource interface {
	CartPrices(ctx context.Context, cart *domain.Cart) (string, map[string]decimal.Decimal, error)
}

// Outcome is the branch a pre-payment check resolved to.
type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeRequiresApproval Outcome = "requires_approval"
	OutcomeBlocked          Outcome = "blocked"
)

// PaymentCheck is the result of ValidateBeforePayment. Reason is set only when blocked;
// Validation carries the diff when prices drifted.
type PaymentCheck struct {
	Outcome    Outcome
	Cart       *domain.Cart
	Validation *PriceValidationResult
	Reason     error
}

// Service runs quote lifecycle transitions and price reconciliation.
type Service struct {
	carts    cartStore
	prices   priceSource
	locker   lock.Locker
	notifier notify.Notifier
	policy   config.QuotePolicy
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(carts cartStore, prices priceSource, locker lock.Locker, policy config.QuotePolicy, opts ...Option) *Service {
	s := &Service{
		carts:    carts,
		prices:   prices,
		locker:   locker,
		notifier: notify.Nop{},
		policy:   policy,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	return s
}

// Policy returns the policy the service was built with.
func (s *Service) Policy() config.QuotePolicy {
	return s.policy
}

// CheckExpiration is the pure expiration check; it never writes.
func (s *Service) CheckExpiration(cart *domain.Cart) domain.ExpirationState {
	return cart.CheckExpiration(s.now())
}

// ValidateQuoteStatus fails unless a payment may start from the cart's status.
func (s *Service) ValidateQuoteStatus(cart *domain.Cart) error {
	if cart.Status == domain.CartStatusExpired && s.policy.AllowExpiredQuotes {
		return nil
	}
	return cart.ValidateStatusForPayment()
}

// ValidateCartPrices re-prices every line against current prices. It does not modify the cart.
func (s *Service) ValidateCartPrices(ctx context.Context, organizationID, cartID string) (*PriceValidationResult, error) {
	cart, err := s.carts.GetByID(ctx, organizationID, cartID)
	if err != nil {
		return nil, err
	}
	return s.validate(ctx, cart)
}

// validate is all-or-nothing: one product without a current price aborts the whole check.
func (s *Service) validate(ctx context.Context, cart *domain.Cart) (*PriceValidationResult, error) {
	res := &PriceValidationResult{
		CartID:        cart.ID,
		Changes:       []PriceChange{},
		TotalOldPrice: decimal.Zero,
		TotalNewPrice: decimal.Zero,
	}
	listID, prices, err := s.prices.CartPrices(ctx, cart)
	if err != nil {
		return nil, fmt.Errorf("validate cart %s: %w", cart.ID, err)
	}
	res.PriceListID = listID
	for _, item := range cart.Items {
		price, ok := prices[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("validate item %s: product %s: %w", item.ID, item.ProductID, domain.ErrNotFound)
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		res.TotalOldPrice = res.TotalOldPrice.Add(item.Price.Mul(qty))
		res.TotalNewPrice = res.TotalNewPrice.Add(price.Mul(qty))
		if price.Equal(item.Price) {
			continue
		}
		res.Changes = append(res.Changes, PriceChange{
			ItemID:           item.ID,
			ProductID:        item.ProductID,
			Name:             item.Name,
			Quantity:         item.Quantity,
			OldPrice:         item.Price,
			NewPrice:         price,
			Difference:       price.Sub(item.Price),
			PercentageChange: percentageChange(item.Price, price),
		})
	}
	res.IsValid = len(res.Changes) == 0
	res.TotalDifference = res.TotalNewPrice.Sub(res.TotalOldPrice)
	res.TotalPercentageChange = percentageChange(res.TotalOldPrice, res.TotalNewPrice)
	res.RequiresApproval = RequiresApproval(res, s.policy)
	return res, nil
}

// ValidateBeforePayment checks expiration, status and prices before a payment is created.
// Drift that needs no consent is applied to the cart; drift that does is returned untouched.
// An error is returned only for lookup and storage failures.
func (s *Service) ValidateBeforePayment(ctx context.Context, organizationID, cartID string) (*PaymentCheck, error) {
	var check *PaymentCheck
	err := lock.Do(ctx, s.locker, lock.CartKey(cartID), func(ctx context.Context) error {
		cart, err := s.carts.GetByID(ctx, organizationID, cartID)
		if err != nil {
			return err
		}
		now := s.now()

		if cart.CheckExpiration(now) == domain.QuoteExpired {
			if cart.MarkExpired(now) {
				change := domain.NewCartChange(cart.ID, domain.ChangeExpired, map[string]interface{}{"validUntil": cart.ValidUntil}, now)
				if err := s.carts.Save(ctx, cart, change); err != nil {
					return fmt.Errorf("mark quote expired: %w", err)
				}
				s.notifier.EmitCartUpdated(ctx, cart.ID, cart)
			}
			if !s.policy.AllowExpiredQuotes {
				check = &PaymentCheck{Outcome: OutcomeBlocked, Cart: cart, Reason: &domain.QuoteExpiredError{CartID: cart.ID, ValidUntil: *cart.ValidUntil}}
				return nil
			}
		}
		if err := s.ValidateQuoteStatus(cart); err != nil {
			check = &PaymentCheck{Outcome: OutcomeBlocked, Cart: cart, Reason: err}
			return nil
		}

		res, err := s.validate(ctx, cart)
		if err != nil {
			return err
		}
		if res.RequiresApproval {
			check = &PaymentCheck{Outcome: OutcomeRequiresApproval, Cart: cart, Validation: res}
			return nil
		}

		var changes []domain.CartChange
		if !res.IsValid {
			applyValidation(cart, res)
			cart.PriceChangeApproved = true
			changes = append(changes, domain.NewCartChange(cart.ID, domain.ChangePricesApplied, changeDetails(res), now))
		}
		cart.PriceValidatedAt = &now
		cart.UpdatedAt = now
		if err := s.carts.Save(ctx, cart, changes...); err != nil {
			return fmt.Errorf("save validated cart: %w", err)
		}
		if !res.IsValid {
			s.notifier.EmitCartUpdated(ctx, cart.ID, cart)
		}
		check = &PaymentCheck{Outcome: OutcomeApplied, Cart: cart, Validation: res}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.observe(check)
	return check, nil
}

func (s *Service) observe(check *PaymentCheck) {
	outcome := metrics.OutcomeBlocked
	pct := 0.0
	switch check.Outcome {
	case OutcomeApplied:
		outcome = metrics.OutcomeApplied
		if check.Validation != nil && check.Validation.IsValid {
			outcome = metrics.OutcomeUnchanged
		}
	case OutcomeRequiresApproval:
		outcome = metrics.OutcomeRequiresApproval
	}
	if check.Validation != nil {
		pct = check.Validation.TotalPercentageChange.Abs().InexactFloat64()
	}
	s.metrics.ObserveValidation(outcome, pct)
	s.logger.Info("pre-payment price check",
		zap.String("cart_id", check.Cart.ID),
		zap.String("outcome", string(check.Outcome)),
		zap.Float64("percentage_change", pct),
		zap.NamedError("reason", check.Reason))
}

// ApprovePriceChange records the customer's consent to the current prices and applies them.
func (s *Service) ApprovePriceChange(ctx context.Context, organizationID, cartID string) (*domain.Cart, *PriceValidationResult, error) {
	var (
		cart *domain.Cart
		res  *PriceValidationResult
	)
	err := s.mutate(ctx, organizationID, cartID, func(ctx context.Context, c *domain.Cart, now time.Time) ([]domain.CartChange, error) {
		if !c.IsMutable() {
			return nil, &domain.InvalidQuoteStatusError{CartID: c.ID, Current: c.Status, Expected: domain.PayableStatuses}
		}
		validation, err := s.validate(ctx, c)
		if err != nil {
			return nil, err
		}
		applyValidation(c, validation)
		c.PriceChangeApproved = true
		c.PriceChangeApprovedAt = &now
		c.PriceValidatedAt = &now
		cart, res = c, validation
		return []domain.CartChange{domain.NewCartChange(c.ID, domain.ChangePriceChangeApproved, changeDetails(validation), now)}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return cart, res, nil
}

// ActivateQuote opens the validity window and freezes the original total on first activation.
func (s *Service) ActivateQuote(ctx context.Context, organizationID, cartID string) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.mutate(ctx, organizationID, cartID, func(ctx context.Context, c *domain.Cart, now time.Time) ([]domain.CartChange, error) {
		if err := c.Activate(now, s.policy.ValidityDays); err != nil {
			return nil, err
		}
		cart = c
		return []domain.CartChange{domain.NewCartChange(c.ID, domain.ChangeActivated, map[string]interface{}{
			"validUntil":         c.ValidUntil,
			"originalTotalPrice": c.OriginalTotalPrice.Decimal.String(),
		}, now)}, nil
	})
	return cart, err
}

// MarkExpired persists the expired status when the window has passed. It reports
// whether the status changed.
func (s *Service) MarkExpired(ctx context.Context, organizationID, cartID string) (*domain.Cart, bool, error) {
	var (
		cart    *domain.Cart
		changed bool
	)
	err := s.mutate(ctx, organizationID, cartID, func(ctx context.Context, c *domain.Cart, now time.Time) ([]domain.CartChange, error) {
		cart = c
		if c.CheckExpiration(now) != domain.QuoteExpired || !c.MarkExpired(now) {
			return nil, errUnchanged
		}
		changed = true
		return []domain.CartChange{domain.NewCartChange(c.ID, domain.ChangeExpired, map[string]interface{}{"validUntil": c.ValidUntil}, now)}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return cart, changed, nil
}

// CancelQuote moves an unpaid quote to cancelled.
func (s *Service) CancelQuote(ctx context.Context, organizationID, cartID string) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.mutate(ctx, organizationID, cartID, func(ctx context.Context, c *domain.Cart, now time.Time) ([]domain.CartChange, error) {
		if err := c.Cancel(now); err != nil {
			return nil, err
		}
		cart = c
		return []domain.CartChange{domain.NewCartChange(c.ID, domain.ChangeCancelled, nil, now)}, nil
	})
	return cart, err
}

// MarkPaid closes the quote after a payment completed. Marking a paid quote again is a no-op.
func (s *Service) MarkPaid(ctx context.Context, organizationID, cartID, paymentID string) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.mutate(ctx, organizationID, cartID, func(ctx context.Context, c *domain.Cart, now time.Time) ([]domain.CartChange, error) {
		cart = c
		switch c.Status {
		case domain.CartStatusPaid:
			return nil, errUnchanged
		case domain.CartStatusCancelled:
			return nil, &domain.InvalidQuoteStatusError{CartID: c.ID, Current: c.Status, Expected: []domain.CartStatus{domain.CartStatusActive, domain.CartStatusDraft, domain.CartStatusExpired}}
		}
		c.MarkPaid(now)
		return []domain.CartChange{domain.NewCartChange(c.ID, domain.ChangePaid, map[string]interface{}{"paymentId": paymentID}, now)}, nil
	})
	return cart, err
}
