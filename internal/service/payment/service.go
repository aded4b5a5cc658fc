package payment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"quote-commerce/internal/domain"
	"quote-commerce/internal/idempotency"
	"quote-commerce/internal/lock"
	"quote-commerce/internal/metrics"
	"quote-commerce/internal/service/quote"
	"quote-commerce/internal/storage"
)

// MaxProofSize caps an uploaded proof document.
const MaxProofSize = 10 << 20

var proofContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

type paymentRepo interface {
	Create(ctx context.Context, p domain.Payment) (*domain.Payment, error)
	GetByID(ctx context.Context, organizationID, id string) (*domain.Payment, error)
	ListByCart(ctx context.Context, organizationID, cartID string) ([]domain.Payment, error)
	Update(ctx context.Context, p *domain.Payment) error
}

type quoteGate interface {
	ValidateBeforePayment(ctx context.Context, organizationID, cartID string) (*quote.PaymentCheck, error)
	MarkPaid(ctx context.Context, organizationID, cartID, paymentID string) (*domain.Cart, error)
}

type Service struct {
	repo        paymentRepo
	quotes      quoteGate
	proofs      storage.ProofStorage
	idempotency idempotency.Store
	locker      lock.Locker
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*Service)

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

func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(repo paymentRepo, quotes quoteGate, proofs storage.ProofStorage, store idempotency.Store, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		quotes:      quotes,
		proofs:      proofs,
		idempotency: store,
		locker:      lock.NewLocal(),
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	if s.idempotency == nil {
		s.idempotency = idempotency.NewMemory(0)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	CartID          string           `json:"cartId" binding:"required"`
	PaymentType     string           `json:"paymentType" binding:"required,oneof=web_pay bank_transfer check"`
	PaymentMethodID *string          `json:"paymentMethodId,omitempty"`
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	Notes           string           `json:"notes,omitempty"`
}

type ConfirmInput struct {
	TransactionID     string `json:"transactionId"`
	ExternalReference string `json:"externalReference"`
}

// Create validates the quote and opens a pending payment for its total. With a
// non-empty idempotency key a repeated request returns the first payment and
// replayed=true.
func (s *Service) Create(ctx context.Context, organizationID, idempotencyKey string, in CreateInput) (p *domain.Payment, replayed bool, err error) {
	paymentType := domain.PaymentType(strings.TrimSpace(in.PaymentType))
	if !paymentType.IsValid() {
		return nil, false, domain.InvalidInput("unsupported payment type %q", in.PaymentType)
	}
	if strings.TrimSpace(in.CartID) == "" {
		return nil, false, domain.InvalidInput("cartId required")
	}

	if idempotencyKey != "" {
		key := organizationID + ":" + idempotencyKey
		existing, started, err := s.idempotency.Begin(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if !started {
			p, err := s.repo.GetByID(ctx, organizationID, existing)
			if err != nil {
				return nil, false, fmt.Errorf("replay idempotent payment: %w", err)
			}
			return p, true, nil
		}
		defer func() {
			if err != nil {
				if abortErr := s.idempotency.Abort(context.WithoutCancel(ctx), key); abortErr != nil {
					s.logger.Warn("abort idempotency key", zap.String("key", key), zap.Error(abortErr))
				}
				return
			}
			if finishErr := s.idempotency.Finish(context.WithoutCancel(ctx), key, p.ID); finishErr != nil {
				s.logger.Warn("finish idempotency key", zap.String("key", key), zap.Error(finishErr))
			}
		}()
	}

	err = lock.Do(ctx, s.locker, lock.CartPaymentKey(in.CartID), func(ctx context.Context) error {
		if err := s.ensureNoOpenPayment(ctx, organizationID, in.CartID, ""); err != nil {
			return err
		}
		check, err := s.quotes.ValidateBeforePayment(ctx, organizationID, in.CartID)
		if err != nil {
			return err
		}
		if err := check.Err(); err != nil {
			return err
		}
		cart := check.Cart
		if in.Amount != nil && !in.Amount.Equal(cart.TotalPrice) {
			return domain.InvalidInput("amount %s does not match quote total %s", in.Amount.String(), cart.TotalPrice.String())
		}

		p, err = s.repo.Create(ctx, domain.Payment{
			OrganizationID:  organizationID,
			CartID:          cart.ID,
			PaymentMethodID: in.PaymentMethodID,
			Amount:          cart.TotalPrice,
			Currency:        cart.Currency,
			Status:          domain.PaymentStatusPending,
			PaymentType:     paymentType,
			Notes:           in.Notes,
		})
		if err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	s.metrics.ObserveTransition("none", string(domain.PaymentStatusPending))
	s.logger.Info("payment created",
		zap.String("payment_id", p.ID),
		zap.String("cart_id", p.CartID),
		zap.String("amount", p.Amount.String()),
		zap.String("payment_type", string(p.PaymentType)))
	return p, false, nil
}

// ensureNoOpenPayment fails with ErrConflict when the cart already has a payment
// that is pending, processing or completed, other than exceptID.
func (s *Service) ensureNoOpenPayment(ctx context.Context, organizationID, cartID, exceptID string) error {
	payments, err := s.repo.ListByCart(ctx, organizationID, cartID)
	if err != nil {
		return fmt.Errorf("list payments of cart %s: %w", cartID, err)
	}
	for _, existing := range payments {
		if existing.ID != exceptID && existing.Status.HoldsCart() {
			return domain.Conflict("cart %s already has %s payment %s", cartID, existing.Status, existing.ID)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, organizationID, id string) (*domain.Payment, error) {
	return s.repo.GetByID(ctx, organizationID, id)
}

func (s *Service) ListByCart(ctx context.Context, organizationID, cartID string) ([]domain.Payment, error) {
	return s.repo.ListByCart(ctx, organizationID, cartID)
}

// UploadProof stores a transfer or check receipt and moves a pending payment to processing.
func (s *Service) UploadProof(ctx context.Context, organizationID, paymentID, filename, contentType string, size int64, body io.Reader) (*domain.Payment, error) {
	if size <= 0 || size > MaxProofSize {
		return nil, domain.InvalidInput("proof must be between 1 byte and %d bytes", MaxProofSize)
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !proofContentTypes[contentType] {
		return nil, domain.InvalidInput("unsupported proof content type %q", contentType)
	}
	return s.transition(ctx, organizationID, paymentID, func(ctx context.Context, p *domain.Payment, now time.Time) error {
		if p.PaymentType == domain.PaymentTypeWebPay {
			return domain.InvalidInput("web_pay payments do not take a proof")
		}
		if p.Status != domain.PaymentStatusPending && p.Status != domain.PaymentStatusProcessing {
			return &domain.InvalidTransitionError{From: p.Status, To: domain.PaymentStatusProcessing}
		}
		obj, err := s.proofs.Put(ctx, storage.ProofKey(p.ID, filename), body, size, contentType)
		if err != nil {
			return fmt.Errorf("store proof: %w", err)
		}
		return p.AttachProof(obj.URL, now)
	})
}

// Confirm completes a processing payment and closes its quote as paid.
func (s *Service) Confirm(ctx context.Context, organizationID, paymentID string, in ConfirmInput) (*domain.Payment, error) {
	p, err := s.transition(ctx, organizationID, paymentID, func(_ context.Context, p *domain.Payment, now time.Time) error {
		if in.TransactionID != "" {
			p.TransactionID = in.TransactionID
		}
		if in.ExternalReference != "" {
			p.ExternalReference = in.ExternalReference
		}
		return p.TransitionTo(domain.PaymentStatusCompleted, now)
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.quotes.MarkPaid(ctx, organizationID, p.CartID, p.ID); err != nil {
		s.logger.Error("mark quote paid", zap.String("payment_id", p.ID), zap.String("cart_id", p.CartID), zap.Error(err))
		return p, fmt.Errorf("mark cart %s paid: %w", p.CartID, err)
	}
	return p, nil
}

func (s *Service) Fail(ctx context.Context, organizationID, paymentID, reason string) (*domain.Payment, error) {
	return s.transition(ctx, organizationID, paymentID, func(_ context.Context, p *domain.Payment, now time.Time) error {
		if reason != "" {
			p.Notes = reason
		}
		return p.TransitionTo(domain.PaymentStatusFailed, now)
	})
}

func (s *Service) Cancel(ctx context.Context, organizationID, paymentID string) (*domain.Payment, error) {
	return s.transition(ctx, organizationID, paymentID, func(_ context.Context, p *domain.Payment, now time.Time) error {
		return p.Cancel(now)
	})
}

func (s *Service) Refund(ctx context.Context, organizationID, paymentID string) (*domain.Payment, error) {
	return s.transition(ctx, organizationID, paymentID, func(_ context.Context, p *domain.Payment, now time.Time) error {
		return p.Refund(now)
	})
}

// Retry reopens a failed or cancelled payment as pending.
func (s *Service) Retry(ctx context.Context, organizationID, paymentID string) (*domain.Payment, error) {
	current, err := s.repo.GetByID(ctx, organizationID, paymentID)
	if err != nil {
		return nil, err
	}
	var out *domain.Payment
	err = lock.Do(ctx, s.locker, lock.CartPaymentKey(current.CartID), func(ctx context.Context) error {
		if err := s.ensureNoOpenPayment(ctx, organizationID, current.CartID, paymentID); err != nil {
			return err
		}
		p, err := s.transition(ctx, organizationID, paymentID, func(_ context.Context, p *domain.Payment, now time.Time) error {
			return p.TransitionTo(domain.PaymentStatusPending, now)
		})
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// transition applies fn to the payment under its lock and persists the result.
func (s *Service) transition(ctx context.Context, organizationID, paymentID string, fn func(ctx context.Context, p *domain.Payment, now time.Time) error) (*domain.Payment, error) {
	var out *domain.Payment
	err := lock.Do(ctx, s.locker, lock.PaymentKey(paymentID), func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, organizationID, paymentID)
		if err != nil {
			return err
		}
		from := p.Status
		if err := fn(ctx, p, s.now()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update payment %s: %w", paymentID, err)
		}
		if from != p.Status {
			s.metrics.ObserveTransition(string(from), string(p.Status))
			s.logger.Info("payment transition",
				zap.String("payment_id", p.ID),
				zap.String("from", string(from)),
				zap.String("to", string(p.Status)))
		}
		out = p
		return nil
	})
	if err != nil {
		var transitionErr *domain.InvalidTransitionError
		if errors.As(err, &transitionErr) {
			s.logger.Debug("payment transition rejected", zap.String("payment_id", paymentID), zap.Error(err))
		}
		return nil, err
	}
	return out, nil
}
