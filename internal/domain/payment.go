package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

type PaymentType string

const (
	PaymentTypeWebPay       PaymentType = "web_pay"
	PaymentTypeBankTransfer PaymentType = "bank_transfer"
	PaymentTypeCheck        PaymentType = "check"
)

// IsValid reports whether t is a supported payment type.
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeWebPay, PaymentTypeBankTransfer, PaymentTypeCheck:
		return true
	}
	return false
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCancelled, PaymentStatusFailed},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
	PaymentStatusFailed:     {PaymentStatusPending, PaymentStatusCancelled},
	PaymentStatusCancelled:  {PaymentStatusPending},
	PaymentStatusRefunded:   {},
}

// HoldsCart reports whether a payment in this status keeps its cart from
// opening another one.
func (s PaymentStatus) HoldsCart() bool {
	return s == PaymentStatusPending || s == PaymentStatusProcessing || s == PaymentStatusCompleted
}

// CanTransitionTo reports whether the adjacency list allows from -> to.
func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Payment records one attempt to pay a quote.
type Payment struct {
	ID                string          `json:"id"`
	OrganizationID    string          `json:"organizationId"`
	CartID            string          `json:"cartId"`
	PaymentMethodID   *string         `json:"paymentMethodId,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            PaymentStatus   `json:"status"`
	PaymentType       PaymentType     `json:"paymentType"`
	ProofURL          string          `json:"proofUrl,omitempty"`
	TransactionID     string          `json:"transactionId,omitempty"`
	ExternalReference string          `json:"externalReference,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	ConfirmedAt       *time.Time      `json:"confirmedAt,omitempty"`
	PaymentDate       *time.Time      `json:"paymentDate,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// TransitionTo moves the payment to status `to` or fails with InvalidTransitionError.
// Completing stamps ConfirmedAt and PaymentDate.
func (p *Payment) TransitionTo(to PaymentStatus, now time.Time) error {
	if !p.Status.CanTransitionTo(to) {
		return &InvalidTransitionError{From: p.Status, To: to}
	}
	p.Status = to
	p.UpdatedAt = now
	if to == PaymentStatusCompleted {
		p.ConfirmedAt = &now
		p.PaymentDate = &now
	}
	return nil
}

// AttachProof records the proof location and advances a pending payment to processing.
func (p *Payment) AttachProof(url string, now time.Time) error {
	switch p.Status {
	case PaymentStatusPending:
		p.ProofURL = url
		return p.TransitionTo(PaymentStatusProcessing, now)
	case PaymentStatusProcessing:
		p.ProofURL = url
		p.UpdatedAt = now
		return nil
	}
	return &InvalidTransitionError{From: p.Status, To: PaymentStatusProcessing}
}

// Refund is only permitted from completed.
func (p *Payment) Refund(now time.Time) error {
	if p.Status != PaymentStatusCompleted {
		return &InvalidTransitionError{From: p.Status, To: PaymentStatusRefunded}
	}
	return p.TransitionTo(PaymentStatusRefunded, now)
}

// Cancel is forbidden once completed.
func (p *Payment) Cancel(now time.Time) error {
	if p.Status == PaymentStatusCompleted {
		return &InvalidTransitionError{From: p.Status, To: PaymentStatusCancelled}
	}
	return p.TransitionTo(PaymentStatusCancelled, now)
}
