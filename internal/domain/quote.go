package domain

import (
	"time"
)

// ExpirationState is the outcome of a pure expiration check.
type ExpirationState int

const (
	// QuoteValid means the quote has no window or is still inside it.
	QuoteValid ExpirationState = iota
	// QuoteExpired means now is past ValidUntil.
	QuoteExpired
)

// Activate moves the quote to active, opens a validity window of validityDays
// from now and freezes the original total on the first activation only.
func (c *Cart) Activate(now time.Time, validityDays int) error {
	if c.Status != CartStatusDraft && c.Status != CartStatusActive {
		return &InvalidQuoteStatusError{CartID: c.ID, Current: c.Status, Expected: []CartStatus{CartStatusDraft, CartStatusActive}}
	}
	c.Status = CartStatusActive
	validUntil := now.AddDate(0, 0, validityDays)
	c.ValidUntil = &validUntil
	if !c.OriginalTotalPrice.Valid {
		c.OriginalTotalPrice.Decimal = c.TotalPrice
		c.OriginalTotalPrice.Valid = true
	}
	c.UpdatedAt = now
	return nil
}

// CheckExpiration reports whether the quote is past its validity window.
// It never mutates the cart; MarkExpired applies the transition.
func (c *Cart) CheckExpiration(now time.Time) ExpirationState {
	if c.ValidUntil == nil {
		return QuoteValid
	}
	if now.After(*c.ValidUntil) {
		return QuoteExpired
	}
	return QuoteValid
}

// MarkExpired flips a non-terminal quote to expired.
func (c *Cart) MarkExpired(now time.Time) bool {
	if c.Status == CartStatusPaid || c.Status == CartStatusCancelled || c.Status == CartStatusExpired {
		return false
	}
	c.Status = CartStatusExpired
	c.UpdatedAt = now
	return true
}

// ValidateStatusForPayment fails unless the quote is active or draft.
func (c *Cart) ValidateStatusForPayment() error {
	for _, s := range PayableStatuses {
		if c.Status == s {
			return nil
		}
	}
	return &InvalidQuoteStatusError{CartID: c.ID, Current: c.Status, Expected: PayableStatuses}
}

// Cancel moves an unpaid quote to cancelled.
func (c *Cart) Cancel(now time.Time) error {
	switch c.Status {
	case CartStatusDraft, CartStatusActive, CartStatusExpired:
		c.Status = CartStatusCancelled
		c.UpdatedAt = now
		return nil
	}
	return &InvalidQuoteStatusError{CartID: c.ID, Current: c.Status, Expected: []CartStatus{CartStatusDraft, CartStatusActive, CartStatusExpired}}
}

// MarkPaid moves the quote to paid once a payment completes.
func (c *Cart) MarkPaid(now time.Time) {
	c.Status = CartStatusPaid
	c.UpdatedAt = now
}
