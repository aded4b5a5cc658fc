package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the request would break an invariant of stored data.
	ErrConflict = errors.New("conflict")
	// ErrInvalidInput indicates a malformed or out-of-range request value.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoDefaultPriceList is returned when an organization has no default price list.
	ErrNoDefaultPriceList = fmt.Errorf("default price list: %w", ErrNotFound)
)

// QuoteExpiredError is returned when a quote is past its validity window.
type QuoteExpiredError struct {
	CartID     string
	ValidUntil time.Time
}

func (e *QuoteExpiredError) Error() string {
	return fmt.Sprintf("quote %s expired at %s", e.CartID, e.ValidUntil.UTC().Format(time.RFC3339))
}

// InvalidQuoteStatusError is returned when a quote is not in a status that allows the operation.
type InvalidQuoteStatusError struct {
	CartID   string
	Current  CartStatus
	Expected []CartStatus
}

func (e *InvalidQuoteStatusError) Error() string {
	return fmt.Sprintf("quote %s has status %s, expected one of %v", e.CartID, e.Current, e.Expected)
}

// InvalidTransitionError is returned when a payment cannot move between two statuses.
type InvalidTransitionError struct {
	From PaymentStatus
	To   PaymentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition payment from %s to %s", e.From, e.To)
}

// InvalidInput wraps a message so that errors.Is(err, ErrInvalidInput) holds.
func InvalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Conflict wraps a message so that errors.Is(err, ErrConflict) holds.
func Conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
