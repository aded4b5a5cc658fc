// Package lock serialises mutations of one aggregate across requests.
package lock

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotAcquired is returned when a lock could not be taken before the context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Release frees a held lock. It is safe to call once.
type Release func(ctx context.Context) error

// Locker hands out exclusive locks by key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// CartKey is the lock key guarding a cart's items and totals.
func CartKey(cartID string) string {
	return "cart:" + cartID + ":lock"
}

// CartPaymentKey serialises opening payments for a cart. It is separate from
// CartKey so payment creation can run the quote checks, which take CartKey.
func CartPaymentKey(cartID string) string {
	return "cart:" + cartID + ":payment:lock"
}

// PaymentKey is the lock key guarding a payment's status.
func PaymentKey(paymentID string) string {
	return "payment:" + paymentID + ":lock"
}

// Do runs fn while holding key. A release failure is reported only when fn succeeded.
func Do(ctx context.Context, l Locker, key string, fn func(ctx context.Context) error) (err error) {
	release, err := l.Acquire(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", key, err)
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil && err == nil {
			err = fmt.Errorf("release %s: %w", key, relErr)
		}
	}()
	return fn(ctx)
}
