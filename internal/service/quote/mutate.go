package quote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quote-commerce/internal/domain"
	"quote-commerce/internal/lock"
)

// errUnchanged lets a mutation skip the write without failing.
var errUnchanged = errors.New("cart unchanged")

type mutation func(ctx context.Context, cart *domain.Cart, now time.Time) ([]domain.CartChange, error)

// mutate loads, changes and saves a cart while holding its lock, then notifies the cart room.
func (s *Service) mutate(ctx context.Context, organizationID, cartID string, fn mutation) error {
	return lock.Do(ctx, s.locker, lock.CartKey(cartID), func(ctx context.Context) error {
		cart, err := s.carts.GetByID(ctx, organizationID, cartID)
		if err != nil {
			return err
		}
		now := s.now()
		changes, err := fn(ctx, cart, now)
		if errors.Is(err, errUnchanged) {
			return nil
		}
		if err != nil {
			return err
		}
		cart.UpdatedAt = now
		if err := s.carts.Save(ctx, cart, changes...); err != nil {
			return fmt.Errorf("save cart %s: %w", cartID, err)
		}
		s.notifier.EmitCartUpdated(ctx, cart.ID, cart)
		return nil
	})
}
