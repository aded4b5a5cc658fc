package cart

import (
	"context"

	"quote-commerce/internal/domain"
)

type Repository interface {
	// Create inserts a cart with its items. Changes are stamped with the new cart id.
	Create(ctx context.Context, cart *domain.Cart, changes ...domain.CartChange) (*domain.Cart, error)
	GetByID(ctx context.Context, organizationID, id string) (*domain.Cart, error)
	// Save writes the cart row, replaces its items and appends changes in one transaction.
	Save(ctx context.Context, cart *domain.Cart, changes ...domain.CartChange) error
	ListChanges(ctx context.Context, organizationID, cartID string) ([]domain.CartChange, error)
}
