package payment

import (
	"context"

	"quote-commerce/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, p domain.Payment) (*domain.Payment, error)
	GetByID(ctx context.Context, organizationID, id string) (*domain.Payment, error)
	ListByCart(ctx context.Context, organizationID, cartID string) ([]domain.Payment, error)
	// Update persists status, proof and confirmation fields.
	Update(ctx context.Context, p *domain.Payment) error
}
