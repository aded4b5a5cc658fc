package product

import (
	"context"

	"quote-commerce/internal/domain"
)

type Repository interface {
	List(ctx context.Context, organizationID string) ([]domain.Product, error)
	GetByID(ctx context.Context, organizationID, id string) (*domain.Product, error)
	GetBySKU(ctx context.Context, organizationID, sku string) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpsertPrice(ctx context.Context, price domain.ProductPrice) (*domain.ProductPrice, error)
}
