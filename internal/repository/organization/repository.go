package organization

import (
	"context"

	"quote-commerce/internal/domain"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
	Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
}
