package pricelist

import (
	"context"

	"quote-commerce/internal/domain"
)

type Repository interface {
	// List returns the organization's lists with their conditions, oldest first.
	// An empty status returns every list.
	List(ctx context.Context, organizationID string, status domain.PriceListStatus) ([]domain.PriceList, error)
	GetByID(ctx context.Context, organizationID, id string) (*domain.PriceList, error)
	Create(ctx context.Context, list domain.PriceList) (*domain.PriceList, error)
	Update(ctx context.Context, list domain.PriceList) (*domain.PriceList, error)
	// SetDefault makes id the organization's only default list in one transaction.
	SetDefault(ctx context.Context, organizationID, id string) error
	Delete(ctx context.Context, organizationID, id string) error
	AddCondition(ctx context.Context, cond domain.PriceListCondition) (*domain.PriceListCondition, error)
	DeleteCondition(ctx context.Context, priceListID, conditionID string) error
}
