package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"quote-commerce/internal/domain"
)

type productRepo interface {
	List(ctx context.Context, organizationID string) ([]domain.Product, error)
	GetByID(ctx context.Context, organizationID, id string) (*domain.Product, error)
	GetBySKU(ctx context.Context, organizationID, sku string) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpsertPrice(ctx context.Context, price domain.ProductPrice) (*domain.ProductPrice, error)
}

type priceListRepo interface {
	GetByID(ctx context.Context, organizationID, id string) (*domain.PriceList, error)
}

type Service struct {
	repo       productRepo
	priceLists priceListRepo
	logger     *zap.Logger
}

func New(repo productRepo, priceLists priceListRepo, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, priceLists: priceLists, logger: logger}
}

type CreateInput struct {
	SKU         string `json:"sku" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Size        string `json:"size"`
	Color       string `json:"color"`
	Stock       int    `json:"stock" binding:"gte=0"`
	ImageURL    string `json:"imageUrl"`
}

// PriceInput sets a product's price under one list. Currency and tax mode default to the list's.
type PriceInput struct {
	PriceListID string          `json:"priceListId" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	TaxIncluded *bool           `json:"taxIncluded"`
	ValidFrom   *time.Time      `json:"validFrom"`
	ValidTo     *time.Time      `json:"validTo"`
}

func (s *Service) List(ctx context.Context, organizationID string) ([]domain.Product, error) {
	return s.repo.List(ctx, organizationID)
}

func (s *Service) Get(ctx context.Context, organizationID, id string) (*domain.Product, error) {
	return s.repo.GetByID(ctx, organizationID, id)
}

func (s *Service) Create(ctx context.Context, organizationID string, in CreateInput) (*domain.Product, error) {
	sku := strings.TrimSpace(in.SKU)
	if sku == "" || strings.TrimSpace(in.Name) == "" {
		return nil, domain.InvalidInput("sku and name required")
	}
	if in.Stock < 0 {
		return nil, domain.InvalidInput("stock must not be negative")
	}
	if _, err := s.repo.GetBySKU(ctx, organizationID, sku); err == nil {
		return nil, domain.Conflict("product with sku %s already exists", sku)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.repo.Upsert(ctx, domain.Product{
		OrganizationID: organizationID,
		SKU:            sku,
		Name:           strings.TrimSpace(in.Name),
		Description:    in.Description,
		Size:           in.Size,
		Color:          in.Color,
		Stock:          in.Stock,
		ImageURL:       in.ImageURL,
	})
}

// SetPrice upserts the product's price under in.PriceListID.
func (s *Service) SetPrice(ctx context.Context, organizationID, productID string, in PriceInput) (*domain.ProductPrice, error) {
	if _, err := s.repo.GetByID(ctx, organizationID, productID); err != nil {
		return nil, err
	}
	list, err := s.priceLists.GetByID(ctx, organizationID, in.PriceListID)
	if err != nil {
		return nil, err
	}

	price := domain.ProductPrice{
		OrganizationID: organizationID,
		ProductID:      productID,
		PriceListID:    list.ID,
		Currency:       strings.ToUpper(strings.TrimSpace(in.Currency)),
		Amount:         in.Amount,
		TaxIncluded:    list.PricingTaxMode != "tax_excluded",
		ValidFrom:      in.ValidFrom,
		ValidTo:        in.ValidTo,
	}
	if price.Currency == "" {
		price.Currency = list.Currency
	}
	if in.TaxIncluded != nil {
		price.TaxIncluded = *in.TaxIncluded
	}
	if err := price.Validate(); err != nil {
		return nil, err
	}

	saved, err := s.repo.UpsertPrice(ctx, price)
	if err != nil {
		return nil, err
	}
	s.logger.Info("product price set",
		zap.String("product_id", productID),
		zap.String("price_list_id", list.ID),
		zap.String("amount", saved.Amount.String()))
	return saved, nil
}
