package product

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quote-commerce/internal/domain"
)

type stubProducts struct {
	bySKU  map[string]*domain.Product
	prices []domain.ProductPrice
}

func (s *stubProducts) List(context.Context, string) ([]domain.Product, error) {
	out := []domain.Product{}
	for _, p := range s.bySKU {
		out = append(out, *p)
	}
	return out, nil
}

func (s *stubProducts) GetByID(_ context.Context, _ string, id string) (*domain.Product, error) {
	for _, p := range s.bySKU {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubProducts) GetBySKU(_ context.Context, _ string, sku string) (*domain.Product, error) {
	if p, ok := s.bySKU[sku]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubProducts) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	p.ID = "prod-" + p.SKU
	s.bySKU[p.SKU] = &p
	return &p, nil
}

func (s *stubProducts) UpsertPrice(_ context.Context, p domain.ProductPrice) (*domain.ProductPrice, error) {
	s.prices = append(s.prices, p)
	return &p, nil
}

type stubLists map[string]*domain.PriceList

func (s stubLists) GetByID(_ context.Context, _ string, id string) (*domain.PriceList, error) {
	if l, ok := s[id]; ok {
		return l, nil
	}
	return nil, domain.ErrNotFound
}

func newService() (*Service, *stubProducts) {
	products := &stubProducts{bySKU: map[string]*domain.Product{}}
	lists := stubLists{
		"retail": {ID: "retail", Currency: "USD", PricingTaxMode: "tax_included"},
		"export": {ID: "export", Currency: "EUR", PricingTaxMode: "tax_excluded"},
	}
	return New(products, lists, nil), products
}

func TestCreate_RejectsDuplicateSKU(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	p, err := svc.Create(ctx, "org", CreateInput{SKU: " TS-1 ", Name: "Tee", Stock: 5})
	require.NoError(t, err)
	assert.Equal(t, "TS-1", p.SKU)

	_, err = svc.Create(ctx, "org", CreateInput{SKU: "TS-1", Name: "Tee again"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Create(ctx, "org", CreateInput{SKU: "TS-2", Name: "Tee", Stock: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSetPrice(t *testing.T) {
	svc, products := newService()
	ctx := context.Background()
	p, err := svc.Create(ctx, "org", CreateInput{SKU: "TS-1", Name: "Tee", Stock: 5})
	require.NoError(t, err)

	price, err := svc.SetPrice(ctx, "org", p.ID, PriceInput{PriceListID: "export", Amount: decimal.RequireFromString("12.50")})
	require.NoError(t, err)
	assert.Equal(t, "EUR", price.Currency)
	assert.False(t, price.TaxIncluded)

	_, err = svc.SetPrice(ctx, "org", p.ID, PriceInput{PriceListID: "retail", Amount: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)
	_, err = svc.SetPrice(ctx, "org", p.ID, PriceInput{PriceListID: "retail", Amount: decimal.NewFromInt(1), ValidFrom: &from, ValidTo: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.SetPrice(ctx, "org", p.ID, PriceInput{PriceListID: "missing", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.SetPrice(ctx, "org", "nope", PriceInput{PriceListID: "retail", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Len(t, products.prices, 1)
}
