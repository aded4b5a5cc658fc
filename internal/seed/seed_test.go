package seed

import (
	"context"
	"fmt"
	"testing"

	"quote-commerce/internal/domain"
	"quote-commerce/internal/service/pricelist"
	"quote-commerce/internal/service/product"
)

type memOrgs struct {
	orgs []domain.Organization
}

func (m *memOrgs) List(context.Context) ([]domain.Organization, error) {
	return m.orgs, nil
}

func (m *memOrgs) Create(_ context.Context, org *domain.Organization) (*domain.Organization, error) {
	created := domain.Organization{ID: fmt.Sprintf("org-%d", len(m.orgs)+1), Name: org.Name}
	m.orgs = append(m.orgs, created)
	return &created, nil
}

type memLists struct {
	lists []domain.PriceList
}

func (m *memLists) List(context.Context, string, domain.PriceListStatus) ([]domain.PriceList, error) {
	return m.lists, nil
}

func (m *memLists) Create(_ context.Context, orgID string, in pricelist.CreateInput) (*domain.PriceList, error) {
	list := domain.PriceList{
		ID:             fmt.Sprintf("list-%d", len(m.lists)+1),
		OrganizationID: orgID,
		Name:           in.Name,
		Currency:       in.Currency,
		IsDefault:      in.IsDefault,
		Conditions:     in.Conditions,
	}
	m.lists = append(m.lists, list)
	return &list, nil
}

type memCatalog struct {
	products []domain.Product
	prices   map[string]string
}

func (m *memCatalog) List(context.Context, string) ([]domain.Product, error) {
	return m.products, nil
}

func (m *memCatalog) Create(_ context.Context, orgID string, in product.CreateInput) (*domain.Product, error) {
	p := domain.Product{ID: fmt.Sprintf("p-%d", len(m.products)+1), OrganizationID: orgID, SKU: in.SKU, Name: in.Name, Stock: in.Stock}
	m.products = append(m.products, p)
	return &p, nil
}

func (m *memCatalog) SetPrice(_ context.Context, orgID, productID string, in product.PriceInput) (*domain.ProductPrice, error) {
	if m.prices == nil {
		m.prices = map[string]string{}
	}
	m.prices[productID+"/"+in.PriceListID] = in.Amount.String()
	return &domain.ProductPrice{OrganizationID: orgID, ProductID: productID, PriceListID: in.PriceListID, Amount: in.Amount}, nil
}

func TestApplyIsRepeatable(t *testing.T) {
	orgs, lists, catalog := &memOrgs{}, &memLists{}, &memCatalog{}

	orgID, err := Apply(context.Background(), orgs, lists, catalog, nil)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	again, err := Apply(context.Background(), orgs, lists, catalog, nil)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if orgID != again || len(orgs.orgs) != 1 {
		t.Fatalf("expected one organization, got %d (%s vs %s)", len(orgs.orgs), orgID, again)
	}
	if len(lists.lists) != 2 || len(catalog.products) != len(products) {
		t.Fatalf("expected 2 lists and %d products, got %d and %d", len(products), len(lists.lists), len(catalog.products))
	}
	if len(catalog.prices) != 2*len(products) {
		t.Fatalf("expected a retail and a wholesale price per product, got %d", len(catalog.prices))
	}

	retail, wholesale := lists.lists[0], lists.lists[1]
	if !retail.IsDefault || wholesale.IsDefault {
		t.Fatalf("expected retail to be the only default")
	}
	if len(wholesale.Conditions) != 1 || wholesale.Conditions[0].ConditionType != domain.ConditionTypeAmount {
		t.Fatalf("expected an amount condition on wholesale, got %+v", wholesale.Conditions)
	}
	if got := catalog.prices["p-1/"+wholesale.ID]; got != "14.5" {
		t.Fatalf("expected wholesale tee at 14.5, got %q", got)
	}
}
