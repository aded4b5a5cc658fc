package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"quote-commerce/internal/domain"
	"quote-commerce/internal/service/pricelist"
	"quote-commerce/internal/service/product"
)

const (
	demoOrganization = "Demo Store"
	retailList       = "Retail"
	wholesaleList    = "Wholesale"
)

type OrganizationStore interface {
	List(ctx context.Context) ([]domain.Organization, error)
	Create(ctx context.Context, org *domain.Organization) (*domain.Organization, error)
}

type PriceLists interface {
	List(ctx context.Context, organizationID string, status domain.PriceListStatus) ([]domain.PriceList, error)
	Create(ctx context.Context, organizationID string, in pricelist.CreateInput) (*domain.PriceList, error)
}

type Products interface {
	List(ctx context.Context, organizationID string) ([]domain.Product, error)
	Create(ctx context.Context, organizationID string, in product.CreateInput) (*domain.Product, error)
	SetPrice(ctx context.Context, organizationID, productID string, in product.PriceInput) (*domain.ProductPrice, error)
}

type productSeed struct {
	SKU         string
	Name        string
	Description string
	Size        string
	Color       string
	Stock       int
	Retail      string
	Wholesale   string
}

var products = []productSeed{
	{SKU: "SKU-DEMO-TSHIRT", Name: "Demo T-Shirt", Description: "Soft cotton tee for demo purposes", Size: "M", Color: "black", Stock: 200, Retail: "19.99", Wholesale: "14.50"},
	{SKU: "SKU-DEMO-HOODIE", Name: "Demo Hoodie", Description: "Fleece hoodie with embroidered logo", Size: "L", Color: "grey", Stock: 80, Retail: "44.00", Wholesale: "35.00"},
	{SKU: "SKU-DEMO-MUG", Name: "Demo Mug", Description: "Ceramic mug with demo logo", Stock: 500, Retail: "12.99", Wholesale: "9.00"},
}

// Apply creates a demo organization with a default retail list, a wholesale list unlocked
// from 500 of cart total, and a few priced products. Re-running reuses what already exists.
func Apply(ctx context.Context, orgs OrganizationStore, lists PriceLists, catalog Products, logger *zap.Logger) (string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	orgID, err := ensureOrganization(ctx, orgs)
	if err != nil {
		return "", fmt.Errorf("ensure organization: %w", err)
	}

	retail, err := ensurePriceList(ctx, lists, orgID, pricelist.CreateInput{
		Name:      retailList,
		Currency:  "USD",
		IsDefault: true,
	})
	if err != nil {
		return "", fmt.Errorf("ensure %s list: %w", retailList, err)
	}
	wholesale, err := ensurePriceList(ctx, lists, orgID, pricelist.CreateInput{
		Name:     wholesaleList,
		Currency: "USD",
		Conditions: []domain.PriceListCondition{{
			ConditionType:  domain.ConditionTypeAmount,
			Operator:       domain.OperatorGreaterOrEqual,
			ConditionValue: domain.ConditionValue{"min_amount": 500},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("ensure %s list: %w", wholesaleList, err)
	}

	existing, err := catalog.List(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("list products: %w", err)
	}
	bySKU := make(map[string]string, len(existing))
	for _, p := range existing {
		bySKU[p.SKU] = p.ID
	}

	for _, ps := range products {
		id, ok := bySKU[ps.SKU]
		if !ok {
			created, err := catalog.Create(ctx, orgID, product.CreateInput{
				SKU:         ps.SKU,
				Name:        ps.Name,
				Description: ps.Description,
				Size:        ps.Size,
				Color:       ps.Color,
				Stock:       ps.Stock,
			})
			if err != nil {
				return "", fmt.Errorf("create product %s: %w", ps.SKU, err)
			}
			id = created.ID
		}
		for listID, amount := range map[string]string{retail.ID: ps.Retail, wholesale.ID: ps.Wholesale} {
			if _, err := catalog.SetPrice(ctx, orgID, id, product.PriceInput{
				PriceListID: listID,
				Amount:      decimal.RequireFromString(amount),
			}); err != nil {
				return "", fmt.Errorf("price product %s: %w", ps.SKU, err)
			}
		}
	}

	logger.Info("seed applied", zap.String("organization_id", orgID), zap.Int("products", len(products)))
	return orgID, nil
}

func ensureOrganization(ctx context.Context, orgs OrganizationStore) (string, error) {
	all, err := orgs.List(ctx)
	if err != nil {
		return "", err
	}
	for _, o := range all {
		if o.Name == demoOrganization {
			return o.ID, nil
		}
	}
	created, err := orgs.Create(ctx, &domain.Organization{Name: demoOrganization})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func ensurePriceList(ctx context.Context, lists PriceLists, orgID string, in pricelist.CreateInput) (*domain.PriceList, error) {
	all, err := lists.List(ctx, orgID, "")
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == in.Name {
			return &all[i], nil
		}
	}
	return lists.Create(ctx, orgID, in)
}
