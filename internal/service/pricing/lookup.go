package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"quote-commerce/internal/domain"
)

// PriceLookup resolves current prices for products and cart lines.
type PriceLookup struct {
	products   ProductSource
	priceLists PriceListSource
	evaluator  *Evaluator
	now        func() time.Time
}

func NewPriceLookup(products ProductSource, priceLists PriceListSource) *PriceLookup {
	return &PriceLookup{products: products, priceLists: priceLists, evaluator: NewEvaluator(nil), now: time.Now}
}

// PriceFor returns the product's price under priceListID that is valid now.
func (l *PriceLookup) PriceFor(ctx context.Context, organizationID, productID, priceListID string) (domain.ProductPrice, *domain.Product, error) {
	product, err := l.products.GetByID(ctx, organizationID, productID)
	if err != nil {
		return domain.ProductPrice{}, nil, fmt.Errorf("product %s: %w", productID, err)
	}
	price, ok := product.PriceIn(priceListID, l.now())
	if !ok {
		return domain.ProductPrice{}, product, fmt.Errorf("price for product %s in list %s: %w", productID, priceListID, domain.ErrNotFound)
	}
	return price, product, nil
}

// DefaultPriceList returns the organization's active default list.
func (l *PriceLookup) DefaultPriceList(ctx context.Context, organizationID string) (domain.PriceList, error) {
	lists, err := l.priceLists.List(ctx, organizationID, domain.PriceListStatusActive)
	if err != nil {
		return domain.PriceList{}, fmt.Errorf("list price lists: %w", err)
	}
	list, ok := findDefault(lists)
	if !ok {
		return domain.PriceList{}, domain.ErrNoDefaultPriceList
	}
	return list, nil
}

// CartPrices returns the current unit price of every product in the cart, keyed by
// product id, and the list they were taken from. The cart's applied list is used while
// its active conditions still hold for the cart's default-priced lines and it prices
// every product in the cart; otherwise prices come from the default list.
func (l *PriceLookup) CartPrices(ctx context.Context, cart *domain.Cart) (string, map[string]decimal.Decimal, error) {
	pc, err := l.priceCart(ctx, cart)
	if err != nil {
		return "", nil, err
	}
	now := l.now()
	out := make(map[string]decimal.Decimal, len(pc.products))
	for id, product := range pc.products {
		price, ok := product.PriceIn(pc.list.ID, now)
		if !ok {
			return "", nil, fmt.Errorf("product %s has no price in list %s: %w", id, pc.list.ID, domain.ErrNotFound)
		}
		out[id] = price.Amount
	}
	return pc.list.ID, out, nil
}

// CurrentPrice prices a product under the cart's effective list, falling back to the
// default list when the product has no price there.
func (l *PriceLookup) CurrentPrice(ctx context.Context, cart *domain.Cart, productID string) (domain.ProductPrice, *domain.Product, error) {
	pc, err := l.priceCart(ctx, cart)
	if err != nil {
		return domain.ProductPrice{}, nil, err
	}
	product, ok := pc.products[productID]
	if !ok {
		product, err = l.products.GetByID(ctx, cart.OrganizationID, productID)
		if err != nil {
			return domain.ProductPrice{}, nil, fmt.Errorf("product %s: %w", productID, err)
		}
	}
	now := l.now()
	if price, ok := product.PriceIn(pc.list.ID, now); ok {
		return price, product, nil
	}
	price, ok := product.PriceIn(pc.defaultList.ID, now)
	if !ok {
		return domain.ProductPrice{}, product, fmt.Errorf("product %s has no price in default list %s: %w", productID, pc.defaultList.ID, domain.ErrNotFound)
	}
	return price, product, nil
}

type cartPricing struct {
	defaultList domain.PriceList
	list        domain.PriceList
	products    map[string]*domain.Product
}

func (l *PriceLookup) priceCart(ctx context.Context, cart *domain.Cart) (*cartPricing, error) {
	lists, err := l.priceLists.List(ctx, cart.OrganizationID, domain.PriceListStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list price lists: %w", err)
	}
	defaultList, ok := findDefault(lists)
	if !ok {
		return nil, domain.ErrNoDefaultPriceList
	}

	pc := &cartPricing{defaultList: defaultList, list: defaultList, products: make(map[string]*domain.Product, len(cart.Items))}
	for _, item := range cart.Items {
		if _, seen := pc.products[item.ProductID]; seen {
			continue
		}
		product, err := l.products.GetByID(ctx, cart.OrganizationID, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, err)
		}
		pc.products[item.ProductID] = product
	}

	if cart.AppliedPriceListID == nil || *cart.AppliedPriceListID == defaultList.ID {
		return pc, nil
	}
	applied, ok := findList(lists, *cart.AppliedPriceListID)
	if !ok {
		return pc, nil
	}

	now := l.now()
	totalPrice := decimal.Zero
	totalQuantity := 0
	for _, item := range cart.Items {
		product := pc.products[item.ProductID]
		if _, ok := product.PriceIn(applied.ID, now); !ok {
			return pc, nil
		}
		price, ok := product.PriceIn(defaultList.ID, now)
		if !ok {
			// Falls back to the default list, where the missing price is reported.
			return pc, nil
		}
		totalPrice = totalPrice.Add(price.Amount.Mul(decimal.NewFromInt(int64(item.Quantity))))
		totalQuantity += item.Quantity
	}
	if conditionsMet(l.evaluator, applied, totalPrice, totalQuantity, cart) {
		pc.list = applied
	}
	return pc, nil
}

func findList(lists []domain.PriceList, id string) (domain.PriceList, bool) {
	for _, list := range lists {
		if list.ID == id {
			return list, true
		}
	}
	return domain.PriceList{}, false
}
