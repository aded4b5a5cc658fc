package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"quote-commerce/internal/domain"
	"quote-commerce/internal/metrics"
)

// ProductSource exposes every price-list price of a product.
type ProductSource interface {
	GetByID(ctx context.Context, organizationID, productID string) (*domain.Product, error)
}

// PriceListSource lists an organization's price lists with their conditions.
type PriceListSource interface {
	List(ctx context.Context, organizationID string, status domain.PriceListStatus) ([]domain.PriceList, error)
}

// ItemRequest is a product and quantity to be priced.
type ItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"gt=0"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// ProcessedItem is an item priced under the applied list, with the product snapshot.
type ProcessedItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	MaxStock  int             `json:"maxStock"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

// CartItem converts the processed item into a cart line.
func (p ProcessedItem) CartItem() domain.CartItem {
	return domain.CartItem{
		ProductID: p.ProductID,
		Name:      p.Name,
		SKU:       p.SKU,
		Size:      p.Size,
		Color:     p.Color,
		Price:     p.Price,
		Quantity:  p.Quantity,
		MaxStock:  p.MaxStock,
		ImageURL:  p.ImageURL,
	}
}

// Selection is the result of choosing the cheapest applicable price list.
type Selection struct {
	ProcessedItems   []ProcessedItem  `json:"processedItems"`
	AppliedPriceList domain.PriceList `json:"appliedPriceList"`
	TotalPrice       decimal.Decimal  `json:"totalPrice"`
	TotalQuantity    int              `json:"totalQuantity"`
}

// Selector picks the price list a cart is billed under.
type Selector struct {
	products   ProductSource
	priceLists PriceListSource
	evaluator  *Evaluator
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewSelector(products ProductSource, priceLists PriceListSource, evaluator *Evaluator, m *metrics.Metrics, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if evaluator == nil {
		evaluator = NewEvaluator(logger)
	}
	return &Selector{
		products:   products,
		priceLists: priceLists,
		evaluator:  evaluator,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// SelectBestPriceList prices items under the default list, finds every list whose
// active conditions all hold for the default-priced totals, and returns the one with
// the strictly lowest total cost. Ties keep the earlier list, starting with the default.
//
// Quantities are clamped to current stock before any total is computed, so the
// selection matches the lines the cart will actually hold. Out-of-stock items come
// back with quantity zero and take no part in totals or list costs.
func (s *Selector) SelectBestPriceList(ctx context.Context, items []ItemRequest, cart *domain.Cart, organizationID string) (*Selection, error) {
	lists, err := s.priceLists.List(ctx, organizationID, domain.PriceListStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list price lists: %w", err)
	}
	defaultList, ok := findDefault(lists)
	if !ok {
		return nil, domain.ErrNoDefaultPriceList
	}

	products, err := s.fetchProducts(ctx, organizationID, items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	processed := make([]ProcessedItem, len(items))
	totalPrice := decimal.Zero
	totalQuantity := 0
	for i, item := range items {
		product := products[i]
		processed[i] = ProcessedItem{
			ProductID: product.ID,
			Name:      product.Name,
			SKU:       product.SKU,
			Size:      firstNonEmpty(item.Size, product.Size),
			Color:     firstNonEmpty(item.Color, product.Color),
			Quantity:  stockedQuantity(item.Quantity, product.Stock),
			MaxStock:  product.Stock,
			ImageURL:  product.ImageURL,
		}
		if processed[i].Quantity == 0 {
			s.logger.Debug("item dropped: out of stock",
				zap.String("organization_id", organizationID),
				zap.String("product_id", product.ID))
			continue
		}
		price, ok := product.PriceIn(defaultList.ID, now)
		if !ok {
			return nil, fmt.Errorf("product %s has no price in default list %s: %w", product.ID, defaultList.ID, domain.ErrNotFound)
		}
		processed[i].Price = price.Amount
		totalPrice = totalPrice.Add(price.Amount.Mul(decimal.NewFromInt(int64(processed[i].Quantity))))
		totalQuantity += processed[i].Quantity
	}

	best := defaultList
	bestCost := totalPrice
	for _, list := range s.applicableLists(lists, totalPrice, totalQuantity, cart) {
		cost, ok := listCost(list.ID, processed, products, now)
		if !ok {
			s.logger.Debug("price list disqualified: missing product price",
				zap.String("organization_id", organizationID),
				zap.String("price_list_id", list.ID))
			continue
		}
		if cost.LessThan(bestCost) {
			best = list
			bestCost = cost
		}
	}

	if best.ID != defaultList.ID {
		for i := range processed {
			if processed[i].Quantity == 0 {
				continue
			}
			price, _ := products[i].PriceIn(best.ID, now)
			processed[i].Price = price.Amount
		}
	}
	s.metrics.ObserveSelection(best.ID == defaultList.ID)
	s.logger.Debug("price list selected",
		zap.String("organization_id", organizationID),
		zap.String("price_list_id", best.ID),
		zap.Bool("is_default", best.ID == defaultList.ID),
		zap.String("total", bestCost.String()))

	return &Selection{
		ProcessedItems:   processed,
		AppliedPriceList: best,
		TotalPrice:       bestCost,
		TotalQuantity:    totalQuantity,
	}, nil
}

// applicableLists returns the non-default lists, in discovery order, whose active
// conditions are all met. A list without active conditions never applies here.
func (s *Selector) applicableLists(lists []domain.PriceList, totalPrice decimal.Decimal, totalQuantity int, cart *domain.Cart) []domain.PriceList {
	var out []domain.PriceList
	for _, list := range lists {
		if list.IsDefault {
			continue
		}
		if conditionsMet(s.evaluator, list, totalPrice, totalQuantity, cart) {
			out = append(out, list)
		}
	}
	return out
}

// conditionsMet reports whether list has active conditions and all of them hold.
func conditionsMet(evaluator *Evaluator, list domain.PriceList, totalPrice decimal.Decimal, totalQuantity int, cart *domain.Cart) bool {
	conditions := list.ActiveConditions()
	if len(conditions) == 0 {
		return false
	}
	for _, cond := range conditions {
		if !evaluator.Evaluate(cond, totalPrice, totalQuantity, cart).IsMet {
			return false
		}
	}
	return true
}

// fetchProducts loads each item's product concurrently, keeping item order.
func (s *Selector) fetchProducts(ctx context.Context, organizationID string, items []ItemRequest) ([]*domain.Product, error) {
	products := make([]*domain.Product, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, item := range items {
		g.Go(func() error {
			product, err := s.products.GetByID(gctx, organizationID, item.ProductID)
			if err != nil {
				return fmt.Errorf("product %s: %w", item.ProductID, err)
			}
			products[i] = product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}

func listCost(priceListID string, items []ProcessedItem, products []*domain.Product, now time.Time) (decimal.Decimal, bool) {
	total := decimal.Zero
	for i, item := range items {
		if item.Quantity == 0 {
			continue
		}
		price, ok := products[i].PriceIn(priceListID, now)
		if !ok {
			return decimal.Zero, false
		}
		total = total.Add(price.Amount.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total, true
}

func stockedQuantity(requested, stock int) int {
	if stock <= 0 {
		return 0
	}
	return min(requested, stock)
}

func findDefault(lists []domain.PriceList) (domain.PriceList, bool) {
	for _, list := range lists {
		if list.IsDefault {
			return list, true
		}
	}
	return domain.PriceList{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
