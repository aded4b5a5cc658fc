package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"quote-commerce/internal/domain"
	"quote-commerce/internal/lock"
	"quote-commerce/internal/notify"
	"quote-commerce/internal/service/pricing"
)

type cartRepo interface {
	Create(ctx context.Context, cart *domain.Cart, changes ...domain.CartChange) (*domain.Cart, error)
	GetByID(ctx context.Context, organizationID, id string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart, changes ...domain.CartChange) error
	ListChanges(ctx context.Context, organizationID, cartID string) ([]domain.CartChange, error)
}

type selector interface {
	SelectBestPriceList(ctx context.Context, items []pricing.ItemRequest, cart *domain.Cart, organizationID string) (*pricing.Selection, error)
	CalculatePriceListProgress(ctx context.Context, pc pricing.ProgressContext, organizationID string) ([]pricing.PriceListProgress, error)
}

type priceLookup interface {
	CurrentPrice(ctx context.Context, cart *domain.Cart, productID string) (domain.ProductPrice, *domain.Product, error)
	DefaultPriceList(ctx context.Context, organizationID string) (domain.PriceList, error)
}

// Service owns cart item mutations. Every write runs under the cart lock.
type Service struct {
	repo     cartRepo
	selector selector
	prices   priceLookup
	locker   lock.Locker
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(repo cartRepo, sel selector, prices priceLookup, locker lock.Locker, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		selector: sel,
		prices:   prices,
		locker:   locker,
		notifier: notify.Nop{},
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	return s
}

type CreateInput struct {
	Currency      string                 `json:"currency" binding:"omitempty,len=3"`
	CustomerType  *string                `json:"customerType,omitempty"`
	Items         []pricing.ItemRequest  `json:"items" binding:"omitempty,dive"`
	Customization map[string]interface{} `json:"customization,omitempty"`
}

type AddItemInput struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Create opens a draft cart. Initial items are priced by the price-list selector; the
// currency defaults to the default list's.
func (s *Service) Create(ctx context.Context, organizationID string, in CreateInput) (*domain.Cart, error) {
	now := s.now()
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		list, err := s.prices.DefaultPriceList(ctx, organizationID)
		if err != nil {
			return nil, err
		}
		currency = list.Currency
	}

	cart := domain.NewCart(organizationID, currency, now)
	cart.CustomerType = in.CustomerType
	cart.Customization = in.Customization
	if len(in.Items) > 0 {
		if err := validateItems(in.Items); err != nil {
			return nil, err
		}
		sel, err := s.selector.SelectBestPriceList(ctx, in.Items, cart, organizationID)
		if err != nil {
			return nil, err
		}
		applySelection(cart, sel, now)
	}

	created, err := s.repo.Create(ctx, cart, domain.NewCartChange("", domain.ChangeCreated, map[string]interface{}{
		"currency": currency,
		"items":    len(cart.Items),
	}, now))
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	s.logger.Info("cart created", zap.String("cart_id", created.ID), zap.String("organization_id", organizationID))
	return created, nil
}

func (s *Service) Get(ctx context.Context, organizationID, id string) (*domain.Cart, error) {
	return s.repo.GetByID(ctx, organizationID, id)
}

// ReplaceItems swaps the cart's items and re-prices them under the cheapest applicable list.
func (s *Service) ReplaceItems(ctx context.Context, organizationID, cartID string, items []pricing.ItemRequest) (*domain.Cart, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	return s.update(ctx, organizationID, cartID, func(ctx context.Context, cart *domain.Cart, now time.Time) ([]domain.CartChange, error) {
		details := map[string]interface{}{"items": len(items)}
		if len(items) == 0 {
			cart.ReplaceItems(nil, now)
			cart.AppliedPriceListID = nil
		} else {
			sel, err := s.selector.SelectBestPriceList(ctx, items, cart, organizationID)
			if err != nil {
				return nil, err
			}
			applySelection(cart, sel, now)
			details["appliedPriceListId"] = sel.AppliedPriceList.ID
		}
		details["totalPrice"] = cart.TotalPrice.String()
		return []domain.CartChange{domain.NewCartChange(cart.ID, domain.ChangeItemsReplaced, details, now)}, nil
	})
}

// AddItem merges the product into a matching line, then re-prices every line under
// the cheapest list the cart now qualifies for.
func (s *Service) AddItem(ctx context.Context, organizationID, cartID string, in AddItemInput) (*domain.Cart, error) {
	if strings.TrimSpace(in.ProductID) == "" {
		return nil, domain.InvalidInput("productId required")
	}
	if in.Quantity <= 0 {
		return nil, domain.InvalidInput("quantity must be positive")
	}
	return s.update(ctx, organizationID, cartID, func(ctx context.Context, cart *domain.Cart, now time.Time) ([]domain.CartChange, error) {
		price, product, err := s.prices.CurrentPrice(ctx, cart, in.ProductID)
		if err != nil {
			return nil, err
		}
		size, color := in.Size, in.Color
		if size == "" {
			size = product.Size
		}
		if color == "" {
			color = product.Color
		}
		line, kept := cart.AddItem(domain.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			SKU:       product.SKU,
			Size:      size,
			Color:     color,
			Price:     price.Amount,
			Quantity:  in.Quantity,
			MaxStock:  product.Stock,
			ImageURL:  product.ImageURL,
		}, now)
		if !kept {
			return nil, domain.InvalidInput("product %s is out of stock", product.ID)
		}
		if err := s.reprice(ctx, cart); err != nil {
			return nil, err
		}
		if repriced, ok := cart.ItemByID(line.ID); ok {
			line = repriced
		}
		return []domain.CartChange{domain.NewCartChange(cart.ID, domain.ChangeItemAdded, map[string]interface{}{
			"itemId":             line.ID,
			"productId":          line.ProductID,
			"quantity":           line.Quantity,
			"price":              line.Price.String(),
			"appliedPriceListId": appliedListID(cart),
		}, now)}, nil
	})
}

// UpdateItemQuantity sets a line's quantity, clamped to its stock, and re-prices the
// cart. Zero removes the line.
func (s *Service) UpdateItemQuantity(ctx context.Context, organizationID, cartID, itemID string, quantity int) (*domain.Cart, error) {
	return s.update(ctx, organizationID, cartID, func(ctx context.Context, cart *domain.Cart, now time.Time) ([]domain.CartChange, error) {
		line, err := cart.SetItemQuantity(itemID, quantity)
		if err != nil {
			return nil, itemError(err, itemID)
		}
		if err := s.reprice(ctx, cart); err != nil {
			return nil, err
		}
		action := domain.ChangeItemUpdated
		if line.Quantity == 0 {
			action = domain.ChangeItemRemoved
		}
		return []domain.CartChange{domain.NewCartChange(cart.ID, action, map[string]interface{}{
			"itemId":             itemID,
			"quantity":           line.Quantity,
			"appliedPriceListId": appliedListID(cart),
		}, now)}, nil
	})
}

// RemoveItem drops a line and re-prices what is left.
func (s *Service) RemoveItem(ctx context.Context, organizationID, cartID, itemID string) (*domain.Cart, error) {
	return s.update(ctx, organizationID, cartID, func(ctx context.Context, cart *domain.Cart, now time.Time) ([]domain.CartChange, error) {
		if err := cart.RemoveItem(itemID); err != nil {
			return nil, itemError(err, itemID)
		}
		if err := s.reprice(ctx, cart); err != nil {
			return nil, err
		}
		return []domain.CartChange{domain.NewCartChange(cart.ID, domain.ChangeItemRemoved, map[string]interface{}{
			"itemId":             itemID,
			"appliedPriceListId": appliedListID(cart),
		}, now)}, nil
	})
}

// UpdateCustomization merges fields into the cart's customization. A null value deletes the key.
func (s *Service) UpdateCustomization(ctx context.Context, organizationID, cartID string, fields map[string]interface{}) (*domain.Cart, error) {
	if len(fields) == 0 {
		return nil, domain.InvalidInput("customization fields required")
	}
	return s.update(ctx, organizationID, cartID, func(ctx context.Context, cart *domain.Cart, now time.Time) ([]domain.CartChange, error) {
		if cart.Customization == nil {
			cart.Customization = map[string]interface{}{}
		}
		keys := make([]string, 0, len(fields))
		for k, v := range fields {
			keys = append(keys, k)
			if v == nil {
				delete(cart.Customization, k)
				continue
			}
			cart.Customization[k] = v
		}
		return []domain.CartChange{domain.NewCartChange(cart.ID, domain.ChangeCustomization, map[string]interface{}{"fields": keys}, now)}, nil
	})
}

func (s *Service) Changelog(ctx context.Context, organizationID, cartID string) ([]domain.CartChange, error) {
	if _, err := s.repo.GetByID(ctx, organizationID, cartID); err != nil {
		return nil, err
	}
	return s.repo.ListChanges(ctx, organizationID, cartID)
}

// PriceListProgress reports how far the cart is from each conditional list it has not unlocked.
func (s *Service) PriceListProgress(ctx context.Context, organizationID, cartID string) ([]pricing.PriceListProgress, error) {
	cart, err := s.repo.GetByID(ctx, organizationID, cartID)
	if err != nil {
		return nil, err
	}
	return s.selector.CalculatePriceListProgress(ctx, pricing.ProgressContext{
		TotalPrice:    cart.TotalPrice,
		TotalQuantity: cart.TotalItems,
		Cart:          cart,
	}, organizationID)
}

type mutation func(ctx context.Context, cart *domain.Cart, now time.Time) ([]domain.CartChange, error)

// update loads a mutable cart under its lock, applies fn, saves and notifies the cart room.
func (s *Service) update(ctx context.Context, organizationID, cartID string, fn mutation) (*domain.Cart, error) {
	var out *domain.Cart
	err := lock.Do(ctx, s.locker, lock.CartKey(cartID), func(ctx context.Context) error {
		cart, err := s.repo.GetByID(ctx, organizationID, cartID)
		if err != nil {
			return err
		}
		if !cart.IsMutable() {
			return &domain.InvalidQuoteStatusError{CartID: cart.ID, Current: cart.Status, Expected: []domain.CartStatus{domain.CartStatusDraft, domain.CartStatusActive}}
		}
		now := s.now()
		changes, err := fn(ctx, cart, now)
		if err != nil {
			return err
		}
		cart.UpdatedAt = now
		if err := s.repo.Save(ctx, cart, changes...); err != nil {
			return fmt.Errorf("save cart %s: %w", cartID, err)
		}
		out = cart
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.EmitCartUpdated(ctx, out.ID, out)
	return out, nil
}

func applySelection(cart *domain.Cart, sel *pricing.Selection, now time.Time) {
	items := make([]domain.CartItem, 0, len(sel.ProcessedItems))
	for _, p := range sel.ProcessedItems {
		items = append(items, p.CartItem())
	}
	cart.ReplaceItems(items, now)
	listID := sel.AppliedPriceList.ID
	cart.AppliedPriceListID = &listID
}

// reprice runs price-list selection over the cart's current lines and writes the
// resulting prices, stock and applied list back. Lines whose product ran out of stock
// are dropped.
func (s *Service) reprice(ctx context.Context, cart *domain.Cart) error {
	if len(cart.Items) == 0 {
		cart.AppliedPriceListID = nil
		cart.Recalculate()
		return nil
	}
	requests := make([]pricing.ItemRequest, len(cart.Items))
	for i, item := range cart.Items {
		requests[i] = pricing.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity, Size: item.Size, Color: item.Color}
	}
	sel, err := s.selector.SelectBestPriceList(ctx, requests, cart, cart.OrganizationID)
	if err != nil {
		return err
	}
	kept := make([]domain.CartItem, 0, len(cart.Items))
	for i, item := range cart.Items {
		p := sel.ProcessedItems[i]
		if p.Quantity == 0 {
			continue
		}
		item.Price = p.Price
		item.Quantity = p.Quantity
		item.MaxStock = p.MaxStock
		kept = append(kept, item)
	}
	cart.Items = kept
	listID := sel.AppliedPriceList.ID
	cart.AppliedPriceListID = &listID
	if len(kept) == 0 {
		cart.AppliedPriceListID = nil
	}
	cart.Recalculate()
	return nil
}

func appliedListID(cart *domain.Cart) string {
	if cart.AppliedPriceListID == nil {
		return ""
	}
	return *cart.AppliedPriceListID
}

func validateItems(items []pricing.ItemRequest) error {
	for i, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return domain.InvalidInput("items[%d].productId required", i)
		}
		if item.Quantity <= 0 {
			return domain.InvalidInput("items[%d].quantity must be positive", i)
		}
	}
	return nil
}

func itemError(err error, itemID string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("cart item %s: %w", itemID, err)
	}
	return err
}
