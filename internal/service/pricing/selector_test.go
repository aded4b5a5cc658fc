package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"quote-commerce/internal/domain"
	"quote-commerce/internal/metrics"
)

type stubProducts struct {
	products map[string]*domain.Product
}

func (s *stubProducts) GetByID(_ context.Context, _ string, productID string) (*domain.Product, error) {
	p, ok := s.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

type stubPriceLists struct {
	lists []domain.PriceList
	err   error
}

func (s *stubPriceLists) List(_ context.Context, _ string, _ domain.PriceListStatus) ([]domain.PriceList, error) {
	return s.lists, s.err
}

func product(id string, stock int, prices map[string]int64) *domain.Product {
	p := &domain.Product{ID: id, Name: "Product " + id, SKU: "SKU-" + id, Stock: stock}
	for listID, amount := range prices {
		p.Prices = append(p.Prices, domain.ProductPrice{
			ProductID:   id,
			PriceListID: listID,
			Amount:      decimal.NewFromInt(amount),
		})
	}
	return p
}

func amountCondition(id string, minAmount float64) domain.PriceListCondition {
	return domain.PriceListCondition{
		ID:             id,
		Status:         domain.PriceListStatusActive,
		ConditionType:  domain.ConditionTypeAmount,
		Operator:       domain.OperatorGreaterOrEqual,
		ConditionValue: domain.ConditionValue{"min_amount": minAmount},
	}
}

func newTestSelector(products map[string]*domain.Product, lists []domain.PriceList) *Selector {
	return NewSelector(&stubProducts{products: products}, &stubPriceLists{lists: lists}, nil, metrics.New(), nil)
}

func TestSelectBestPriceList_PicksCheaperConditionalList(t *testing.T) {
	products := map[string]*domain.Product{
		"A": product("A", 10, map[string]int64{"default": 10, "L": 9}),
		"B": product("B", 10, map[string]int64{"default": 8, "L": 8}),
	}
	lists := []domain.PriceList{
		{ID: "default", IsDefault: true, Status: domain.PriceListStatusActive},
		{ID: "L", Status: domain.PriceListStatusActive, Conditions: []domain.PriceListCondition{amountCondition("c1", 10)}},
	}
	s := newTestSelector(products, lists)

	sel, err := s.SelectBestPriceList(context.Background(),
		[]ItemRequest{{ProductID: "A", Quantity: 1}, {ProductID: "B", Quantity: 1}}, nil, "org")
	require.NoError(t, err)

	assert.Equal(t, "L", sel.AppliedPriceList.ID)
	assert.True(t, decimal.NewFromInt(17).Equal(sel.TotalPrice), "got %s", sel.TotalPrice)
	require.Len(t, sel.ProcessedItems, 2)
	assert.Equal(t, "A", sel.ProcessedItems[0].ProductID)
	assert.True(t, decimal.NewFromInt(9).Equal(sel.ProcessedItems[0].Price))
	assert.True(t, decimal.NewFromInt(8).Equal(sel.ProcessedItems[1].Price))
	assert.Equal(t, 2, sel.TotalQuantity)
}

func TestSelectBestPriceList_UnmetConditionNeverSelected(t *testing.T) {
	products := map[string]*domain.Product{
		"A": product("A", 10, map[string]int64{"default": 50, "L": 1}),
	}
	lists := []domain.PriceList{
		{ID: "default", IsDefault: true, Status: domain.PriceListStatusActive},
		{ID: "L", Status: domain.PriceListStatusActive, Conditions: []domain.PriceListCondition{amountCondition("c1", 100)}},
	}
	s := newTestSelector(products, lists)

	sel, err := s.SelectBestPriceList(context.Background(), []ItemRequest{{ProductID: "A", Quantity: 1}}, nil, "org")
	require.NoError(t, err)
	assert.Equal(t, "default", sel.AppliedPriceList.ID)
	assert.True(t, decimal.NewFromInt(50).Equal(sel.TotalPrice))
}

func TestSelectBestPriceList_TieKeepsDefault(t *testing.T) {
	products := map[string]*domain.Product{
		"A": product("A", 10, map[string]int64{"default": 10, "L": 10}),
	}
	lists := []domain.PriceList{
		{ID: "default", IsDefault: true, Status: domain.PriceListStatusActive},
		{ID: "L", Status: domain.PriceListStatusActive, Conditions: []domain.PriceListCondition{amountCondition("c1", 0)}},
	}
	sel, err := newTestSelector(products, lists).SelectBestPriceList(context.Background(), []ItemRequest{{ProductID: "A", Quantity: 2}}, nil, "org")
	require.NoError(t, err)
	assert.Equal(t, "default", sel.AppliedPriceList.ID)
}

func TestSelectBestPriceList_ListWithoutConditionsNeverApplies(t *testing.T) {
	products := map[string]*domain.Product{
		"A": product("A", 10, map[string]int64{"default": 10, "L": 1}),
	}
	lists := []domain.PriceList{
		{ID: "default", IsDefault: true, Status: domain.PriceListStatusActive},
		{ID: "L", Status: domain.PriceListStatusActive},
	}
	sel, err := newTestSelector(products, lists).SelectBestPriceList(context.Background(), []ItemRequest{{ProductID: "A", Quantity: 1}}, nil, "org")
	require.NoError(t, err)
	assert.Equal(t, "default", sel.AppliedPriceList.ID)
}

func TestSelectBestPriceList_MissingPriceDisqualifiesList(t *testing.T) {
	products := map[string]*domain.Product{
		"A": product("A", 10, map[string]int64{"default": 10, "L": 1}),
		"B": product("B", 10, map[string]int64{"default": 10}),
	}
	lists := []domain.PriceList{
		{ID: "default", IsDefault: true, Status: domain.PriceListStatusActive},
		{ID: "L", Status: domain.PriceListStatusActive, Conditions: []domain.PriceListCondition{amountCondition("c1", 0)}},
	}
	sel, err := newTestSelector(products, lists).SelectBestPriceList(context.Background(),
		[]ItemRequest{{ProductID: "A", Quantity: 1}, {ProductID: "B", Quantity: 1}}, nil, "org")
	require.NoError(t, err)
	assert.Equal(t, "default", sel.AppliedPriceList.ID)
	assert.True(t, decimal.NewFromInt(20).Equal(sel.TotalPrice))
}

func TestSelectBestPriceList_Errors(t *testing.T) {
	products := map[string]*domain.Product{
		"A": product("A", 10, map[string]int64{"other": 10}),
	}

	t.Run("no default list", func(t *testing.T) {
		s := newTestSelector(products, []domain.PriceList{{ID: "other", Status: domain.PriceListStatusActive}})
		_, err := s.SelectBestPriceList(context.Background(), []ItemRequest{{ProductID: "A", Quantity: 1}}, nil, "org")
		assert.ErrorIs(t, err, domain.ErrNoDefaultPriceList)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("no default price", func(t *testing.T) {
		s := newTestSelector(products, []domain.PriceList{{ID: "default", IsDefault: true}})
		_, err := s.SelectBestPriceList(context.Background(), []ItemRequest{{ProductID: "A", Quantity: 1}}, nil, "org")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown product", func(t *testing.T) {
		s := newTestSelector(products, []domain.PriceList{{ID: "default", IsDefault: true}})
		_, err := s.SelectBestPriceList(context.Background(), []ItemRequest{{ProductID: "missing", Quantity: 1}}, nil, "org")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestCalculatePriceListProgress(t *testing.T) {
	lists := []domain.PriceList{
		{ID: "default", IsDefault: true, Status: domain.PriceListStatusActive, Conditions: []domain.PriceListCondition{amountCondition("d", 1000)}},
		{ID: "wholesale", Name: "Wholesale", Status: domain.PriceListStatusActive, Conditions: []domain.PriceListCondition{amountCondition("w", 200)}},
		{ID: "reached", Status: domain.PriceListStatusActive, Conditions: []domain.PriceListCondition{amountCondition("r", 10)}},
		{ID: "plain", Status: domain.PriceListStatusActive},
	}
	s := newTestSelector(nil, lists)

	got, err := s.CalculatePriceListProgress(context.Background(), ProgressContext{TotalPrice: decimal.NewFromInt(50), TotalQuantity: 2}, "org")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "wholesale", got[0].PriceListID)
	assert.Equal(t, 0, got[0].MetCount)
	assert.Equal(t, 1, got[0].TotalCount)
	assert.Equal(t, 25.0, got[0].Progress)
	assert.True(t, decimal.NewFromInt(150).Equal(got[0].Conditions[0].Remaining))
}

func TestPriceLookup_CurrentPriceFollowsQualifyingList(t *testing.T) {
	products := map[string]*domain.Product{
		"A": product("A", 10, map[string]int64{"default": 10, "L": 9}),
	}
	lists := []domain.PriceList{
		{ID: "default", IsDefault: true, Status: domain.PriceListStatusActive},
		{ID: "L", Status: domain.PriceListStatusActive, Conditions: []domain.PriceListCondition{amountCondition("c1", 15)}},
	}
	lookup := NewPriceLookup(&stubProducts{products: products}, &stubPriceLists{lists: lists})
	lookup.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	cart := &domain.Cart{OrganizationID: "org", Items: []domain.CartItem{{ID: "1", ProductID: "A", Quantity: 2}}}
	price, _, err := lookup.CurrentPrice(context.Background(), cart, "A")
	require.NoError(t, err)
	assert.Equal(t, "default", price.PriceListID)

	applied := "L"
	cart.AppliedPriceListID = &applied
	price, _, err = lookup.CurrentPrice(context.Background(), cart, "A")
	require.NoError(t, err)
	assert.Equal(t, "L", price.PriceListID)

	// One unit no longer reaches the minimum of 15.
	cart.Items[0].Quantity = 1
	price, _, err = lookup.CurrentPrice(context.Background(), cart, "A")
	require.NoError(t, err)
	assert.Equal(t, "default", price.PriceListID)

	gone := "retired"
	cart.AppliedPriceListID = &gone
	cart.Items[0].Quantity = 2
	price, _, err = lookup.CurrentPrice(context.Background(), cart, "A")
	require.NoError(t, err)
	assert.Equal(t, "default", price.PriceListID)

	_, _, err = lookup.PriceFor(context.Background(), "org", "A", "retired")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPriceLookup_CartPricesRechecksAppliedList(t *testing.T) {
	products := map[string]*domain.Product{
		"A": product("A", 10, map[string]int64{"retail": 10, "wholesale": 8}),
		"B": product("B", 10, map[string]int64{"retail": 5}),
	}
	lists := []domain.PriceList{
		{ID: "retail", IsDefault: true, Status: domain.PriceListStatusActive},
		{ID: "wholesale", Status: domain.PriceListStatusActive, Conditions: []domain.PriceListCondition{amountCondition("min-50", 50)}},
	}
	lookup := NewPriceLookup(&stubProducts{products: products}, &stubPriceLists{lists: lists})
	wholesale := "wholesale"

	tests := []struct {
		name   string
		items  []domain.CartItem
		listID string
		priceA int64
	}{
		{name: "still qualifies", items: []domain.CartItem{{ProductID: "A", Quantity: 10}}, listID: "wholesale", priceA: 8},
		{name: "shrunk below minimum", items: []domain.CartItem{{ProductID: "A", Quantity: 1}}, listID: "retail", priceA: 10},
		{name: "product missing from applied list", items: []domain.CartItem{{ProductID: "A", Quantity: 10}, {ProductID: "B", Quantity: 1}}, listID: "retail", priceA: 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cart := &domain.Cart{OrganizationID: "org", AppliedPriceListID: &wholesale, Items: tc.items}
			listID, prices, err := lookup.CartPrices(context.Background(), cart)
			require.NoError(t, err)
			assert.Equal(t, tc.listID, listID)
			assert.True(t, decimal.NewFromInt(tc.priceA).Equal(prices["A"]), "got %s", prices["A"])
		})
	}

	t.Run("unknown product aborts", func(t *testing.T) {
		cart := &domain.Cart{OrganizationID: "org", Items: []domain.CartItem{{ProductID: "gone", Quantity: 1}}}
		_, _, err := lookup.CartPrices(context.Background(), cart)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSelectBestPriceList_ClampsToStockBeforeSelecting(t *testing.T) {
	products := map[string]*domain.Product{
		"B": product("B", 2, map[string]int64{"retail": 5, "wholesale": 4}),
		"C": product("C", 0, map[string]int64{"retail": 100, "wholesale": 1}),
	}
	lists := []domain.PriceList{
		{ID: "retail", IsDefault: true, Status: domain.PriceListStatusActive},
		{ID: "wholesale", Status: domain.PriceListStatusActive, Conditions: []domain.PriceListCondition{amountCondition("min-50", 50)}},
	}
	s := newTestSelector(products, lists)

	sel, err := s.SelectBestPriceList(context.Background(),
		[]ItemRequest{{ProductID: "B", Quantity: 20}, {ProductID: "C", Quantity: 3}}, nil, "org")
	require.NoError(t, err)

	assert.Equal(t, "retail", sel.AppliedPriceList.ID)
	assert.True(t, decimal.NewFromInt(10).Equal(sel.TotalPrice), "got %s", sel.TotalPrice)
	assert.Equal(t, 2, sel.TotalQuantity)
	require.Len(t, sel.ProcessedItems, 2)
	assert.Equal(t, 2, sel.ProcessedItems[0].Quantity)
	assert.True(t, decimal.NewFromInt(5).Equal(sel.ProcessedItems[0].Price))
	assert.Equal(t, 0, sel.ProcessedItems[1].Quantity)
}
