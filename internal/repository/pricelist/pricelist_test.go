package pricelist

import (
	"context"
	"errors"
	"testing"

	"quote-commerce/internal/db/dbtest"
	"quote-commerce/internal/domain"
)

func TestPostgres_DefaultIsExclusive(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	orgID := dbtest.Organization(t, pool, "Acme")
	repo := NewPostgres(pool)

	first, err := repo.Create(ctx, domain.PriceList{OrganizationID: orgID, Name: "Retail", Currency: "USD", IsDefault: true, Status: domain.PriceListStatusActive, PricingTaxMode: "tax_included"})
	if err != nil {
		t.Fatalf("Create first: %v", err)
	}
	second, err := repo.Create(ctx, domain.PriceList{OrganizationID: orgID, Name: "Wholesale", Currency: "USD", IsDefault: true, Status: domain.PriceListStatusActive, PricingTaxMode: "tax_included"})
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}

	got, err := repo.GetByID(ctx, orgID, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.IsDefault {
		t.Fatalf("expected first list to lose default flag")
	}

	if err := repo.SetDefault(ctx, orgID, first.ID); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	lists, err := repo.List(ctx, orgID, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	defaults := 0
	for _, l := range lists {
		if l.IsDefault {
			defaults++
			if l.ID != first.ID {
				t.Fatalf("expected %s to be default, got %s", first.ID, l.ID)
			}
		}
	}
	if defaults != 1 {
		t.Fatalf("expected exactly one default, got %d", defaults)
	}

	if err := repo.Delete(ctx, orgID, first.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict deleting default, got %v", err)
	}
	if err := repo.Delete(ctx, orgID, second.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, orgID, second.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := repo.SetDefault(ctx, orgID, second.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on SetDefault, got %v", err)
	}
}

func TestPostgres_ConditionsAndStatusFilter(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	orgID := dbtest.Organization(t, pool, "Acme")
	repo := NewPostgres(pool)

	list, err := repo.Create(ctx, domain.PriceList{
		OrganizationID: orgID,
		Name:           "Volume",
		Currency:       "USD",
		Status:         domain.PriceListStatusActive,
		PricingTaxMode: "tax_included",
		Conditions: []domain.PriceListCondition{{
			ConditionType:  domain.ConditionTypeAmount,
			Operator:       domain.OperatorGreaterOrEqual,
			ConditionValue: domain.ConditionValue{"min_amount": 100.0},
		}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(list.Conditions) != 1 || list.Conditions[0].Status != domain.PriceListStatusActive {
		t.Fatalf("unexpected conditions: %+v", list.Conditions)
	}

	added, err := repo.AddCondition(ctx, domain.PriceListCondition{
		PriceListID:    list.ID,
		ConditionType:  domain.ConditionTypeQuantity,
		Operator:       domain.OperatorGreaterOrEqual,
		ConditionValue: domain.ConditionValue{"min_quantity": 10},
	})
	if err != nil {
		t.Fatalf("AddCondition: %v", err)
	}

	got, err := repo.GetByID(ctx, orgID, list.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(got.Conditions))
	}
	if v, ok := got.Conditions[0].ConditionValue.Decimal("min_amount"); !ok || v.IntPart() != 100 {
		t.Fatalf("condition value not round-tripped: %+v", got.Conditions[0].ConditionValue)
	}

	if err := repo.DeleteCondition(ctx, list.ID, added.ID); err != nil {
		t.Fatalf("DeleteCondition: %v", err)
	}

	list.Status = domain.PriceListStatusInactive
	if _, err := repo.Update(ctx, *list); err != nil {
		t.Fatalf("Update: %v", err)
	}
	active, err := repo.List(ctx, orgID, domain.PriceListStatusActive)
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active lists, got %d", len(active))
	}
	all, err := repo.List(ctx, orgID, "")
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 1 || len(all[0].Conditions) != 1 {
		t.Fatalf("unexpected lists: %+v", all)
	}
}
