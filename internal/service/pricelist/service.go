package pricelist

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"quote-commerce/internal/domain"
)

type repo interface {
	List(ctx context.Context, organizationID string, status domain.PriceListStatus) ([]domain.PriceList, error)
	GetByID(ctx context.Context, organizationID, id string) (*domain.PriceList, error)
	Create(ctx context.Context, list domain.PriceList) (*domain.PriceList, error)
	Update(ctx context.Context, list domain.PriceList) (*domain.PriceList, error)
	SetDefault(ctx context.Context, organizationID, id string) error
	Delete(ctx context.Context, organizationID, id string) error
	AddCondition(ctx context.Context, cond domain.PriceListCondition) (*domain.PriceListCondition, error)
	DeleteCondition(ctx context.Context, priceListID, conditionID string) error
}

// Service manages price lists. An organization keeps exactly one default list once it has any.
type Service struct {
	repo   repo
	logger *zap.Logger
}

func New(r repo, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: r, logger: logger}
}

type CreateInput struct {
	Name           string                      `json:"name" binding:"required"`
	Currency       string                      `json:"currency" binding:"required,len=3"`
	IsDefault      bool                        `json:"isDefault"`
	Status         domain.PriceListStatus      `json:"status" binding:"omitempty,oneof=active inactive"`
	PricingTaxMode string                      `json:"pricingTaxMode"`
	Conditions     []domain.PriceListCondition `json:"conditions"`
}

type UpdateInput struct {
	Name           *string                 `json:"name"`
	Currency       *string                 `json:"currency" binding:"omitempty,len=3"`
	IsDefault      *bool                   `json:"isDefault"`
	Status         *domain.PriceListStatus `json:"status" binding:"omitempty,oneof=active inactive"`
	PricingTaxMode *string                 `json:"pricingTaxMode"`
}

func (s *Service) List(ctx context.Context, organizationID string, status domain.PriceListStatus) ([]domain.PriceList, error) {
	return s.repo.List(ctx, organizationID, status)
}

func (s *Service) Get(ctx context.Context, organizationID, id string) (*domain.PriceList, error) {
	return s.repo.GetByID(ctx, organizationID, id)
}

// Create stores a new list. The organization's first list becomes its default.
func (s *Service) Create(ctx context.Context, organizationID string, in CreateInput) (*domain.PriceList, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.InvalidInput("name required")
	}
	if len(strings.TrimSpace(in.Currency)) != 3 {
		return nil, domain.InvalidInput("currency must be a 3-letter code")
	}
	for i, cond := range in.Conditions {
		if err := cond.Validate(); err != nil {
			return nil, fmt.Errorf("conditions[%d]: %w", i, err)
		}
	}
	status := in.Status
	if status == "" {
		status = domain.PriceListStatusActive
	}
	taxMode := in.PricingTaxMode
	if taxMode == "" {
		taxMode = "tax_included"
	}

	isDefault := in.IsDefault
	if !isDefault {
		existing, err := s.repo.List(ctx, organizationID, "")
		if err != nil {
			return nil, err
		}
		isDefault = len(existing) == 0
	}
	if isDefault && status != domain.PriceListStatusActive {
		return nil, domain.InvalidInput("the default price list must be active")
	}

	list, err := s.repo.Create(ctx, domain.PriceList{
		OrganizationID: organizationID,
		Name:           strings.TrimSpace(in.Name),
		Currency:       strings.ToUpper(strings.TrimSpace(in.Currency)),
		IsDefault:      isDefault,
		Status:         status,
		PricingTaxMode: taxMode,
		Conditions:     in.Conditions,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("price list created",
		zap.String("organization_id", organizationID),
		zap.String("price_list_id", list.ID),
		zap.Bool("is_default", list.IsDefault))
	return list, nil
}

// Update patches a list. Promoting a list to default demotes the previous default; the
// current default can be neither demoted nor deactivated directly.
func (s *Service) Update(ctx context.Context, organizationID, id string, in UpdateInput) (*domain.PriceList, error) {
	list, err := s.repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return nil, err
	}

	if in.IsDefault != nil && !*in.IsDefault && list.IsDefault {
		return nil, domain.Conflict("price list %s is the default; promote another list instead", id)
	}
	if in.Status != nil && *in.Status != domain.PriceListStatusActive && (list.IsDefault || (in.IsDefault != nil && *in.IsDefault)) {
		return nil, domain.Conflict("the default price list must stay active")
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, domain.InvalidInput("name must not be empty")
		}
		list.Name = strings.TrimSpace(*in.Name)
	}
	if in.Currency != nil {
		list.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
	}
	if in.Status != nil {
		list.Status = *in.Status
	}
	if in.PricingTaxMode != nil {
		list.PricingTaxMode = *in.PricingTaxMode
	}

	updated, err := s.repo.Update(ctx, *list)
	if err != nil {
		return nil, err
	}
	if in.IsDefault != nil && *in.IsDefault && !updated.IsDefault {
		if updated.Status != domain.PriceListStatusActive {
			return nil, domain.Conflict("the default price list must stay active")
		}
		if err := s.repo.SetDefault(ctx, organizationID, id); err != nil {
			return nil, err
		}
		s.logger.Info("default price list changed", zap.String("organization_id", organizationID), zap.String("price_list_id", id))
		return s.repo.GetByID(ctx, organizationID, id)
	}
	return updated, nil
}

// Delete removes a non-default list.
func (s *Service) Delete(ctx context.Context, organizationID, id string) error {
	list, err := s.repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return err
	}
	if list.IsDefault {
		return domain.Conflict("default price list %s cannot be deleted", id)
	}
	return s.repo.Delete(ctx, organizationID, id)
}

func (s *Service) AddCondition(ctx context.Context, organizationID, priceListID string, cond domain.PriceListCondition) (*domain.PriceListCondition, error) {
	if _, err := s.repo.GetByID(ctx, organizationID, priceListID); err != nil {
		return nil, err
	}
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	cond.PriceListID = priceListID
	return s.repo.AddCondition(ctx, cond)
}

func (s *Service) DeleteCondition(ctx context.Context, organizationID, priceListID, conditionID string) error {
	if _, err := s.repo.GetByID(ctx, organizationID, priceListID); err != nil {
		return err
	}
	return s.repo.DeleteCondition(ctx, priceListID, conditionID)
}
