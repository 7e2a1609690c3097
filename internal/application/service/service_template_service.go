package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/shopspring/decimal"
)

// ServiceTemplateService manages the service catalog
type ServiceTemplateService struct {
	templateRepo repository.ServiceTemplateRepository
}

// NewServiceTemplateService creates a new service template service
func NewServiceTemplateService(templateRepo repository.ServiceTemplateRepository) *ServiceTemplateService {
	return &ServiceTemplateService{templateRepo: templateRepo}
}

// TemplateInput represents the create/update template input
type TemplateInput struct {
	UserID         uuid.UUID
	ID             uuid.UUID
	Name           *string
	Category       *string
	Description    *string
	BasePrice      *decimal.Decimal
	DefaultTaxable *bool
}

// CreateTemplate creates a template owned by the user
func (s *ServiceTemplateService) CreateTemplate(ctx context.Context, input *TemplateInput) (*entity.ServiceTemplate, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, apperror.NewBadRequestError("Template name is required")
	}
	owner := input.UserID
	tmpl := &entity.ServiceTemplate{
		UserID:    &owner,
		Name:      strings.TrimSpace(*input.Name),
		BasePrice: decimal.Zero,
	}
	if err := applyTemplateInput(tmpl, input); err != nil {
		return nil, err
	}

	if err := s.templateRepo.Create(ctx, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

func applyTemplateInput(tmpl *entity.ServiceTemplate, input *TemplateInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return apperror.NewBadRequestError("Template name is required")
		}
		tmpl.Name = name
	}
	if input.Category != nil {
		tmpl.Category = strings.TrimSpace(*input.Category)
	}
	if input.Description != nil {
		tmpl.Description = input.Description
	}
	if input.BasePrice != nil {
		if input.BasePrice.IsNegative() {
			return apperror.NewBadRequestError("Base price must not be negative")
		}
		tmpl.BasePrice = *input.BasePrice
	}
	if input.DefaultTaxable != nil {
		tmpl.DefaultTaxable = *input.DefaultTaxable
	}
	return nil
}

// GetTemplate returns a global template or one owned by the user
func (s *ServiceTemplateService) GetTemplate(ctx context.Context, userID, id uuid.UUID) (*entity.ServiceTemplate, error) {
	tmpl, err := s.templateRepo.GetVisible(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, apperror.NewNotFoundError("Service template")
	}
	return tmpl, nil
}

// ListTemplates returns global templates plus the user's own
func (s *ServiceTemplateService) ListTemplates(ctx context.Context, userID uuid.UUID, category, search string) ([]entity.ServiceTemplate, error) {
	return s.templateRepo.List(ctx, userID, category, search)
}

func (s *ServiceTemplateService) owned(ctx context.Context, userID, id uuid.UUID) (*entity.ServiceTemplate, error) {
	tmpl, err := s.GetTemplate(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if tmpl.IsGlobal() {
		return nil, apperror.NewConflictError("Global service templates are read-only")
	}
	return tmpl, nil
}

// UpdateTemplate updates one of the user's templates
func (s *ServiceTemplateService) UpdateTemplate(ctx context.Context, input *TemplateInput) (*entity.ServiceTemplate, error) {
	tmpl, err := s.owned(ctx, input.UserID, input.ID)
	if err != nil {
		return nil, err
	}
	if err := applyTemplateInput(tmpl, input); err != nil {
		return nil, err
	}
	if err := s.templateRepo.Update(ctx, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// DeleteTemplate deletes one of the user's templates
func (s *ServiceTemplateService) DeleteTemplate(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.templateRepo.Delete(ctx, id)
}

// prefillFromTemplate fills blank item fields from the referenced template
func prefillFromTemplate(ctx context.Context, repo repository.ServiceTemplateRepository, userID uuid.UUID, in *ItemInput) error {
	if in.ServiceTemplateID == nil {
		return nil
	}
	tmpl, err := repo.GetVisible(ctx, userID, *in.ServiceTemplateID)
	if err != nil {
		return err
	}
	if tmpl == nil {
		return apperror.NewNotFoundError("Service template")
	}
	if in.ServiceName == "" {
		in.ServiceName = tmpl.Name
	}
	if in.Description == nil {
		in.Description = tmpl.Description
	}
	if in.UnitPrice.IsZero() {
		in.UnitPrice = tmpl.BasePrice
	}
	if in.Taxable == nil {
		taxable := tmpl.DefaultTaxable
		in.Taxable = &taxable
	}
	return nil
}
