package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/pagination"
	"github.com/shopspring/decimal"
)

// ContractorService handles contractor-related operations
type ContractorService struct {
	contractorRepo repository.ContractorRepository
}

// NewContractorService creates a new contractor service
func NewContractorService(contractorRepo repository.ContractorRepository) *ContractorService {
	return &ContractorService{contractorRepo: contractorRepo}
}

// CreateContractorInput represents the create contractor input
type CreateContractorInput struct {
	UserID      uuid.UUID
	Name        string
	Email       *string
	Phone       *string
	PricingMode enum.PricingMode
	HourlyRate  decimal.Decimal
	FlatRate    decimal.Decimal
	Skills      []string
	Active      *bool
}

func normalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// CreateContractor creates a new contractor
func (s *ContractorService) CreateContractor(ctx context.Context, input *CreateContractorInput) (*entity.Contractor, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperror.NewBadRequestError("Contractor name is required")
	}
	if !input.PricingMode.IsValid() {
		return nil, apperror.NewBadRequestError("Pricing mode must be hourly or flat")
	}
	if input.HourlyRate.IsNegative() || input.FlatRate.IsNegative() {
		return nil, apperror.NewBadRequestError("Rates must not be negative")
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	contractor := &entity.Contractor{
		UserID:      input.UserID,
		Name:        name,
		Email:       input.Email,
		Phone:       input.Phone,
		PricingMode: input.PricingMode,
		HourlyRate:  input.HourlyRate,
		FlatRate:    input.FlatRate,
		Skills:      normalizeSkills(input.Skills),
		Active:      active,
	}

	if err := s.contractorRepo.Create(ctx, contractor); err != nil {
		return nil, err
	}

	return contractor, nil
}

// GetContractor retrieves a contractor owned by userID
func (s *ContractorService) GetContractor(ctx context.Context, userID, id uuid.UUID) (*entity.Contractor, error) {
	return loadOwnedContractor(ctx, s.contractorRepo, userID, id)
}

// ListContractors lists the user's contractors
func (s *ContractorService) ListContractors(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string, activeOnly bool) (*pagination.PaginatedResult[entity.Contractor], error) {
	contractors, total, err := s.contractorRepo.List(ctx, userID, params, search, activeOnly)
	if err != nil {
		return nil, err
	}

	return pagination.NewResult(contractors, total, params), nil
}

// UpdateContractorInput represents the update contractor input
type UpdateContractorInput struct {
	UserID      uuid.UUID
	ID          uuid.UUID
	Name        *string
	Email       *string
	Phone       *string
	PricingMode *enum.PricingMode
	HourlyRate  *decimal.Decimal
	FlatRate    *decimal.Decimal
	Skills      []string
	Active      *bool
}

// UpdateContractor updates a contractor. Existing assignments keep the
// rates they were created with.
func (s *ContractorService) UpdateContractor(ctx context.Context, input *UpdateContractorInput) (*entity.Contractor, error) {
	contractor, err := s.GetContractor(ctx, input.UserID, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperror.NewBadRequestError("Contractor name is required")
		}
		contractor.Name = name
	}
	if input.Email != nil {
		contractor.Email = input.Email
	}
	if input.Phone != nil {
		contractor.Phone = input.Phone
	}
	if input.PricingMode != nil {
		if !input.PricingMode.IsValid() {
			return nil, apperror.NewBadRequestError("Pricing mode must be hourly or flat")
		}
		contractor.PricingMode = *input.PricingMode
	}
	if input.HourlyRate != nil {
		contractor.HourlyRate = *input.HourlyRate
	}
	if input.FlatRate != nil {
		contractor.FlatRate = *input.FlatRate
	}
	if contractor.HourlyRate.IsNegative() || contractor.FlatRate.IsNegative() {
		return nil, apperror.NewBadRequestError("Rates must not be negative")
	}
	if input.Skills != nil {
		contractor.Skills = normalizeSkills(input.Skills)
	}
	if input.Active != nil {
		contractor.Active = *input.Active
	}

	if err := s.contractorRepo.Update(ctx, contractor); err != nil {
		return nil, err
	}

	return contractor, nil
}

// DeleteContractor deletes a contractor that is not assigned anywhere
func (s *ContractorService) DeleteContractor(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetContractor(ctx, userID, id); err != nil {
		return err
	}

	n, err := s.contractorRepo.CountAssignments(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperror.NewConflictError("Contractor is assigned to quotes or invoices and cannot be deleted")
	}

	return s.contractorRepo.Delete(ctx, userID, id)
}
