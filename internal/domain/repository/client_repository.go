package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/pkg/pagination"
)

// ClientRepository defines the interface for client data operations.
// Lookups are scoped to the owning user.
type ClientRepository interface {
	Create(ctx context.Context, client *entity.Client) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Client, error)
	Update(ctx context.Context, client *entity.Client) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string) ([]entity.Client, int64, error)
	// CountReferences counts the quotes and invoices pointing at the client
	CountReferences(ctx context.Context, id uuid.UUID) (int64, error)
}

// ContractorRepository defines the interface for contractor data operations
type ContractorRepository interface {
	Create(ctx context.Context, contractor *entity.Contractor) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Contractor, error)
	Update(ctx context.Context, contractor *entity.Contractor) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string, activeOnly bool) ([]entity.Contractor, int64, error)
	// CountAssignments counts quote and invoice assignments of the contractor
	CountAssignments(ctx context.Context, id uuid.UUID) (int64, error)
}

// ServiceTemplateRepository defines the interface for the service catalog
type ServiceTemplateRepository interface {
	Create(ctx context.Context, tmpl *entity.ServiceTemplate) error
	// GetVisible returns a global template or one owned by userID
	GetVisible(ctx context.Context, userID, id uuid.UUID) (*entity.ServiceTemplate, error)
	Update(ctx context.Context, tmpl *entity.ServiceTemplate) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns global templates plus the ones owned by userID
	List(ctx context.Context, userID uuid.UUID, category, search string) ([]entity.ServiceTemplate, error)
	FindGlobalByName(ctx context.Context, name string) (*entity.ServiceTemplate, error)
}
