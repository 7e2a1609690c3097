package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	domainRepo "github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/pkg/pagination"
	"gorm.io/gorm"
)

type clientRepository struct {
	db *gorm.DB
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *gorm.DB) domainRepo.ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *entity.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *clientRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Client, error) {
	var client entity.Client
	err := r.db.WithContext(ctx).Scopes(OwnedBy(userID)).First(&client, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &client, err
}

func (r *clientRepository) Update(ctx context.Context, client *entity.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

func (r *clientRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Scopes(OwnedBy(userID)).Delete(&entity.Client{}, "id = ?", id).Error
}

func (r *clientRepository) List(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string) ([]entity.Client, int64, error) {
	var clients []entity.Client
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Client{}).
		Scopes(OwnedBy(userID), Search(search, "name", "email", "company"))

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("name ASC").
		Find(&clients).Error

	return clients, total, err
}

func (r *clientRepository) CountReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var quotes, invoices int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&entity.Quote{}).Where("client_id = ?", id).Count(&quotes).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&entity.Invoice{}).Where("client_id = ?", id).Count(&invoices).Error; err != nil {
		return 0, err
	}
	return quotes + invoices, nil
}

type contractorRepository struct {
	db *gorm.DB
}

// NewContractorRepository creates a new contractor repository
func NewContractorRepository(db *gorm.DB) domainRepo.ContractorRepository {
	return &contractorRepository{db: db}
}

func (r *contractorRepository) Create(ctx context.Context, contractor *entity.Contractor) error {
	return r.db.WithContext(ctx).Create(contractor).Error
}

func (r *contractorRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Contractor, error) {
	var contractor entity.Contractor
	err := r.db.WithContext(ctx).Scopes(OwnedBy(userID)).First(&contractor, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &contractor, err
}

func (r *contractorRepository) Update(ctx context.Context, contractor *entity.Contractor) error {
	return r.db.WithContext(ctx).Save(contractor).Error
}

func (r *contractorRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Scopes(OwnedBy(userID)).Delete(&entity.Contractor{}, "id = ?", id).Error
}

func (r *contractorRepository) List(ctx context.Context, userID uuid.UUID, params *pagination.PaginationParams, search string, activeOnly bool) ([]entity.Contractor, int64, error) {
	var contractors []entity.Contractor
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Contractor{}).
		Scopes(OwnedBy(userID), Search(search, "name", "email"))
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Order("name ASC").
		Find(&contractors).Error

	return contractors, total, err
}

func (r *contractorRepository) CountAssignments(ctx context.Context, id uuid.UUID) (int64, error) {
	var onQuotes, onInvoices int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&entity.QuoteContractor{}).Where("contractor_id = ?", id).Count(&onQuotes).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&entity.InvoiceContractor{}).Where("contractor_id = ?", id).Count(&onInvoices).Error; err != nil {
		return 0, err
	}
	return onQuotes + onInvoices, nil
}

type serviceTemplateRepository struct {
	db *gorm.DB
}

// NewServiceTemplateRepository creates a new service template repository
func NewServiceTemplateRepository(db *gorm.DB) domainRepo.ServiceTemplateRepository {
	return &serviceTemplateRepository{db: db}
}

func (r *serviceTemplateRepository) Create(ctx context.Context, tmpl *entity.ServiceTemplate) error {
	return r.db.WithContext(ctx).Create(tmpl).Error
}

func (r *serviceTemplateRepository) GetVisible(ctx context.Context, userID, id uuid.UUID) (*entity.ServiceTemplate, error) {
	var tmpl entity.ServiceTemplate
	err := r.db.WithContext(ctx).
		Where("id = ? AND (user_id IS NULL OR user_id = ?)", id, userID).
		First(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &tmpl, err
}

func (r *serviceTemplateRepository) Update(ctx context.Context, tmpl *entity.ServiceTemplate) error {
	return r.db.WithContext(ctx).Save(tmpl).Error
}

func (r *serviceTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.ServiceTemplate{}, "id = ?", id).Error
}

func (r *serviceTemplateRepository) List(ctx context.Context, userID uuid.UUID, category, search string) ([]entity.ServiceTemplate, error) {
	var templates []entity.ServiceTemplate
	query := r.db.WithContext(ctx).
		Where("(user_id IS NULL OR user_id = ?)", userID).
		Scopes(Search(search, "name", "description"))
	if category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", category)
	}
	err := query.Order("category ASC, name ASC").Find(&templates).Error
	return templates, err
}

func (r *serviceTemplateRepository) FindGlobalByName(ctx context.Context, name string) (*entity.ServiceTemplate, error) {
	var tmpl entity.ServiceTemplate
	err := r.db.WithContext(ctx).Where("user_id IS NULL AND name = ?", name).First(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &tmpl, err
}
