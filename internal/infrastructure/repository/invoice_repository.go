package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	domainRepo "github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) domainRepo.InvoiceRepository {
	return &invoiceRepository{db: db}
}

func preloadInvoice(db *gorm.DB) *gorm.DB {
	return db.Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Preload("Contractors", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Contractors.Contractor").
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

func (r *invoiceRepository) first(db *gorm.DB, conds ...interface{}) (*entity.Invoice, error) {
	var invoice entity.Invoice
	err := db.First(&invoice, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *invoiceRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Invoice, error) {
	return r.first(r.db.WithContext(ctx).Scopes(OwnedBy(userID), preloadInvoice), "id = ?", id)
}

func (r *invoiceRepository) GetForUpdate(ctx context.Context, userID, id uuid.UUID) (*entity.Invoice, error) {
	return r.first(r.db.WithContext(ctx).Scopes(OwnedBy(userID), ForUpdate), "id = ?", id)
}

func (r *invoiceRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	return r.first(r.db.WithContext(ctx).Scopes(ForUpdate), "id = ?", id)
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error) {
	return r.first(r.db.WithContext(ctx).Scopes(preloadInvoice), "id = ?", id)
}

func (r *invoiceRepository) GetByPaymentToken(ctx context.Context, token string) (*entity.Invoice, error) {
	if token == "" {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx).Scopes(preloadInvoice), "payment_token = ?", token)
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *entity.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(invoice).Error
}

func (r *invoiceRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Scopes(OwnedBy(userID)).Delete(&entity.Invoice{}, "id = ?", id).Error
}

func (r *invoiceRepository) List(ctx context.Context, userID uuid.UUID, filter domainRepo.InvoiceFilter, params *pagination.PaginationParams) ([]entity.Invoice, int64, error) {
	var invoices []entity.Invoice
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Invoice{}).
		Scopes(OwnedBy(userID), Search(filter.Search, "number", "title"))
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Preload("Client").
		Offset(params.Offset()).Limit(params.PerPage).
		Order("created_at DESC").
		Find(&invoices).Error

	return invoices, total, err
}

func (r *invoiceRepository) ListOverdue(ctx context.Context, userID *uuid.UUID, now time.Time) ([]entity.Invoice, error) {
	var invoices []entity.Invoice
	query := r.db.WithContext(ctx).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", enum.InvoiceStatusSent, now)
	if userID != nil {
		query = query.Scopes(OwnedBy(*userID))
	}
	err := query.Order("due_date ASC").Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepository) NextNumber(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&entity.Invoice{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count + 1, err
}

func (r *invoiceRepository) ListItems(ctx context.Context, invoiceID uuid.UUID) ([]entity.InvoiceItem, error) {
	var items []entity.InvoiceItem
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("sort_order ASC, created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *invoiceRepository) GetItem(ctx context.Context, invoiceID, itemID uuid.UUID) (*entity.InvoiceItem, error) {
	var item entity.InvoiceItem
	err := r.db.WithContext(ctx).First(&item, "invoice_id = ? AND id = ?", invoiceID, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &item, err
}

func (r *invoiceRepository) CreateItem(ctx context.Context, item *entity.InvoiceItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *invoiceRepository) UpdateItem(ctx context.Context, item *entity.InvoiceItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *invoiceRepository) DeleteItem(ctx context.Context, invoiceID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.InvoiceItem{}, "invoice_id = ? AND id = ?", invoiceID, itemID).Error
}

func (r *invoiceRepository) ListContractors(ctx context.Context, invoiceID uuid.UUID) ([]entity.InvoiceContractor, error) {
	var assignments []entity.InvoiceContractor
	err := r.db.WithContext(ctx).Preload("Contractor").
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *invoiceRepository) GetContractor(ctx context.Context, invoiceID, contractorID uuid.UUID) (*entity.InvoiceContractor, error) {
	var ic entity.InvoiceContractor
	err := r.db.WithContext(ctx).Preload("Contractor").
		First(&ic, "invoice_id = ? AND contractor_id = ?", invoiceID, contractorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ic, err
}

func (r *invoiceRepository) CreateContractor(ctx context.Context, ic *entity.InvoiceContractor) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(ic).Error
}

func (r *invoiceRepository) UpdateContractor(ctx context.Context, ic *entity.InvoiceContractor) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(ic).Error
}

func (r *invoiceRepository) DeleteContractor(ctx context.Context, invoiceID, contractorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&entity.InvoiceContractor{}, "invoice_id = ? AND contractor_id = ?", invoiceID, contractorID).Error
}

func (r *invoiceRepository) ListContractorsByFeeToken(ctx context.Context, token string) ([]entity.InvoiceContractor, error) {
	var assignments []entity.InvoiceContractor
	if token == "" {
		return assignments, nil
	}
	err := r.db.WithContext(ctx).Preload("Contractor").
		Where("contractor_fee_payment_token = ? AND billed_separately = ?", token, true).
		Order("created_at ASC").
		Find(&assignments).Error
	return assignments, err
}
