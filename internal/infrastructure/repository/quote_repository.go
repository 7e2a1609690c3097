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

type quoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository(db *gorm.DB) domainRepo.QuoteRepository {
	return &quoteRepository{db: db}
}

func preloadQuote(db *gorm.DB) *gorm.DB {
	return db.Preload("Client").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Preload("Contractors", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Contractors.Contractor")
}

func (r *quoteRepository) first(db *gorm.DB, conds ...interface{}) (*entity.Quote, error) {
	var quote entity.Quote
	err := db.First(&quote, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

func (r *quoteRepository) Create(ctx context.Context, quote *entity.Quote) error {
	return r.db.WithContext(ctx).Create(quote).Error
}

func (r *quoteRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Quote, error) {
	return r.first(r.db.WithContext(ctx).Scopes(OwnedBy(userID), preloadQuote), "id = ?", id)
}

func (r *quoteRepository) GetForUpdate(ctx context.Context, userID, id uuid.UUID) (*entity.Quote, error) {
	return r.first(r.db.WithContext(ctx).Scopes(OwnedBy(userID), ForUpdate), "id = ?", id)
}

func (r *quoteRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*entity.Quote, error) {
	return r.first(r.db.WithContext(ctx).Scopes(ForUpdate), "id = ?", id)
}

func (r *quoteRepository) GetByApprovalToken(ctx context.Context, token string) (*entity.Quote, error) {
	if token == "" {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx).Scopes(preloadQuote), "approval_token = ?", token)
}

func (r *quoteRepository) Update(ctx context.Context, quote *entity.Quote) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(quote).Error
}

func (r *quoteRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Scopes(OwnedBy(userID)).Delete(&entity.Quote{}, "id = ?", id).Error
}

func (r *quoteRepository) List(ctx context.Context, userID uuid.UUID, filter domainRepo.QuoteFilter, params *pagination.PaginationParams) ([]entity.Quote, int64, error) {
	var quotes []entity.Quote
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Quote{}).
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
		Find(&quotes).Error

	return quotes, total, err
}

func (r *quoteRepository) ListExpired(ctx context.Context, userID *uuid.UUID, now time.Time) ([]entity.Quote, error) {
	var quotes []entity.Quote
	query := r.db.WithContext(ctx).
		Where("status = ? AND valid_until IS NOT NULL AND valid_until < ?", enum.QuoteStatusSent, now)
	if userID != nil {
		query = query.Scopes(OwnedBy(*userID))
	}
	err := query.Order("valid_until ASC").Find(&quotes).Error
	return quotes, err
}

func (r *quoteRepository) NextNumber(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	// deleted quotes keep their number
	err := r.db.WithContext(ctx).Unscoped().Model(&entity.Quote{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count + 1, err
}

func (r *quoteRepository) ListItems(ctx context.Context, quoteID uuid.UUID) ([]entity.QuoteItem, error) {
	var items []entity.QuoteItem
	err := r.db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("sort_order ASC, created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *quoteRepository) GetItem(ctx context.Context, quoteID, itemID uuid.UUID) (*entity.QuoteItem, error) {
	var item entity.QuoteItem
	err := r.db.WithContext(ctx).First(&item, "quote_id = ? AND id = ?", quoteID, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &item, err
}

func (r *quoteRepository) CreateItem(ctx context.Context, item *entity.QuoteItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *quoteRepository) UpdateItem(ctx context.Context, item *entity.QuoteItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *quoteRepository) DeleteItem(ctx context.Context, quoteID, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.QuoteItem{}, "quote_id = ? AND id = ?", quoteID, itemID).Error
}

func (r *quoteRepository) ListContractors(ctx context.Context, quoteID uuid.UUID) ([]entity.QuoteContractor, error) {
	var assignments []entity.QuoteContractor
	err := r.db.WithContext(ctx).Preload("Contractor").
		Where("quote_id = ?", quoteID).
		Order("created_at ASC").
		Find(&assignments).Error
	return assignments, err
}

func (r *quoteRepository) GetContractor(ctx context.Context, quoteID, contractorID uuid.UUID) (*entity.QuoteContractor, error) {
	var qc entity.QuoteContractor
	err := r.db.WithContext(ctx).Preload("Contractor").
		First(&qc, "quote_id = ? AND contractor_id = ?", quoteID, contractorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &qc, err
}

func (r *quoteRepository) CreateContractor(ctx context.Context, qc *entity.QuoteContractor) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(qc).Error
}

func (r *quoteRepository) UpdateContractor(ctx context.Context, qc *entity.QuoteContractor) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(qc).Error
}

func (r *quoteRepository) DeleteContractor(ctx context.Context, quoteID, contractorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&entity.QuoteContractor{}, "quote_id = ? AND contractor_id = ?", quoteID, contractorID).Error
}
