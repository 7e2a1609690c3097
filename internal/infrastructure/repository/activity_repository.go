package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	domainRepo "github.com/sangkips/studio-billing-api/internal/domain/repository"
	"gorm.io/gorm"
)

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity log repository
func NewActivityRepository(db *gorm.DB) domainRepo.ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Append(ctx context.Context, entry *entity.ActivityEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityRepository) List(ctx context.Context, subjectType string, subjectID uuid.UUID) ([]entity.ActivityEntry, error) {
	var entries []entity.ActivityEntry
	err := r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id = ?", subjectType, subjectID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}

type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new processed-event repository
func NewWebhookEventRepository(db *gorm.DB) domainRepo.WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.ProcessedWebhookEvent{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count > 0, err
}

func (r *webhookEventRepository) Record(ctx context.Context, event *entity.ProcessedWebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
