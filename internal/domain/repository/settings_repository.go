package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
)

// SettingsRepository stores one settings row per studio owner
type SettingsRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.UserSettings, error)
	// GetOrCreate inserts defaults when the owner has no row yet
	GetOrCreate(ctx context.Context, defaults *entity.UserSettings) (*entity.UserSettings, error)
	Update(ctx context.Context, settings *entity.UserSettings) error
}
