package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
)

// UserRepository stores studio admins
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// SaveSignIn upserts by email
	SaveSignIn(ctx context.Context, user *entity.User) (*entity.User, error)
}
