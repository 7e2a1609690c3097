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

// SettingsService handles settings-related business logic
type SettingsService struct {
	settingsRepo repository.SettingsRepository
}

// NewSettingsService creates a new settings service
func NewSettingsService(settingsRepo repository.SettingsRepository) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
	}
}

// GetSettings retrieves user settings, creating defaults if not exists
func (s *SettingsService) GetSettings(ctx context.Context, userID uuid.UUID) (*entity.UserSettings, error) {
	return loadSettings(ctx, s.settingsRepo, userID)
}

// loadSettings is shared with services running inside a unit of work
func loadSettings(ctx context.Context, repo repository.SettingsRepository, userID uuid.UUID) (*entity.UserSettings, error) {
	settings, err := repo.GetByUserID(ctx, userID)
	if err != nil || settings != nil {
		return settings, err
	}
	return repo.GetOrCreate(ctx, entity.DefaultUserSettings(userID))
}

// UpdateSettingsInput represents the input for updating settings. Nil
// fields keep their current value.
type UpdateSettingsInput struct {
	UserID             uuid.UUID
	BusinessName       *string
	BusinessEmail      *string
	BusinessPhone      *string
	BusinessAddress    *string
	Currency           *string
	DefaultTaxRate     *decimal.Decimal
	QuoteValidityDays  *int
	PaymentTermsDays   *int
	InvoiceFooter      *string
	EmailNotifications *bool
	AdminAlertEmail    *string
}

// UpdateSettings updates user settings
func (s *SettingsService) UpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*entity.UserSettings, error) {
	settings, err := loadSettings(ctx, s.settingsRepo, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.BusinessName != nil {
		settings.BusinessName = strings.TrimSpace(*input.BusinessName)
	}
	if input.BusinessEmail != nil {
		settings.BusinessEmail = input.BusinessEmail
	}
	if input.BusinessPhone != nil {
		settings.BusinessPhone = input.BusinessPhone
	}
	if input.BusinessAddress != nil {
		settings.BusinessAddress = input.BusinessAddress
	}
	if input.Currency != nil {
		settings.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
	if input.DefaultTaxRate != nil {
		if input.DefaultTaxRate.IsNegative() {
			return nil, apperror.NewBadRequestError("Tax rate must not be negative")
		}
		settings.DefaultTaxRate = *input.DefaultTaxRate
	}
	if input.QuoteValidityDays != nil {
		if *input.QuoteValidityDays < 1 {
			return nil, apperror.NewBadRequestError("Quote validity must be at least one day")
		}
		settings.QuoteValidityDays = *input.QuoteValidityDays
	}
	if input.PaymentTermsDays != nil {
		if *input.PaymentTermsDays < 0 {
			return nil, apperror.NewBadRequestError("Payment terms must not be negative")
		}
		settings.PaymentTermsDays = *input.PaymentTermsDays
	}
	if input.InvoiceFooter != nil {
		settings.InvoiceFooter = input.InvoiceFooter
	}
	if input.EmailNotifications != nil {
		settings.EmailNotifications = *input.EmailNotifications
	}
	if input.AdminAlertEmail != nil {
		settings.AdminAlertEmail = input.AdminAlertEmail
	}

	if err := s.settingsRepo.Update(ctx, settings); err != nil {
		return nil, err
	}

	return settings, nil
}
