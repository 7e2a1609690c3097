package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserSettings holds the studio's business profile and billing defaults
type UserSettings struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Business profile
	BusinessName    string  `gorm:"size:255" json:"business_name"`
	BusinessEmail   *string `gorm:"size:255" json:"business_email,omitempty"`
	BusinessPhone   *string `gorm:"size:50" json:"business_phone,omitempty"`
	BusinessAddress *string `gorm:"type:text" json:"business_address,omitempty"`

	// Billing defaults
	Currency          string          `gorm:"size:10" json:"currency"`
	DefaultTaxRate    decimal.Decimal `gorm:"type:decimal(7,3)" json:"default_tax_rate"`
	QuoteValidityDays int             `json:"quote_validity_days"`
	PaymentTermsDays  int             `json:"payment_terms_days"`
	InvoiceFooter     *string         `gorm:"type:text" json:"invoice_footer,omitempty"`

	// Notifications
	EmailNotifications bool    `json:"email_notifications"`
	AdminAlertEmail    *string `gorm:"size:255" json:"admin_alert_email,omitempty"`
}

// DefaultUserSettings returns the settings a new studio starts with
func DefaultUserSettings(userID uuid.UUID) *UserSettings {
	return &UserSettings{
		UserID:             userID,
		BusinessName:       "My Studio",
		Currency:           "USD",
		DefaultTaxRate:     decimal.Zero,
		QuoteValidityDays:  30,
		PaymentTermsDays:   14,
		EmailNotifications: true,
	}
}

// BeforeCreate generates a UUID before creating new settings
func (s *UserSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the UserSettings model
func (UserSettings) TableName() string {
	return "user_settings"
}
