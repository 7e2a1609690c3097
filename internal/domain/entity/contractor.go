package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Contractor is a session musician, engineer or other billable worker
type Contractor struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	Name        string           `gorm:"size:255;not null" json:"name"`
	Email       *string          `gorm:"size:255" json:"email,omitempty"`
	Phone       *string          `gorm:"size:50" json:"phone,omitempty"`
	PricingMode enum.PricingMode `gorm:"size:20;not null" json:"pricing_mode"`
	HourlyRate  decimal.Decimal  `gorm:"type:decimal(15,2)" json:"hourly_rate"`
	FlatRate    decimal.Decimal  `gorm:"type:decimal(15,2)" json:"flat_rate"`
	Skills      []string         `gorm:"serializer:json;type:text" json:"skills"`
	Active      bool             `json:"active"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

// DefaultRate returns the rate matching the contractor's pricing mode
func (c *Contractor) DefaultRate() decimal.Decimal {
	if c.PricingMode == enum.PricingModeFlat {
		return c.FlatRate
	}
	return c.HourlyRate
}

// BeforeCreate generates a UUID before creating a new contractor
func (c *Contractor) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Contractor model
func (Contractor) TableName() string {
	return "contractors"
}
