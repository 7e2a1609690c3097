package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ServiceTemplate is a catalog entry used to prefill line items. Templates
// without an owner are global and read-only.
type ServiceTemplate struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	UserID         *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Name           string          `gorm:"size:255;not null" json:"name"`
	Category       string          `gorm:"size:100;index" json:"category"`
	Description    *string         `gorm:"type:text" json:"description,omitempty"`
	BasePrice      decimal.Decimal `gorm:"type:decimal(15,2)" json:"base_price"`
	DefaultTaxable bool            `json:"default_taxable"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

// IsGlobal reports whether the template belongs to the shared catalog
func (t *ServiceTemplate) IsGlobal() bool {
	return t.UserID == nil
}

func (t *ServiceTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (ServiceTemplate) TableName() string {
	return "service_templates"
}
