package request

import "github.com/shopspring/decimal"

// UpdateSettingsRequest represents a partial settings update
type UpdateSettingsRequest struct {
	BusinessName       *string          `json:"business_name" binding:"omitempty,max=255"`
	BusinessEmail      *string          `json:"business_email" binding:"omitempty,email"`
	BusinessPhone      *string          `json:"business_phone" binding:"omitempty,max=50"`
	BusinessAddress    *string          `json:"business_address"`
	Currency           *string          `json:"currency" binding:"omitempty,len=3,alpha"`
	DefaultTaxRate     *decimal.Decimal `json:"default_tax_rate" binding:"omitempty,percent"`
	QuoteValidityDays  *int             `json:"quote_validity_days" binding:"omitempty,min=1,max=365"`
	PaymentTermsDays   *int             `json:"payment_terms_days" binding:"omitempty,min=0,max=365"`
	InvoiceFooter      *string          `json:"invoice_footer"`
	EmailNotifications *bool            `json:"email_notifications"`
	AdminAlertEmail    *string          `json:"admin_alert_email" binding:"omitempty,email"`
}
