package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MonthlyRevenue is completed payment volume for one calendar month
type MonthlyRevenue struct {
	Month        string          `json:"month"`
	Revenue      decimal.Decimal `json:"revenue"`
	PaymentCount int64           `json:"payment_count"`
}

// OutstandingInvoice is an unpaid invoice with its remaining balance
type OutstandingInvoice struct {
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	Number     string          `json:"number"`
	ClientName string          `json:"client_name"`
	Status     string          `json:"status"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	Paid       decimal.Decimal `json:"paid"`
	Balance    decimal.Decimal `json:"balance"`
}

// ClientRevenue is billed and collected volume per client
type ClientRevenue struct {
	ClientID     uuid.UUID       `json:"client_id"`
	ClientName   string          `json:"client_name"`
	InvoiceCount int64           `json:"invoice_count"`
	Billed       decimal.Decimal `json:"billed"`
	Collected    decimal.Decimal `json:"collected"`
}

// ContractorEarnings is assignment cost per contractor
type ContractorEarnings struct {
	ContractorID     uuid.UUID       `json:"contractor_id"`
	ContractorName   string          `json:"contractor_name"`
	Assignments      int64           `json:"assignments"`
	TotalCost        decimal.Decimal `json:"total_cost"`
	BilledSeparately decimal.Decimal `json:"billed_separately"`
}

// StatusCount is the number of documents in one status
type StatusCount struct {
	Status int   `json:"status"`
	Count  int64 `json:"count"`
}

// ReportRepository defines aggregation queries for reports and analytics
type ReportRepository interface {
	RevenueByMonth(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]MonthlyRevenue, error)
	Outstanding(ctx context.Context, userID uuid.UUID) ([]OutstandingInvoice, error)
	RevenueByClient(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]ClientRevenue, error)
	ContractorEarnings(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]ContractorEarnings, error)
	QuoteStatusCounts(ctx context.Context, userID uuid.UUID) ([]StatusCount, error)
	InvoiceStatusCounts(ctx context.Context, userID uuid.UUID) ([]StatusCount, error)
	// CollectedBetween sums completed payments processed in [from, to)
	CollectedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
}
