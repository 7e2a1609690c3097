package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/pkg/pagination"
	"github.com/shopspring/decimal"
)

// QuoteFilter narrows quote listings
type QuoteFilter struct {
	Status   *enum.QuoteStatus
	ClientID *uuid.UUID
	Search   string
}

// QuoteRepository defines the interface for quotes and their children.
// GetForUpdate and FindForUpdate take a row lock on the header when the
// database supports it and must be called inside a unit of work.
type QuoteRepository interface {
	Create(ctx context.Context, quote *entity.Quote) error
	// GetByID loads the quote with client, items and contractors
	GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Quote, error)
	GetForUpdate(ctx context.Context, userID, id uuid.UUID) (*entity.Quote, error)
	// FindForUpdate ignores ownership. Used by payment reconciliation,
	// which only has the id carried in processor metadata.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*entity.Quote, error)
	GetByApprovalToken(ctx context.Context, token string) (*entity.Quote, error)
	// Update writes header columns only
	Update(ctx context.Context, quote *entity.Quote) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, filter QuoteFilter, params *pagination.PaginationParams) ([]entity.Quote, int64, error)
	// ListExpired returns sent quotes whose validity ended before now. A nil
	// userID sweeps every owner.
	ListExpired(ctx context.Context, userID *uuid.UUID, now time.Time) ([]entity.Quote, error)
	NextNumber(ctx context.Context, userID uuid.UUID) (int64, error)

	ListItems(ctx context.Context, quoteID uuid.UUID) ([]entity.QuoteItem, error)
	GetItem(ctx context.Context, quoteID, itemID uuid.UUID) (*entity.QuoteItem, error)
	CreateItem(ctx context.Context, item *entity.QuoteItem) error
	UpdateItem(ctx context.Context, item *entity.QuoteItem) error
	DeleteItem(ctx context.Context, quoteID, itemID uuid.UUID) error

	ListContractors(ctx context.Context, quoteID uuid.UUID) ([]entity.QuoteContractor, error)
	GetContractor(ctx context.Context, quoteID, contractorID uuid.UUID) (*entity.QuoteContractor, error)
	CreateContractor(ctx context.Context, qc *entity.QuoteContractor) error
	UpdateContractor(ctx context.Context, qc *entity.QuoteContractor) error
	DeleteContractor(ctx context.Context, quoteID, contractorID uuid.UUID) error
}

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	Status   *enum.InvoiceStatus
	ClientID *uuid.UUID
	Search   string
}

// InvoiceRepository defines the interface for invoices and their children
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Invoice, error)
	GetForUpdate(ctx context.Context, userID, id uuid.UUID) (*entity.Invoice, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	// FindByID ignores ownership. Used when a contractor fee token resolves
	// to its invoice.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Invoice, error)
	GetByPaymentToken(ctx context.Context, token string) (*entity.Invoice, error)
	Update(ctx context.Context, invoice *entity.Invoice) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, filter InvoiceFilter, params *pagination.PaginationParams) ([]entity.Invoice, int64, error)
	// ListOverdue returns sent invoices whose due date passed before now
	ListOverdue(ctx context.Context, userID *uuid.UUID, now time.Time) ([]entity.Invoice, error)
	NextNumber(ctx context.Context, userID uuid.UUID) (int64, error)

	ListItems(ctx context.Context, invoiceID uuid.UUID) ([]entity.InvoiceItem, error)
	GetItem(ctx context.Context, invoiceID, itemID uuid.UUID) (*entity.InvoiceItem, error)
	CreateItem(ctx context.Context, item *entity.InvoiceItem) error
	UpdateItem(ctx context.Context, item *entity.InvoiceItem) error
	DeleteItem(ctx context.Context, invoiceID, itemID uuid.UUID) error

	ListContractors(ctx context.Context, invoiceID uuid.UUID) ([]entity.InvoiceContractor, error)
	GetContractor(ctx context.Context, invoiceID, contractorID uuid.UUID) (*entity.InvoiceContractor, error)
	CreateContractor(ctx context.Context, ic *entity.InvoiceContractor) error
	UpdateContractor(ctx context.Context, ic *entity.InvoiceContractor) error
	DeleteContractor(ctx context.Context, invoiceID, contractorID uuid.UUID) error
	// ListContractorsByFeeToken returns one separately billed batch
	ListContractorsByFeeToken(ctx context.Context, token string) ([]entity.InvoiceContractor, error)
}

// PaymentFilter narrows payment listings
type PaymentFilter struct {
	InvoiceID *uuid.UUID
	Status    *enum.PaymentStatus
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*entity.Payment, error)
	GetByProcessorID(ctx context.Context, processorPaymentID string) (*entity.Payment, error)
	Update(ctx context.Context, payment *entity.Payment) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, filter PaymentFilter, params *pagination.PaginationParams) ([]entity.Payment, int64, error)
	// SumCompleted totals completed payments recorded against an invoice
	SumCompleted(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
}

// ActivityRepository is append-only
type ActivityRepository interface {
	Append(ctx context.Context, entry *entity.ActivityEntry) error
	List(ctx context.Context, subjectType string, subjectID uuid.UUID) ([]entity.ActivityEntry, error)
}

// WebhookEventRepository records processed processor events
type WebhookEventRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, event *entity.ProcessedWebhookEvent) error
}
