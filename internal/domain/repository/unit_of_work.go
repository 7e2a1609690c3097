package repository

import "context"

// Repositories bundles every repository bound to one database handle
type Repositories struct {
	Users         UserRepository
	Clients       ClientRepository
	Contractors   ContractorRepository
	Templates     ServiceTemplateRepository
	Quotes        QuoteRepository
	Invoices      InvoiceRepository
	Payments      PaymentRepository
	Activity      ActivityRepository
	WebhookEvents WebhookEventRepository
	Settings      SettingsRepository
	Idempotency   IdempotencyRepository
	Reports       ReportRepository
}

// UnitOfWork runs fn inside one database transaction. The repositories
// passed to fn are bound to that transaction; returning an error rolls
// everything back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx *Repositories) error) error
}
