package repository

import (
	"context"

	domainRepo "github.com/sangkips/studio-billing-api/internal/domain/repository"
	"gorm.io/gorm"
)

// Store owns the database handle and hands out repositories bound to it
// or to a transaction.
type Store struct {
	db    *gorm.DB
	repos *domainRepo.Repositories
}

// NewStore creates a store over db
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, repos: newRepositories(db)}
}

func newRepositories(db *gorm.DB) *domainRepo.Repositories {
	return &domainRepo.Repositories{
		Users:         NewUserRepository(db),
		Clients:       NewClientRepository(db),
		Contractors:   NewContractorRepository(db),
		Templates:     NewServiceTemplateRepository(db),
		Quotes:        NewQuoteRepository(db),
		Invoices:      NewInvoiceRepository(db),
		Payments:      NewPaymentRepository(db),
		Activity:      NewActivityRepository(db),
		WebhookEvents: NewWebhookEventRepository(db),
		Settings:      NewSettingsRepository(db),
		Idempotency:   NewIdempotencyRepository(db),
		Reports:       NewReportRepository(db),
	}
}

// Repos returns repositories bound to the root handle
func (s *Store) Repos() *domainRepo.Repositories {
	return s.repos
}

// Do runs fn in a transaction with repositories bound to it
func (s *Store) Do(ctx context.Context, fn func(tx *domainRepo.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositories(tx))
	})
}
