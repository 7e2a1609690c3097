package database

import (
	"fmt"

	"github.com/sangkips/studio-billing-api/internal/config"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig, debug bool, log logrus.FieldLogger) (*gorm.DB, error) {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.WithField("host", cfg.Host).Info("connected to PostgreSQL database")
	return db, nil
}

// Models lists every persisted entity in migration order
func Models() []interface{} {
	return []interface{}{
		&entity.User{},
		&entity.UserSettings{},
		&entity.Client{},
		&entity.Contractor{},
		&entity.ServiceTemplate{},
		&entity.Quote{},
		&entity.QuoteItem{},
		&entity.QuoteContractor{},
		&entity.Invoice{},
		&entity.InvoiceItem{},
		&entity.InvoiceContractor{},
		&entity.Payment{},
		&entity.ActivityEntry{},
		&entity.ProcessedWebhookEvent{},
		&entity.IdempotencyKey{},
	}
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB, log logrus.FieldLogger) error {
	log.Info("running database migrations")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database migrations completed")
	return nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func describe(s string) *string {
	return &s
}

// DefaultServiceTemplates is the global catalog every studio starts with
func DefaultServiceTemplates() []entity.ServiceTemplate {
	return []entity.ServiceTemplate{
		{Name: "Recording session (hourly)", Category: "Recording", BasePrice: price("75.00"), DefaultTaxable: true, Description: describe("Tracking time in the live room with an engineer")},
		{Name: "Mixing (per song)", Category: "Mixing", BasePrice: price("250.00"), DefaultTaxable: true, Description: describe("Full mix with two rounds of revisions")},
		{Name: "Mastering (per song)", Category: "Mastering", BasePrice: price("80.00"), DefaultTaxable: true},
		{Name: "Stem mastering (per song)", Category: "Mastering", BasePrice: price("120.00"), DefaultTaxable: true},
		{Name: "Beat production", Category: "Production", BasePrice: price("400.00"), DefaultTaxable: true},
		{Name: "Vocal editing and tuning", Category: "Editing", BasePrice: price("60.00"), DefaultTaxable: true},
		{Name: "Rehearsal room (hourly)", Category: "Rental", BasePrice: price("30.00"), DefaultTaxable: false},
		{Name: "Backline rental (per day)", Category: "Rental", BasePrice: price("50.00"), DefaultTaxable: false},
	}
}

// SeedServiceTemplates inserts the missing global templates and reports how
// many were created.
func SeedServiceTemplates(db *gorm.DB, log logrus.FieldLogger) (int, error) {
	created := 0
	for _, tmpl := range DefaultServiceTemplates() {
		var count int64
		if err := db.Model(&entity.ServiceTemplate{}).
			Where("user_id IS NULL AND name = ?", tmpl.Name).
			Count(&count).Error; err != nil {
			return created, err
		}
		if count > 0 {
			continue
		}
		t := tmpl
		if err := db.Create(&t).Error; err != nil {
			return created, fmt.Errorf("seed template %q: %w", tmpl.Name, err)
		}
		created++
	}
	log.WithField("created", created).Info("service templates seeded")
	return created, nil
}
