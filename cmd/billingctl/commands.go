package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/application/service"
	"github.com/sangkips/studio-billing-api/internal/config"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/cache"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/database"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Context is shared by every command. The database and cache are opened
// on first use.
type Context struct {
	Cfg *config.Config
	Log *logrus.Logger

	db    *gorm.DB
	cache *cache.Cache
}

func (c *Context) DB() (*gorm.DB, error) {
	if c.db != nil {
		return c.db, nil
	}
	db, err := database.NewPostgresDB(&c.Cfg.Database, false, c.Log)
	if err != nil {
		return nil, err
	}
	c.db = db
	return db, nil
}

// Cache connects to redis when configured so sweeps invalidate cached
// analytics. Connection failures are logged and ignored.
func (c *Context) Cache(ctx context.Context) *cache.Cache {
	if c.cache != nil {
		return c.cache
	}
	rc, err := cache.NewRedisCache(ctx, c.Cfg.Redis, c.Log)
	if err != nil {
		c.Log.WithError(err).Warn("redis unavailable, analytics cache not invalidated")
		return nil
	}
	c.cache = rc
	return rc
}

func (c *Context) Close() {
	if c.cache != nil {
		_ = c.cache.Close()
		c.cache = nil
	}
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		c.db = nil
	}
}

type MigrateCmd struct{}

func (m *MigrateCmd) Run(c *Context) error {
	db, err := c.DB()
	if err != nil {
		return err
	}
	return database.AutoMigrate(db, c.Log)
}

type SeedTemplatesCmd struct{}

func (s *SeedTemplatesCmd) Run(c *Context) error {
	db, err := c.DB()
	if err != nil {
		return err
	}
	created, err := database.SeedServiceTemplates(db, c.Log)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %d service templates\n", created)
	return nil
}

// userScope parses the optional --user flag. Empty means every studio.
func userScope(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --user: %w", err)
	}
	return &id, nil
}

type ExpireQuotesCmd struct {
	User string `help:"Only sweep this owner's quotes." placeholder:"UUID"`
}

func (e *ExpireQuotesCmd) Run(c *Context) error {
	userID, err := userScope(e.User)
	if err != nil {
		return err
	}
	db, err := c.DB()
	if err != nil {
		return err
	}
	ctx := context.Background()
	store := repository.NewStore(db)
	quotes := service.NewQuoteService(store, store.Repos(), nil, nil, c.Cache(ctx), c.Log, service.SystemClock)

	n, err := quotes.ExpireQuotes(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Printf("Expired %d quotes\n", n)
	return nil
}

type MarkOverdueCmd struct {
	User string `help:"Only sweep this owner's invoices." placeholder:"UUID"`
}

func (m *MarkOverdueCmd) Run(c *Context) error {
	userID, err := userScope(m.User)
	if err != nil {
		return err
	}
	db, err := c.DB()
	if err != nil {
		return err
	}
	ctx := context.Background()
	store := repository.NewStore(db)
	invoices := service.NewInvoiceService(store, store.Repos(), nil, nil, c.Cache(ctx), c.Log, service.SystemClock)

	n, err := invoices.MarkOverdue(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Printf("Marked %d invoices overdue\n", n)
	return nil
}

type PurgeIdempotencyCmd struct{}

func (p *PurgeIdempotencyCmd) Run(c *Context) error {
	db, err := c.DB()
	if err != nil {
		return err
	}
	n, err := repository.NewIdempotencyRepository(db).DeleteExpired(context.Background(), time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d expired idempotency keys\n", n)
	return nil
}
