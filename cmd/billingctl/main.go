package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/sangkips/studio-billing-api/internal/config"
	"github.com/sangkips/studio-billing-api/pkg/logger"
)

var CLI struct {
	Version  kong.VersionFlag
	LogLevel string `help:"Override LOG_LEVEL." name:"log-level"`

	Migrate          MigrateCmd          `cmd:"" help:"Run database migrations."`
	SeedTemplates    SeedTemplatesCmd    `cmd:"" help:"Insert the default global service templates."`
	ExpireQuotes     ExpireQuotesCmd     `cmd:"" help:"Expire sent quotes past their validity date."`
	MarkOverdue      MarkOverdueCmd      `cmd:"" help:"Mark sent invoices past their due date as overdue."`
	PurgeIdempotency PurgeIdempotencyCmd `cmd:"" help:"Delete expired idempotency keys."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("billingctl"),
		kong.Description("Maintenance tasks for the studio billing API"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	cfg := config.Load()
	level := cfg.Log.Level
	if CLI.LogLevel != "" {
		level = CLI.LogLevel
	}

	appCtx := &Context{Cfg: cfg, Log: logger.New(level, os.Stderr)}
	defer appCtx.Close()

	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		appCtx.Close()
		os.Exit(1)
	}
}
