package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/studio-billing-api/internal/application/service"
	"github.com/sangkips/studio-billing-api/internal/config"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/cache"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/database"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/repository"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/request"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/handler"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/routes"
	"github.com/sangkips/studio-billing-api/pkg/email"
	"github.com/sangkips/studio-billing-api/pkg/logger"
	"github.com/sangkips/studio-billing-api/pkg/oauth"
	"github.com/sangkips/studio-billing-api/pkg/payment"
	"github.com/sangkips/studio-billing-api/pkg/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.Log.Level, os.Stdout)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database, cfg.App.Debug, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db, log); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	// Seed the global service catalog
	if _, err := database.SeedServiceTemplates(db, log); err != nil {
		log.WithError(err).Warn("failed to seed service templates")
	}

	// Redis is optional; without it caching and cross-process locks are off
	ctx := context.Background()
	rc, err := cache.NewRedisCache(ctx, cfg.Redis, log)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, running without cache")
		rc = nil
	}
	defer rc.Close()

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	now := service.Clock(service.SystemClock)

	// Initialize repositories
	store := repository.NewStore(db)
	repos := store.Repos()

	// Initialize integrations
	notifier := service.NewNotificationService(newMailer(cfg, log), cfg, log)
	starter := service.NewPaymentStarter(payment.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.Currency), cfg.Stripe)
	verifier := payment.NewVerifier(cfg.Stripe.WebhookSecret)
	google := oauth.NewGoogleOAuthService(oauth.GoogleOAuthConfig{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURL:  cfg.OAuth.GoogleRedirectURL,
		AdminEmail:   cfg.OAuth.AdminEmail,
	})

	// Initialize services
	authService := service.NewAuthService(repos.Users, google, jwtManager, now)
	clientService := service.NewClientService(repos.Clients)
	contractorService := service.NewContractorService(repos.Contractors)
	templateService := service.NewServiceTemplateService(repos.Templates)
	settingsService := service.NewSettingsService(repos.Settings)
	quoteService := service.NewQuoteService(store, repos, notifier, starter, rc, log, now)
	invoiceService := service.NewInvoiceService(store, repos, notifier, starter, rc, log, now)
	billingService := service.NewContractorBillingService(store, repos, notifier, starter, rc, log, now)
	paymentService := service.NewPaymentService(store, repos, starter, rc, now)
	webhookService := service.NewWebhookService(store, repos, verifier, notifier, rc, log, now)
	reportService := service.NewReportService(repos.Reports, rc, log, now)

	if err := request.RegisterValidators(); err != nil {
		log.WithError(err).Fatal("failed to register validators")
	}

	// Initialize handlers
	handlers := &routes.Handlers{
		Auth:       handler.NewAuthHandler(authService, cfg, log),
		Client:     handler.NewClientHandler(clientService),
		Contractor: handler.NewContractorHandler(contractorService),
		Template:   handler.NewTemplateHandler(templateService),
		Quote:      handler.NewQuoteHandler(quoteService),
		Invoice:    handler.NewInvoiceHandler(invoiceService, billingService),
		Payment:    handler.NewPaymentHandler(paymentService),
		Webhook:    handler.NewWebhookHandler(webhookService),
		Report:     handler.NewReportHandler(reportService),
		Settings:   handler.NewSettingsHandler(settingsService),
	}

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: repos.Idempotency,
		Log:             log,
	})

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": port, "env": cfg.App.Env}).Infof("starting %s server", cfg.App.Name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
}

func newMailer(cfg *config.Config, log logrus.FieldLogger) email.Mailer {
	if cfg.Email.Provider == "resend" {
		log.Info("sending email through resend")
		return email.NewResendMailer(cfg.Email.ResendAPIKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}
	return email.NewSMTPMailer(email.EmailConfig{
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUsername: cfg.Email.SMTPUsername,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromName:     cfg.Email.FromName,
		FromEmail:    cfg.Email.FromEmail,
	})
}
