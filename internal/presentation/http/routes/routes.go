package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/studio-billing-api/internal/config"
	domainRepo "github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/handler"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/middleware"
	"github.com/sangkips/studio-billing-api/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth       *handler.AuthHandler
	Client     *handler.ClientHandler
	Contractor *handler.ContractorHandler
	Template   *handler.TemplateHandler
	Quote      *handler.QuoteHandler
	Invoice    *handler.InvoiceHandler
	Payment    *handler.PaymentHandler
	Webhook    *handler.WebhookHandler
	Report     *handler.ReportHandler
	Settings   *handler.SettingsHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	Log             logrus.FieldLogger
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Log))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS, deps.Cfg.App.FrontendURL))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	// Payment processor callbacks; both paths are configured in the wild
	router.POST("/webhooks/stripe", h.Webhook.Stripe)
	router.POST("/stripe/webhook", h.Webhook.Stripe)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, h)

		// Token-gated client pages, limited per IP
		public := v1.Group("")
		public.Use(middleware.NewClientRateLimiter(middleware.RateLimiterConfigFrom(deps.Cfg.RateLimit)).Middleware())
		registerPublicRoutes(public, h)

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager, deps.Cfg.JWT.CookieName))
		registerProtectedRoutes(protected, h, deps)
	}

	return router
}

func registerAuthRoutes(v1 *gin.RouterGroup, h *Handlers) {
	auth := v1.Group("/auth")
	{
		auth.GET("/google", h.Auth.GoogleAuth)
		auth.GET("/google/callback", h.Auth.GoogleCallback)
		auth.POST("/logout", h.Auth.Logout)
	}
}

func registerPublicRoutes(public *gin.RouterGroup, h *Handlers) {
	public.GET("/quotes/:id/public", h.Quote.Public)
	public.POST("/quotes/:id/reject", h.Quote.Reject)
	public.POST("/quotes/:id/feedback", h.Quote.Feedback)
	public.POST("/quotes/:id/payment-intent", h.Quote.PaymentIntent)

	public.GET("/invoices/:id/public", h.Invoice.Public)
	public.POST("/invoices/:id/payment-intent", h.Invoice.PaymentIntent)

	public.GET("/contractor-fees/:token", h.Invoice.FeeBatch)
	public.POST("/contractor-fees/:token/payment-intent", h.Invoice.FeePaymentIntent)
}

func registerProtectedRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	protected.GET("/auth/me", h.Auth.Me)

	// Settings
	protected.GET("/settings", h.Settings.GetSettings)
	protected.PUT("/settings", h.Settings.UpdateSettings)

	registerClientRoutes(protected, h)
	registerContractorRoutes(protected, h)
	registerTemplateRoutes(protected, h)
	registerQuoteRoutes(protected, h)
	registerInvoiceRoutes(protected, h)
	registerPaymentRoutes(protected, h, deps)

	// Reports
	protected.GET("/reports", h.Report.Report)
	protected.GET("/analytics", h.Report.Analytics)
}

func registerClientRoutes(protected *gin.RouterGroup, h *Handlers) {
	clients := protected.Group("/clients")
	{
		clients.GET("", h.Client.List)
		clients.POST("", h.Client.Create)
		clients.GET("/:id", h.Client.Get)
		clients.PUT("/:id", h.Client.Update)
		clients.DELETE("/:id", h.Client.Delete)
	}
}

func registerContractorRoutes(protected *gin.RouterGroup, h *Handlers) {
	contractors := protected.Group("/contractors")
	{
		contractors.GET("", h.Contractor.List)
		contractors.POST("", h.Contractor.Create)
		contractors.GET("/:id", h.Contractor.Get)
		contractors.PUT("/:id", h.Contractor.Update)
		contractors.DELETE("/:id", h.Contractor.Delete)
	}
}

func registerTemplateRoutes(protected *gin.RouterGroup, h *Handlers) {
	templates := protected.Group("/service-templates")
	{
		templates.GET("", h.Template.List)
		templates.POST("", h.Template.Create)
		templates.GET("/:id", h.Template.Get)
		templates.PUT("/:id", h.Template.Update)
		templates.DELETE("/:id", h.Template.Delete)
	}
}

func registerQuoteRoutes(protected *gin.RouterGroup, h *Handlers) {
	quotes := protected.Group("/quotes")
	{
		quotes.GET("", h.Quote.List)
		quotes.POST("", h.Quote.Create)
		quotes.POST("/expire", h.Quote.Expire)
		quotes.GET("/:id", h.Quote.Get)
		quotes.PUT("/:id", h.Quote.Update)
		quotes.DELETE("/:id", h.Quote.Delete)

		quotes.POST("/:id/items", h.Quote.AddItem)
		quotes.PUT("/:id/items/:itemId", h.Quote.UpdateItem)
		quotes.DELETE("/:id/items/:itemId", h.Quote.DeleteItem)

		quotes.POST("/:id/contractors", h.Quote.AssignContractor)
		quotes.PUT("/:id/contractors/:contractorId", h.Quote.UpdateAssignment)
		quotes.DELETE("/:id/contractors/:contractorId", h.Quote.RemoveContractor)

		quotes.POST("/:id/send", h.Quote.Send)
		quotes.POST("/:id/email", h.Quote.Email)
		quotes.POST("/:id/convert", h.Quote.Convert)
		quotes.GET("/:id/activity", h.Quote.Activity)
	}
}

func registerInvoiceRoutes(protected *gin.RouterGroup, h *Handlers) {
	invoices := protected.Group("/invoices")
	{
		invoices.GET("", h.Invoice.List)
		invoices.POST("", h.Invoice.Create)
		invoices.POST("/mark-overdue", h.Invoice.MarkOverdue)
		invoices.GET("/:id", h.Invoice.Get)
		invoices.PUT("/:id", h.Invoice.Update)
		invoices.DELETE("/:id", h.Invoice.Delete)

		invoices.POST("/:id/items", h.Invoice.AddItem)
		invoices.PUT("/:id/items/:itemId", h.Invoice.UpdateItem)
		invoices.DELETE("/:id/items/:itemId", h.Invoice.DeleteItem)

		invoices.POST("/:id/contractors", h.Invoice.AssignContractor)
		invoices.POST("/:id/contractors/bulk-bill-separately", h.Invoice.BulkBillSeparately)
		invoices.PUT("/:id/contractors/:contractorId", h.Invoice.UpdateAssignment)
		invoices.DELETE("/:id/contractors/:contractorId", h.Invoice.RemoveContractor)
		invoices.POST("/:id/contractors/:contractorId/bill-separately", h.Invoice.BillSeparately)

		invoices.POST("/:id/send", h.Invoice.Send)
		invoices.POST("/:id/email", h.Invoice.Email)
		invoices.POST("/:id/cancel", h.Invoice.Cancel)
		invoices.GET("/:id/activity", h.Invoice.Activity)
	}
}

func registerPaymentRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	payments := protected.Group("/payments")
	{
		payments.GET("", h.Payment.List)
		// Recording a payment honours Idempotency-Key to prevent duplicates
		payments.POST("", middleware.Idempotency(middleware.IdempotencyConfig{
			Repo: deps.IdempotencyRepo,
			Log:  deps.Log,
		}), h.Payment.Create)
		payments.POST("/create-intent", h.Payment.CreateIntent)
		payments.GET("/:id", h.Payment.Get)
		payments.PUT("/:id", h.Payment.Update)
		payments.DELETE("/:id", h.Payment.Delete)
	}
}
