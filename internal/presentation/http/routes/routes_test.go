package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/studio-billing-api/internal/application/service"
	"github.com/sangkips/studio-billing-api/internal/config"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/repository"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/request"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/handler"
	"github.com/sangkips/studio-billing-api/internal/testutil"
	"github.com/sangkips/studio-billing-api/pkg/logger"
	"github.com/sangkips/studio-billing-api/pkg/payment"
	"github.com/sangkips/studio-billing-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_routes"

type apiEnv struct {
	t       *testing.T
	db      *gorm.DB
	router  *gin.Engine
	user    *entity.User
	client  *entity.Client
	token   string
	quotes  *service.QuoteService
	invoice *service.InvoiceService
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, request.RegisterValidators())

	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	repos := store.Repos()
	log := logger.Discard()
	now := service.Clock(service.SystemClock)

	cfg := &config.Config{
		App:    config.AppConfig{Name: "studio-billing-api", FrontendURL: "https://studio.test"},
		JWT:    config.JWTConfig{Secret: "test-secret", CookieName: "studio_session"},
		Stripe: config.StripeConfig{Currency: "usd", WebhookSecret: webhookSecret},
	}
	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, time.Hour)

	notifier := service.NewNotificationService(&testutil.Mailer{}, cfg, log)
	starter := service.NewPaymentStarter(&testutil.Gateway{}, cfg.Stripe)
	quotes := service.NewQuoteService(store, repos, notifier, starter, nil, log, now)
	invoices := service.NewInvoiceService(store, repos, notifier, starter, nil, log, now)
	billing := service.NewContractorBillingService(store, repos, notifier, starter, nil, log, now)
	payments := service.NewPaymentService(store, repos, starter, nil, now)
	webhooks := service.NewWebhookService(store, repos, payment.NewVerifier(webhookSecret), notifier, nil, log, now)

	h := &Handlers{
		Auth:       handler.NewAuthHandler(service.NewAuthService(repos.Users, nil, jwtManager, now), cfg, log),
		Client:     handler.NewClientHandler(service.NewClientService(repos.Clients)),
		Contractor: handler.NewContractorHandler(service.NewContractorService(repos.Contractors)),
		Template:   handler.NewTemplateHandler(service.NewServiceTemplateService(repos.Templates)),
		Quote:      handler.NewQuoteHandler(quotes),
		Invoice:    handler.NewInvoiceHandler(invoices, billing),
		Payment:    handler.NewPaymentHandler(payments),
		Webhook:    handler.NewWebhookHandler(webhooks),
		Report:     handler.NewReportHandler(service.NewReportService(repos.Reports, nil, log, now)),
		Settings:   handler.NewSettingsHandler(service.NewSettingsService(repos.Settings)),
	}
	router := Setup(h, &Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: repository.NewIdempotencyRepository(db),
		Log:             log,
	})

	user := testutil.CreateUser(t, db, "owner@studio.test")
	token, err := jwtManager.GenerateSessionToken(user.ID, user.Email)
	require.NoError(t, err)

	return &apiEnv{
		t:       t,
		db:      db,
		router:  router,
		user:    user,
		client:  testutil.CreateClient(t, db, user.ID, "Nova Band"),
		token:   token,
		quotes:  quotes,
		invoice: invoices,
	}
}

func (e *apiEnv) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *apiEnv) authed(method, path string, body interface{}) *httptest.ResponseRecorder {
	return e.do(method, path, body, map[string]string{"Authorization": "Bearer " + e.token})
}

func (e *apiEnv) sentQuote() *entity.Quote {
	e.t.Helper()
	ctx := context.Background()
	q, err := e.quotes.CreateQuote(ctx, &service.CreateQuoteInput{
		UserID:   e.user.ID,
		ClientID: e.client.ID,
		Title:    "EP mix",
		Items: []service.ItemInput{{
			ServiceName: "Mixing",
			Quantity:    testutil.Money("1"),
			UnitPrice:   testutil.Money("250"),
		}},
	})
	require.NoError(e.t, err)
	res, err := e.quotes.SendQuote(ctx, &service.SendQuoteInput{UserID: e.user.ID, ID: q.ID})
	require.NoError(e.t, err)
	return res.Quote
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHealth(t *testing.T) {
	e := newAPI(t)
	w := e.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	e := newAPI(t)

	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/v1/clients", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/v1/clients", nil,
		map[string]string{"Authorization": "Bearer not-a-jwt"}).Code)
	assert.Equal(t, http.StatusOK, e.authed(http.MethodGet, "/api/v1/clients", nil).Code)
}

func TestValidationErrorsAreFieldLevel(t *testing.T) {
	e := newAPI(t)

	w := e.authed(http.MethodPost, "/api/v1/clients", map[string]string{"name": "Luna", "email": "nope"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "email", env.Errors[0].Field)

	w = e.authed(http.MethodPost, "/api/v1/clients", []byte(`{"name":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.authed(http.MethodPost, "/api/v1/clients", map[string]string{"name": "Luna", "email": "luna@example.com"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPublicQuoteTokenMismatch(t *testing.T) {
	e := newAPI(t)
	q := e.sentQuote()
	base := "/api/v1/quotes/" + q.ID.String()

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, base+"/public?token=wrong", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, base+"/public", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/v1/quotes/not-a-uuid/public?token=x", nil, nil).Code)

	w := e.do(http.MethodGet, base+"/public?token="+*q.ApprovalToken, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view struct {
		Number   string `json:"number"`
		Status   string `json:"status"`
		Business struct {
			Name string `json:"name"`
		} `json:"business"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	assert.Equal(t, q.Number, view.Number)
	assert.Equal(t, "sent", view.Status)
	assert.Equal(t, "My Studio", view.Business.Name)

	w = e.do(http.MethodPost, base+"/reject", map[string]string{"token": "wrong"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(http.MethodPost, base+"/reject", map[string]string{"token": *q.ApprovalToken}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodPost, base+"/reject", map[string]string{"token": *q.ApprovalToken}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "conflict", decode(t, w).Kind)
}

func TestWebhookSignature(t *testing.T) {
	e := newAPI(t)
	q := e.sentQuote()
	payload := testutil.PaymentEvent("evt_route", payment.EventPaymentSucceeded, q.AmountDue,
		payment.Metadata{Kind: payment.KindQuote, QuoteID: q.ID})

	w := e.do(http.MethodPost, "/webhooks/stripe", payload,
		map[string]string{"Stripe-Signature": testutil.SignWebhook(payload, "whsec_other", time.Now())})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var events int64
	require.NoError(t, e.db.Model(&entity.ProcessedWebhookEvent{}).Count(&events).Error)
	assert.Zero(t, events)

	w = e.do(http.MethodPost, "/stripe/webhook", payload,
		map[string]string{"Stripe-Signature": testutil.SignWebhook(payload, webhookSecret, time.Now())})
	require.Equal(t, http.StatusOK, w.Code)
	var result service.WebhookResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Equal(t, entity.WebhookOutcomeApplied, result.Outcome)
}

func TestRecordPaymentIsIdempotent(t *testing.T) {
	e := newAPI(t)
	ctx := context.Background()
	inv, err := e.invoice.CreateInvoice(ctx, &service.CreateInvoiceInput{
		UserID:   e.user.ID,
		ClientID: e.client.ID,
		Title:    "Tracking",
		Items: []service.ItemInput{{
			ServiceName: "Tracking day",
			Quantity:    testutil.Money("1"),
			UnitPrice:   testutil.Money("400"),
		}},
	})
	require.NoError(t, err)

	body := map[string]interface{}{"invoice_id": inv.ID, "amount": "100", "method": "cash"}
	headers := map[string]string{"Authorization": "Bearer " + e.token, "Idempotency-Key": "pay-1"}

	first := e.do(http.MethodPost, "/api/v1/payments", body, headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := e.do(http.MethodPost, "/api/v1/payments", body, headers)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	var n int64
	require.NoError(t, e.db.Model(&entity.Payment{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	w := e.authed(http.MethodPost, "/api/v1/payments", map[string]interface{}{"invoice_id": inv.ID, "amount": "-5", "method": "cash"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
