package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/config"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	domainRepo "github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/repository"
	"github.com/sangkips/studio-billing-api/internal/testutil"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/logger"
	"github.com/sangkips/studio-billing-api/pkg/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test"

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	t       *testing.T
	ctx     context.Context
	db      *gorm.DB
	repos   *domainRepo.Repositories
	clock   *testutil.Clock
	gateway *testutil.Gateway
	mailer  *testutil.Mailer

	quotes     *QuoteService
	invoices   *InvoiceService
	billing    *ContractorBillingService
	payments   *PaymentService
	webhooks   *WebhookService
	reports    *ReportService
	clients    *ClientService
	settings   *SettingsService
	templates  *ServiceTemplateService
	contractor *ContractorService

	user   *entity.User
	client *entity.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	repos := store.Repos()
	log := logger.Discard()

	cfg := &config.Config{
		App:    config.AppConfig{FrontendURL: "https://studio.test"},
		Email:  config.EmailConfig{AdminEmail: "alerts@studio.test"},
		Stripe: config.StripeConfig{Currency: "usd"},
	}

	h := &harness{
		t:       t,
		ctx:     context.Background(),
		db:      db,
		repos:   repos,
		clock:   testutil.NewClock(testNow),
		gateway: &testutil.Gateway{},
		mailer:  &testutil.Mailer{},
	}
	now := Clock(h.clock.Now)
	notifier := NewNotificationService(h.mailer, cfg, log)
	starter := NewPaymentStarter(h.gateway, cfg.Stripe)

	h.quotes = NewQuoteService(store, repos, notifier, starter, nil, log, now)
	h.invoices = NewInvoiceService(store, repos, notifier, starter, nil, log, now)
	h.billing = NewContractorBillingService(store, repos, notifier, starter, nil, log, now)
	h.payments = NewPaymentService(store, repos, starter, nil, now)
	h.webhooks = NewWebhookService(store, repos, payment.NewVerifier(testWebhookSecret), notifier, nil, log, now)
	h.reports = NewReportService(repos.Reports, nil, log, now)
	h.clients = NewClientService(repos.Clients)
	h.settings = NewSettingsService(repos.Settings)
	h.templates = NewServiceTemplateService(repos.Templates)
	h.contractor = NewContractorService(repos.Contractors)

	h.user = testutil.CreateUser(t, db, "owner@studio.test")
	h.client = testutil.CreateClient(t, db, h.user.ID, "Nova Band")
	return h
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func flag(b bool) *bool {
	return &b
}

func line(name, qty, unit string, taxable bool) ItemInput {
	return ItemInput{
		ServiceName: name,
		Quantity:    dec(qty),
		UnitPrice:   dec(unit),
		Taxable:     flag(taxable),
	}
}

func requireMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s got %s", want, got.String())
}

func requireKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperror.IsKind(err, kind), "want %s, got %v", kind, err)
}

func (h *harness) createQuote(taxRate string, items ...ItemInput) *entity.Quote {
	h.t.Helper()
	q, err := h.quotes.CreateQuote(h.ctx, &CreateQuoteInput{
		UserID:   h.user.ID,
		Actor:    "owner@studio.test",
		ClientID: h.client.ID,
		Title:    "EP mix",
		TaxRate:  decp(taxRate),
		Items:    items,
	})
	require.NoError(h.t, err)
	return q
}

func (h *harness) sendQuote(id uuid.UUID) *entity.Quote {
	h.t.Helper()
	res, err := h.quotes.SendQuote(h.ctx, &SendQuoteInput{UserID: h.user.ID, ID: id, Actor: "owner@studio.test"})
	require.NoError(h.t, err)
	require.NotNil(h.t, res.Quote.ApprovalToken)
	return res.Quote
}

func (h *harness) createInvoice(taxRate string, items ...ItemInput) *entity.Invoice {
	h.t.Helper()
	inv, err := h.invoices.CreateInvoice(h.ctx, &CreateInvoiceInput{
		UserID:   h.user.ID,
		Actor:    "owner@studio.test",
		ClientID: h.client.ID,
		Title:    "Album tracking",
		TaxRate:  decp(taxRate),
		Items:    items,
	})
	require.NoError(h.t, err)
	return inv
}

func (h *harness) sendInvoice(id uuid.UUID) *entity.Invoice {
	h.t.Helper()
	res, err := h.invoices.SendInvoice(h.ctx, &SendInvoiceInput{UserID: h.user.ID, ID: id, Actor: "owner@studio.test"})
	require.NoError(h.t, err)
	return res.Invoice
}

func (h *harness) assign(invoiceID uuid.UUID, c *entity.Contractor, include bool) {
	h.t.Helper()
	_, err := h.invoices.AssignContractor(h.ctx, h.user.ID, invoiceID, AssignmentInput{
		ContractorID:   c.ID,
		IncludeInTotal: flag(include),
	})
	require.NoError(h.t, err)
}

func (h *harness) contractorOf(name string, flatRate string) *entity.Contractor {
	h.t.Helper()
	return testutil.CreateContractor(h.t, h.db, h.user.ID, name, enum.PricingModeFlat, flatRate)
}

// deliver signs and submits a processor event
func (h *harness) deliver(payload []byte) (*WebhookResult, error) {
	return h.webhooks.HandleStripe(h.ctx, payload, testutil.SignWebhook(payload, testWebhookSecret, time.Now()))
}

func (h *harness) activity(subjectType string, id uuid.UUID, action string) int {
	h.t.Helper()
	entries, err := h.repos.Activity.List(h.ctx, subjectType, id)
	require.NoError(h.t, err)
	n := 0
	for _, e := range entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

func (h *harness) count(model interface{}) int64 {
	h.t.Helper()
	var n int64
	require.NoError(h.t, h.db.Model(model).Count(&n).Error)
	return n
}
