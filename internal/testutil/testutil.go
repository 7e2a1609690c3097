// Package testutil provides an sqlite-backed store and fakes for the
// processor and mail provider.
package testutil

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/database"
	"github.com/sangkips/studio-billing-api/pkg/email"
	"github.com/sangkips/studio-billing-api/pkg/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated sqlite database that lives for the test
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "billing.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.Models()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// Clock is a settable time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Gateway records every payment it is asked to open
type Gateway struct {
	mu        sync.Mutex
	Intents   []payment.IntentRequest
	Checkouts []payment.CheckoutRequest
	Err       error
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.Intents = append(g.Intents, req)
	id := fmt.Sprintf("pi_test_%d", len(g.Intents))
	return &payment.Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (g *Gateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.Checkouts = append(g.Checkouts, req)
	id := fmt.Sprintf("cs_test_%d", len(g.Checkouts))
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}

// Mailer records sent messages. Err fails every send.
type Mailer struct {
	mu   sync.Mutex
	Sent []email.Message
	Err  error
}

func (m *Mailer) Send(ctx context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

func (m *Mailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// SignWebhook builds a Stripe-Signature header for payload
func SignWebhook(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts)))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// PaymentEvent renders a processor event whose object carries md
func PaymentEvent(eventID, eventType string, amount decimal.Decimal, md payment.Metadata) []byte {
	cents := payment.ToMinorUnits(amount, "usd")
	meta := ""
	for k, v := range md.Map() {
		if meta != "" {
			meta += ","
		}
		meta += fmt.Sprintf("%q:%q", k, v)
	}
	if eventType == payment.EventCheckoutCompleted {
		return []byte(fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"data":{"object":{"id":"cs_%s","object":"checkout.session","amount_total":%d,"currency":"usd","payment_status":"paid","payment_intent":"pi_%s","metadata":{%s}}}}`,
			eventID, eventType, eventID, cents, eventID, meta))
	}
	status := "succeeded"
	if eventType == payment.EventPaymentFailed {
		status = "requires_payment_method"
	}
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"data":{"object":{"id":"pi_%s","object":"payment_intent","amount":%d,"amount_received":%d,"currency":"usd","status":%q,"metadata":{%s}}}}`,
		eventID, eventType, eventID, cents, cents, status, meta))
}

func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func CreateUser(t testing.TB, db *gorm.DB, emailAddr string) *entity.User {
	t.Helper()
	u := &entity.User{Name: "Studio Owner", Email: emailAddr, Provider: "google"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateClient(t testing.TB, db *gorm.DB, userID uuid.UUID, name string) *entity.Client {
	t.Helper()
	c := &entity.Client{UserID: userID, Name: name, Email: "client-" + uuid.NewString()[:8] + "@example.com"}
	require.NoError(t, db.Create(c).Error)
	return c
}

func CreateContractor(t testing.TB, db *gorm.DB, userID uuid.UUID, name string, mode enum.PricingMode, rate string, skills ...string) *entity.Contractor {
	t.Helper()
	c := &entity.Contractor{
		UserID:      userID,
		Name:        name,
		PricingMode: mode,
		Skills:      skills,
		Active:      true,
	}
	if mode == enum.PricingModeFlat {
		c.FlatRate = Money(rate)
	} else {
		c.HourlyRate = Money(rate)
	}
	if c.Skills == nil {
		c.Skills = []string{}
	}
	require.NoError(t, db.Create(c).Error)
	return c
}
