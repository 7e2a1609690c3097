package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Event types the reconciler acts on
const (
	EventPaymentSucceeded  = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.payment_failed"
	EventCheckoutCompleted = "checkout.session.completed"
)

// Event is a verified processor event reduced to the fields reconciliation
// needs.
type Event struct {
	ID   string
	Type string
	// Payment is nil for event types that are only acknowledged
	Payment *PaymentObject
}

// PaymentObject is the common view over payment_intent and
// checkout.session objects.
type PaymentObject struct {
	ObjectID        string
	PaymentIntentID string
	Amount          decimal.Decimal
	Currency        string
	Paid            bool
	FailureMessage  string
	RawMetadata     map[string]string
}

// Metadata parses the object's metadata into one of the known shapes
func (p *PaymentObject) Metadata() (Metadata, error) {
	return ParseMetadata(p.RawMetadata)
}

// Verifier checks webhook signatures against the endpoint secret
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify authenticates payload against the Stripe-Signature header and
// decodes it. Nothing in the payload is trusted before this returns nil.
func (v *Verifier) Verify(payload []byte, signature string) (*Event, error) {
	if v.secret == "" {
		return nil, ErrNotConfigured
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if ev.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventPaymentSucceeded, EventPaymentFailed:
		out.Payment, err = decodePaymentIntent(ev.Data.Raw)
	case EventCheckoutCompleted:
		out.Payment, err = decodeCheckoutSession(ev.Data.Raw)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", out.Type, err)
	}
	return out, nil
}

func decodePaymentIntent(raw json.RawMessage) (*PaymentObject, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(raw, &pi); err != nil {
		return nil, err
	}
	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}
	currency := string(pi.Currency)
	obj := &PaymentObject{
		ObjectID:        pi.ID,
		PaymentIntentID: pi.ID,
		Amount:          FromMinorUnits(amount, currency),
		Currency:        currency,
		Paid:            pi.Status == stripe.PaymentIntentStatusSucceeded,
		RawMetadata:     pi.Metadata,
	}
	if pi.LastPaymentError != nil {
		obj.FailureMessage = pi.LastPaymentError.Msg
	}
	return obj, nil
}

func decodeCheckoutSession(raw json.RawMessage) (*PaymentObject, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, err
	}
	currency := string(cs.Currency)
	obj := &PaymentObject{
		ObjectID:    cs.ID,
		Amount:      FromMinorUnits(cs.AmountTotal, currency),
		Currency:    currency,
		Paid:        cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		RawMetadata: cs.Metadata,
	}
	// payment_intent is an id string unless the session was expanded; both
	// decode into an object carrying the id
	if cs.PaymentIntent != nil {
		obj.PaymentIntentID = cs.PaymentIntent.ID
	}
	return obj, nil
}
