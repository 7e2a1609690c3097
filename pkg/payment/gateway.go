package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind tags which billing document a processor payment settles
type Kind string

const (
	KindQuote         Kind = "quote"
	KindInvoice       Kind = "invoice"
	KindContractorFee Kind = "contractor_fee"
)

// Mode records how the client paid
type Mode string

const (
	ModePaymentIntent Mode = "payment_intent"
	ModeCheckout      Mode = "checkout"
)

var ErrInvalidMetadata = errors.New("invalid payment metadata")

// Metadata is the closed set of shapes attached to processor objects.
// Exactly one of QuoteID/InvoiceID is meaningful per kind; contractor fees
// also carry the shared fee token.
type Metadata struct {
	Kind      Kind
	QuoteID   uuid.UUID
	InvoiceID uuid.UUID
	FeeToken  string
	Mode      Mode
}

// Map renders the metadata in the processor's string map form
func (m Metadata) Map() map[string]string {
	out := map[string]string{
		"kind":         string(m.Kind),
		"payment_mode": string(m.Mode),
	}
	switch m.Kind {
	case KindQuote:
		out["quote_id"] = m.QuoteID.String()
	case KindInvoice:
		out["invoice_id"] = m.InvoiceID.String()
	case KindContractorFee:
		out["invoice_id"] = m.InvoiceID.String()
		out["fee_token"] = m.FeeToken
	}
	return out
}

// ParseMetadata validates a processor metadata map against the known shapes
func ParseMetadata(raw map[string]string) (Metadata, error) {
	m := Metadata{Kind: Kind(raw["kind"]), Mode: Mode(raw["payment_mode"])}

	parseID := func(key string) (uuid.UUID, error) {
		v, ok := raw[key]
		if !ok || v == "" {
			return uuid.Nil, fmt.Errorf("%w: missing %s", ErrInvalidMetadata, key)
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: bad %s", ErrInvalidMetadata, key)
		}
		return id, nil
	}

	var err error
	switch m.Kind {
	case KindQuote:
		m.QuoteID, err = parseID("quote_id")
	case KindInvoice:
		m.InvoiceID, err = parseID("invoice_id")
	case KindContractorFee:
		m.InvoiceID, err = parseID("invoice_id")
		if err == nil {
			m.FeeToken = raw["fee_token"]
			if m.FeeToken == "" {
				err = fmt.Errorf("%w: missing fee_token", ErrInvalidMetadata)
			}
		}
	default:
		err = fmt.Errorf("%w: unknown kind %q", ErrInvalidMetadata, m.Kind)
	}
	if err != nil {
		return Metadata{}, err
	}
	if m.Mode == "" {
		m.Mode = ModePaymentIntent
	}
	return m, nil
}

// IntentRequest describes a PaymentIntent to create
type IntentRequest struct {
	Amount       decimal.Decimal
	Currency     string
	Description  string
	ReceiptEmail string
	Metadata     Metadata
}

// Intent is the part of a created PaymentIntent the client needs
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// CheckoutRequest describes a hosted checkout session to create
type CheckoutRequest struct {
	Amount        decimal.Decimal
	Currency      string
	ProductName   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      Metadata
}

// CheckoutSession is the hosted page the client is redirected to
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Gateway creates payments with the processor
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// Currencies Stripe charges without a fractional unit
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// Currencies Stripe charges in thousandths
var threeDecimal = map[string]bool{
	"bhd": true, "jod": true, "kwd": true, "omr": true, "tnd": true,
}

// MinorUnitExponent is the number of decimal places in one unit of
// currency as Stripe counts them. Unknown currencies use two.
func MinorUnitExponent(currency string) int32 {
	c := strings.ToLower(strings.TrimSpace(currency))
	switch {
	case zeroDecimal[c]:
		return 0
	case threeDecimal[c]:
		return 3
	}
	return 2
}

// ToMinorUnits converts a currency amount to the smallest unit Stripe
// charges in
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(MinorUnitExponent(currency)).Round(0).IntPart()
}

// FromMinorUnits converts an amount in the smallest unit back to currency
func FromMinorUnits(units int64, currency string) decimal.Decimal {
	return decimal.New(units, -MinorUnitExponent(currency))
}
