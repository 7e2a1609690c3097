package enum

// PricingMode is how a contractor charges: by the hour or a flat fee.
// Contractor assignments reuse it as their rate type.
type PricingMode string

const (
	PricingModeHourly PricingMode = "hourly"
	PricingModeFlat   PricingMode = "flat"
)

func (m PricingMode) IsValid() bool {
	return m == PricingModeHourly || m == PricingModeFlat
}

// PaymentMethod records how a payment was made
type PaymentMethod string

const (
	PaymentMethodStripe       PaymentMethod = "stripe"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodStripe, PaymentMethodCard, PaymentMethodBankTransfer,
		PaymentMethodCash, PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}
