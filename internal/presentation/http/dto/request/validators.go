package request

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/shopspring/decimal"
)

// RegisterValidators installs the billing validators on gin's validator
// engine. Decimal fields are validated through their string form.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	if err := v.RegisterValidation("money", nonNegativeDecimal); err != nil {
		return err
	}
	// tax rates above 100 are accepted
	if err := v.RegisterValidation("percent", nonNegativeDecimal); err != nil {
		return err
	}
	if err := v.RegisterValidation("pricing_mode", func(fl validator.FieldLevel) bool {
		return enum.PricingMode(fl.Field().String()).IsValid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		return enum.PaymentMethod(fl.Field().String()).IsValid()
	})
}

func nonNegativeDecimal(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case string:
		d, err := decimal.NewFromString(v)
		return err == nil && !d.IsNegative()
	case decimal.Decimal:
		return !v.IsNegative()
	}
	return false
}
