package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/usecase"
)

type orderValidator struct{}

func NewOrderValidator() usecase.OrderValidator {
	return &orderValidator{}
}

// 住所はstreet/city/countryが必須、state/zipCodeは任意
func (v *orderValidator) ValidatePlaceOrder(in usecase.PlaceOrderInput) error {
	a := in.ShippingAddress

	required := []struct {
		name  string
		value string
	}{
		{"street", a.Street},
		{"city", a.City},
		{"country", a.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return invalid("shippingAddress." + f.name + " is required")
		}
	}

	limits := []struct {
		name  string
		value string
		max   int
	}{
		{"street", a.Street, 255},
		{"city", a.City, 100},
		{"state", a.State, 100},
		{"zipCode", a.ZipCode, 20},
		{"country", a.Country, 100},
	}
	for _, f := range limits {
		if utf8.RuneCountInString(f.value) > f.max {
			return invalid(fmt.Sprintf("shippingAddress.%s must be at most %d characters", f.name, f.max))
		}
	}

	if _, ok := model.ParsePaymentMethod(in.PaymentMethod); !ok {
		return fmt.Errorf("%w: %q", usecase.ErrInvalidPaymentMethod, in.PaymentMethod)
	}
	return nil
}
