package validator

import (
	"strings"
	"testing"

	"github.com/rs-labo46/ecshop/internal/domain/model"
	"github.com/rs-labo46/ecshop/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validOrder() usecase.PlaceOrderInput {
	return usecase.PlaceOrderInput{
		ShippingAddress: model.ShippingAddress{
			Street:  "Calle 1",
			City:    "Madrid",
			State:   "MD",
			ZipCode: "28001",
			Country: "ES",
		},
		PaymentMethod: "tarjeta",
	}
}

func TestValidatePlaceOrder(t *testing.T) {
	v := NewOrderValidator()

	assert.NoError(t, v.ValidatePlaceOrder(validOrder()))

	in := validOrder()
	in.ShippingAddress.State = ""
	in.ShippingAddress.ZipCode = ""
	assert.NoError(t, v.ValidatePlaceOrder(in), "state and zipCode are optional")

	in = validOrder()
	in.ShippingAddress.City = "  "
	assert.ErrorIs(t, v.ValidatePlaceOrder(in), usecase.ErrValidation)

	in = validOrder()
	in.ShippingAddress.Street = strings.Repeat("a", 256)
	assert.ErrorIs(t, v.ValidatePlaceOrder(in), usecase.ErrValidation)

	for _, pm := range []string{"", "bitcoin", "TARJETA", "card"} {
		in = validOrder()
		in.PaymentMethod = pm
		err := v.ValidatePlaceOrder(in)
		assert.ErrorIs(t, err, usecase.ErrInvalidPaymentMethod, pm)
		assert.NotErrorIs(t, err, usecase.ErrValidation, pm)
	}
}

func TestValidateRegisterAndLogin(t *testing.T) {
	v := NewAuthValidator()

	assert.NoError(t, v.ValidateRegister(usecase.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret"}))
	assert.ErrorIs(t, v.ValidateRegister(usecase.RegisterInput{Name: "", Email: "ana@example.com", Password: "secret"}), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateRegister(usecase.RegisterInput{Name: "Ana", Email: "ana", Password: "secret"}), usecase.ErrValidation)
	assert.ErrorIs(t, v.ValidateRegister(usecase.RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "12345"}), usecase.ErrValidation)

	assert.NoError(t, v.ValidateLogin(usecase.LoginInput{Email: "ana@example.com", Password: "x"}))
	assert.ErrorIs(t, v.ValidateLogin(usecase.LoginInput{Email: "ana@example.com"}), usecase.ErrValidation)
}

func TestValidateCatalog(t *testing.T) {
	v := NewCatalogValidator()

	ok := usecase.ProductInput{Name: "Mug", Price: decimal.RequireFromString("9.99"), CategoryID: 1}
	assert.NoError(t, v.ValidateProduct(ok))

	bad := ok
	bad.Price = decimal.NewFromInt(-1)
	assert.ErrorIs(t, v.ValidateProduct(bad), usecase.ErrValidation)

	bad = ok
	bad.Price = decimal.RequireFromString("1.999")
	assert.ErrorIs(t, v.ValidateProduct(bad), usecase.ErrValidation)

	bad = ok
	bad.CategoryID = 0
	assert.ErrorIs(t, v.ValidateProduct(bad), usecase.ErrValidation)

	bad = ok
	bad.Name = strings.Repeat("x", 101)
	assert.ErrorIs(t, v.ValidateProduct(bad), usecase.ErrValidation)

	assert.NoError(t, v.ValidateStock(0))
	assert.ErrorIs(t, v.ValidateStock(-1), usecase.ErrValidation)

	assert.NoError(t, v.ValidateCategory(usecase.CategoryInput{Name: "Books"}))
	assert.ErrorIs(t, v.ValidateCategory(usecase.CategoryInput{Name: strings.Repeat("b", 51)}), usecase.ErrValidation)
}
