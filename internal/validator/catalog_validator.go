package validator

import (
	"unicode/utf8"

	"github.com/rs-labo46/ecshop/internal/usecase"
)

type catalogValidator struct{}

func NewCatalogValidator() usecase.CatalogValidator {
	return &catalogValidator{}
}

func (v *catalogValidator) ValidateProduct(in usecase.ProductInput) error {
	if in.Name == "" {
		return invalid("name is required")
	}
	if utf8.RuneCountInString(in.Name) > 100 {
		return invalid("name must be at most 100 characters")
	}
	if utf8.RuneCountInString(in.Description) > 2000 {
		return invalid("description must be at most 2000 characters")
	}
	if in.Price.IsNegative() {
		return invalid("price must be >= 0")
	}
	// numeric(12,2)
	if !in.Price.Equal(in.Price.Round(2)) {
		return invalid("price must have at most 2 decimal places")
	}
	if in.CategoryID <= 0 {
		return invalid("categoryId is required")
	}
	if len(in.Image) > 255 {
		return invalid("image must be at most 255 characters")
	}
	return nil
}

func (v *catalogValidator) ValidateStock(stock int64) error {
	if stock < 0 {
		return invalid("stock must be >= 0")
	}
	return nil
}

func (v *catalogValidator) ValidateCategory(in usecase.CategoryInput) error {
	if in.Name == "" {
		return invalid("name is required")
	}
	if utf8.RuneCountInString(in.Name) > 50 {
		return invalid("name must be at most 50 characters")
	}
	if utf8.RuneCountInString(in.Description) > 500 {
		return invalid("description must be at most 500 characters")
	}
	return nil
}
