package validator

import (
	"market/internal/usecase"
)

type checkoutValidator struct{}

func NewCheckoutValidator() usecase.CheckoutValidator {
	return &checkoutValidator{}
}

// 配送先は全項目必須（trim後）、emailは形式チェック
func (v *checkoutValidator) ValidateShipping(in usecase.ShippingInput) error {
	required := []struct {
		field string
		value string
	}{
		{"full_name", in.FullName},
		{"address", in.Address},
		{"city", in.City},
		{"zip", in.Zip},
		{"country", in.Country},
	}
	for _, r := range required {
		if r.value == "" {
			return invalid(r.field + " is required")
		}
		if len(r.value) > 255 {
			return invalid(r.field + " is too long")
		}
	}
	if !isEmailLike(in.Email) {
		return invalid("invalid email")
	}
	return nil
}
