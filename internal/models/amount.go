package models

import (
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
)

// AmountScale is the number of fractional digits money is kept in.
const AmountScale = 2

// ValidateAmount accepts strictly positive amounts expressible in minor units.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.InvalidArgument("amount must be positive")
	}
	if !amount.Equal(amount.Round(AmountScale)) {
		return apperr.InvalidArgument("amount cannot have more than two decimal places")
	}
	return nil
}
