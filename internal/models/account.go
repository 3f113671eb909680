package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
)

// Account is a user holding a balance. Email is unique across accounts.
type Account struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	DisplayName string          `json:"displayName"`
	Balance     decimal.Decimal `json:"balance"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NormalizeEmail is the canonical form used for the unique email index.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the account before it is persisted.
func (a Account) Validate() error {
	if a.ID == "" {
		return apperr.InvalidArgument("account id is required")
	}
	email := NormalizeEmail(a.Email)
	if email == "" || !strings.Contains(email, "@") {
		return apperr.InvalidArgument("account email is invalid")
	}
	if a.Balance.IsNegative() {
		return apperr.InvalidArgument("account balance cannot be negative")
	}
	if !a.Balance.Equal(a.Balance.Round(AmountScale)) {
		return apperr.InvalidArgument("account balance has too many decimal places")
	}
	return nil
}
