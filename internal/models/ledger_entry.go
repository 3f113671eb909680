package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
)

// Direction tells which side of a transfer an entry records.
type Direction string

const (
	DirectionSend    Direction = "send"
	DirectionReceive Direction = "receive"
)

func (d Direction) Valid() bool {
	return d == DirectionSend || d == DirectionReceive
}

// LedgerEntry is one side of a completed transfer. Entries are append-only.
type LedgerEntry struct {
	ID                string          `json:"id"`
	TransferID        string          `json:"transferId"`
	AccountID         string          `json:"userId"` // owner of the entry
	Direction         Direction       `json:"type"`
	Amount            decimal.Decimal `json:"amount"` // always positive, direction carries the sign
	CounterpartyEmail string          `json:"counterpartyEmail"`
	CreatedAt         time.Time       `json:"timestamp"`
}

// SignedAmount returns the balance delta the entry stands for.
func (e LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Direction == DirectionSend {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Validate checks the entry before it is persisted.
func (e LedgerEntry) Validate() error {
	switch {
	case e.ID == "" || e.TransferID == "":
		return apperr.InvalidArgument("ledger entry requires id and transfer id")
	case e.AccountID == "":
		return apperr.InvalidArgument("ledger entry requires an owner account")
	case !e.Direction.Valid():
		return apperr.InvalidArgument("ledger entry direction must be send or receive")
	case strings.TrimSpace(e.CounterpartyEmail) == "":
		return apperr.InvalidArgument("ledger entry requires a counterparty email")
	case e.CreatedAt.IsZero():
		return apperr.InvalidArgument("ledger entry requires a timestamp")
	}
	return ValidateAmount(e.Amount)
}
