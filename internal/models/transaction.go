package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer represents a completed movement of funds between two accounts.
// Debit and Credit are the two ledger entries written with it.
type Transfer struct {
	ID          string          `json:"id"`
	FromAccount string          `json:"fromAccount"`
	ToAccount   string          `json:"toAccount"`
	Amount      decimal.Decimal `json:"amount"`
	RequestID   string          `json:"requestId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	Debit       LedgerEntry     `json:"-"`
	Credit      LedgerEntry     `json:"-"`
}

// NewTransfer builds the paired send/receive entries for a transfer between
// sender and recipient. Both entries share the transfer id and timestamp.
func NewTransfer(id string, sender, recipient Account, amount decimal.Decimal, createdAt time.Time) Transfer {
	return Transfer{
		ID:          id,
		FromAccount: sender.ID,
		ToAccount:   recipient.ID,
		Amount:      amount,
		CreatedAt:   createdAt,
		Debit: LedgerEntry{
			ID:                id + "-send",
			TransferID:        id,
			AccountID:         sender.ID,
			Direction:         DirectionSend,
			Amount:            amount,
			CounterpartyEmail: recipient.Email,
			CreatedAt:         createdAt,
		},
		Credit: LedgerEntry{
			ID:                id + "-receive",
			TransferID:        id,
			AccountID:         recipient.ID,
			Direction:         DirectionReceive,
			Amount:            amount,
			CounterpartyEmail: sender.Email,
			CreatedAt:         createdAt,
		},
	}
}
