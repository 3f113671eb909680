package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event names, sent in the event-name header of each kafka message.
const (
	NameTransferCompleted    = "transfer_completed"
	NameMoneyRequested       = "money_requested"
	NameMoneyRequestResolved = "money_request_resolved"
)

type TransferCompleted struct {
	TransferID  string          `json:"transfer_id"`
	FromAccount string          `json:"from_account"`
	ToAccount   string          `json:"to_account"`
	Amount      decimal.Decimal `json:"amount"`
	RequestID   string          `json:"request_id,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type MoneyRequested struct {
	RequestID   string          `json:"request_id"`
	RequesterID string          `json:"requester_id"`
	PayerID     string          `json:"payer_id"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type MoneyRequestResolved struct {
	RequestID  string    `json:"request_id"`
	Status     string    `json:"status"`
	ResolvedBy string    `json:"resolved_by"`
	OccurredAt time.Time `json:"occurred_at"`
}
