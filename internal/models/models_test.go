package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
)

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		name  string
		input string
		ok    bool
	}{
		{"positive", "30", true},
		{"cents", "0.01", true},
		{"trailing zeros", "12.500", true},
		{"zero", "0", false},
		{"negative", "-5", false},
		{"sub cent", "1.005", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tc.input))
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
		})
	}
}

func TestNewTransferMirrorsEntries(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	sender := Account{ID: "alice", Email: "alice@example.com"}
	recipient := Account{ID: "bob", Email: "bob@example.com"}

	tr := NewTransfer("t1", sender, recipient, decimal.NewFromInt(30), now)

	assert.Equal(t, DirectionSend, tr.Debit.Direction)
	assert.Equal(t, "alice", tr.Debit.AccountID)
	assert.Equal(t, "bob@example.com", tr.Debit.CounterpartyEmail)
	assert.Equal(t, DirectionReceive, tr.Credit.Direction)
	assert.Equal(t, "bob", tr.Credit.AccountID)
	assert.Equal(t, "alice@example.com", tr.Credit.CounterpartyEmail)
	assert.Equal(t, tr.Debit.CreatedAt, tr.Credit.CreatedAt)
	assert.True(t, tr.Debit.SignedAmount().Add(tr.Credit.SignedAmount()).IsZero())
	require.NoError(t, tr.Debit.Validate())
	require.NoError(t, tr.Credit.Validate())
}

func TestLedgerEntryValidate(t *testing.T) {
	entry := LedgerEntry{
		ID: "e1", TransferID: "t1", AccountID: "alice", Direction: "refund",
		Amount: decimal.NewFromInt(1), CounterpartyEmail: "bob@example.com", CreatedAt: time.Now(),
	}
	assert.Error(t, entry.Validate())

	entry.Direction = DirectionSend
	assert.NoError(t, entry.Validate())

	entry.Amount = decimal.Zero
	assert.Error(t, entry.Validate())
}

func TestAccountValidate(t *testing.T) {
	acc := Account{ID: "a", Email: " Alice@Example.com ", Balance: decimal.RequireFromString("10.50")}
	assert.NoError(t, acc.Validate())
	assert.Equal(t, "alice@example.com", NormalizeEmail(acc.Email))

	acc.Balance = decimal.NewFromInt(-1)
	assert.Error(t, acc.Validate())

	acc.Balance = decimal.RequireFromString("0.001")
	assert.Error(t, acc.Validate())

	acc.Balance = decimal.Zero
	acc.Email = "not-an-email"
	assert.Error(t, acc.Validate())
}

func TestParseRequestAction(t *testing.T) {
	a, err := ParseRequestAction("approve")
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, a)

	a, err = ParseRequestAction(" Reject ")
	require.NoError(t, err)
	assert.Equal(t, ActionReject, a)

	_, err = ParseRequestAction("cancel")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))

	status, err := ActionApprove.Outcome()
	require.NoError(t, err)
	assert.Equal(t, RequestApproved, status)

	_, err = RequestAction(0).Outcome()
	assert.Error(t, err)
}

func TestRequestStatusTerminal(t *testing.T) {
	assert.False(t, RequestPending.Terminal())
	assert.True(t, RequestApproved.Terminal())
	assert.True(t, RequestRejected.Terminal())
	assert.False(t, RequestStatus("cancelled").Valid())
}

func TestMoneyRequestValidate(t *testing.T) {
	req := MoneyRequest{
		ID: "r1", RequesterID: "bob", RequesterEmail: "bob@example.com",
		PayerID: "alice", PayerEmail: "alice@example.com",
		Amount: decimal.NewFromInt(25), Status: RequestPending, CreatedAt: time.Now(),
	}
	assert.NoError(t, req.Validate())

	req.Status = "unknown"
	assert.Error(t, req.Validate())
}
