package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
	"github.com/sheikh-saqib/peer-payments/internal/ledger"
	"github.com/sheikh-saqib/peer-payments/internal/models"
	"github.com/sheikh-saqib/peer-payments/internal/models/events"
	"github.com/sheikh-saqib/peer-payments/internal/storage/memory"
)

func requestFrom(t *testing.T, f fixture, requester, payerEmail string, amount int64) models.MoneyRequest {
	t.Helper()
	req, err := f.ledger.RequestMoney(context.Background(), ledger.RequestMoneyInput{
		RequesterID: requester,
		PayerEmail:  payerEmail,
		Amount:      decimal.NewFromInt(amount),
	})
	require.NoError(t, err)
	return req
}

func resolve(f fixture, requestID, actor string, action models.RequestAction) (models.MoneyRequest, error) {
	return f.ledger.HandleMoneyRequest(context.Background(), ledger.HandleMoneyRequestInput{
		RequestID: requestID,
		ActorID:   actor,
		Action:    action,
	})
}

func TestRequestMoneyCreatesPendingRequest(t *testing.T) {
	f := newFixture(t, map[string]int64{"alice": 100, "bob": 10})

	req := requestFrom(t, f, "bob", "ALICE@example.com", 25)

	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, "bob", req.RequesterID)
	assert.Equal(t, "bob@example.com", req.RequesterEmail)
	assert.Equal(t, "alice", req.PayerID)
	assert.Equal(t, "alice@example.com", req.PayerEmail)
	assertBalance(t, f, "alice", 100)
	assertBalance(t, f, "bob", 10)
	assert.Equal(t, []string{events.NameMoneyRequested}, f.publisher.names())

	pending, err := f.ledger.PendingRequests(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)
}

func TestRequestMoneyDoesNotDeduplicate(t *testing.T) {
	f := newFixture(t, map[string]int64{"alice": 100, "bob": 10})

	first := requestFrom(t, f, "bob", "alice@example.com", 5)
	second := requestFrom(t, f, "bob", "alice@example.com", 5)
	assert.NotEqual(t, first.ID, second.ID)

	pending, err := f.ledger.PendingRequests(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestRequestMoneyFailures(t *testing.T) {
	f := newFixture(t, map[string]int64{"alice": 100, "bob": 10})
	ctx := context.Background()

	cases := []struct {
		name string
		in   ledger.RequestMoneyInput
		kind apperr.Kind
	}{
		{"unknown payer", ledger.RequestMoneyInput{RequesterID: "bob", PayerEmail: "ghost@example.com", Amount: decimal.NewFromInt(1)}, apperr.KindNotFound},
		{"unknown requester", ledger.RequestMoneyInput{RequesterID: "ghost", PayerEmail: "alice@example.com", Amount: decimal.NewFromInt(1)}, apperr.KindNotFound},
		{"zero amount", ledger.RequestMoneyInput{RequesterID: "bob", PayerEmail: "alice@example.com", Amount: decimal.Zero}, apperr.KindInvalidArgument},
		{"self request", ledger.RequestMoneyInput{RequesterID: "bob", PayerEmail: "bob@example.com", Amount: decimal.NewFromInt(1)}, apperr.KindInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.RequestMoney(ctx, tc.in)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}

	pending, err := f.ledger.PendingRequests(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestApproveMovesFundsAndMarksApproved(t *testing.T) {
	f := newFixture(t, map[string]int64{"alice": 100, "bob": 10})
	req := requestFrom(t, f, "bob", "alice@example.com", 25)

	resolved, err := resolve(f, req.ID, "alice", models.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	assertBalance(t, f, "alice", 75)
	assertBalance(t, f, "bob", 35)

	entries := f.store.GetLedgerEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, models.DirectionSend, entries[0].Direction)
	assert.Equal(t, "alice", entries[0].AccountID)
	assert.Equal(t, "bob@example.com", entries[0].CounterpartyEmail)
	assert.Equal(t, models.DirectionReceive, entries[1].Direction)
	assert.Equal(t, "bob", entries[1].AccountID)

	stored, err := f.store.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, stored.Status)

	assert.Equal(t, []string{
		events.NameMoneyRequested,
		events.NameTransferCompleted,
		events.NameMoneyRequestResolved,
	}, f.publisher.names())
}

func TestApproveWithInsufficientFundsKeepsRequestPending(t *testing.T) {
	f := newFixture(t, map[string]int64{"alice": 10, "bob": 50})
	req := requestFrom(t, f, "bob", "alice@example.com", 25)
	assert.Equal(t, models.RequestPending, req.Status)

	_, err := resolve(f, req.ID, "alice", models.ActionApprove)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindFailedPrecondition))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	assertBalance(t, f, "alice", 10)
	assertBalance(t, f, "bob", 50)
	assert.Empty(t, f.store.GetLedgerEntries())

	stored, err := f.store.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, stored.Status)
}

func TestRejectThenSecondResolutionFails(t *testing.T) {
	f := newFixture(t, map[string]int64{"alice": 100, "bob": 10})
	req := requestFrom(t, f, "bob", "alice@example.com", 25)

	resolved, err := resolve(f, req.ID, "alice", models.ActionReject)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, resolved.Status)
	assertBalance(t, f, "alice", 100)
	assertBalance(t, f, "bob", 10)
	assert.Empty(t, f.store.GetLedgerEntries())

	for _, action := range []models.RequestAction{models.ActionApprove, models.ActionReject} {
		_, err := resolve(f, req.ID, "alice", action)
		assert.True(t, apperr.IsKind(err, apperr.KindFailedPrecondition), action.String())
		assert.ErrorIs(t, err, ledger.ErrAlreadyProcessed)
	}

	stored, err := f.store.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, stored.Status)
}

func TestApprovedRequestCannotBeReprocessed(t *testing.T) {
	f := newFixture(t, map[string]int64{"alice": 100, "bob": 10})
	req := requestFrom(t, f, "bob", "alice@example.com", 25)

	_, err := resolve(f, req.ID, "alice", models.ActionApprove)
	require.NoError(t, err)

	_, err = resolve(f, req.ID, "alice", models.ActionApprove)
	assert.ErrorIs(t, err, ledger.ErrAlreadyProcessed)
	assertBalance(t, f, "alice", 75)
	assertBalance(t, f, "bob", 35)
}

func TestResolveRequestGuards(t *testing.T) {
	f := newFixture(t, map[string]int64{"alice": 100, "bob": 10, "carol": 0})
	req := requestFrom(t, f, "bob", "alice@example.com", 25)

	_, err := resolve(f, "missing", "alice", models.ActionApprove)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = resolve(f, req.ID, "carol", models.ActionApprove)
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))

	_, err = resolve(f, req.ID, "bob", models.ActionApprove)
	assert.ErrorIs(t, err, ledger.ErrNotPayer)

	_, err = resolve(f, req.ID, "alice", models.RequestAction(42))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))

	stored, err := f.store.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, stored.Status)
	assertBalance(t, f, "alice", 100)
}

func TestConcurrentApprovalsTransferOnce(t *testing.T) {
	f := newFixture(t, map[string]int64{"alice": 100, "bob": 0})
	req := requestFrom(t, f, "bob", "alice@example.com", 25)

	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		go func() {
			_, err := resolve(f, req.ID, "alice", models.ActionApprove)
			results <- err
		}()
	}

	succeeded := 0
	for i := 0; i < 5; i++ {
		if err := <-results; err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ledger.ErrAlreadyProcessed)
		}
	}
	assert.Equal(t, 1, succeeded)
	assertBalance(t, f, "alice", 75)
	assertBalance(t, f, "bob", 25)
}

func TestApprovalFailureInsideTransactionLeavesStateUnchanged(t *testing.T) {
	cases := []struct {
		name  string
		store func(*memory.MemoryLedgerStore) *failingStore
	}{
		{"entry write fails", func(m *memory.MemoryLedgerStore) *failingStore {
			return &failingStore{MemoryLedgerStore: m, failOn: 2}
		}},
		{"status write fails", func(m *memory.MemoryLedgerStore) *failingStore {
			return &failingStore{MemoryLedgerStore: m, failStatus: true}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mem := memory.NewMemoryLedgerStore()
			l := ledger.NewLedger(tc.store(mem))
			ctx := context.Background()
			for id, bal := range map[string]int64{"alice": 100, "bob": 10} {
				_, err := l.OpenAccount(ctx, ledger.OpenAccountInput{ID: id, Email: id + "@example.com", InitialBalance: decimal.NewFromInt(bal)})
				require.NoError(t, err)
			}
			req, err := l.RequestMoney(ctx, ledger.RequestMoneyInput{RequesterID: "bob", PayerEmail: "alice@example.com", Amount: decimal.NewFromInt(25)})
			require.NoError(t, err)

			_, err = l.HandleMoneyRequest(ctx, ledger.HandleMoneyRequestInput{RequestID: req.ID, ActorID: "alice", Action: models.ActionApprove})
			require.Error(t, err)
			assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

			alice, _ := mem.GetAccount(ctx, "alice")
			bob, _ := mem.GetAccount(ctx, "bob")
			assert.True(t, alice.Balance.Equal(decimal.NewFromInt(100)))
			assert.True(t, bob.Balance.Equal(decimal.NewFromInt(10)))
			assert.Empty(t, mem.GetLedgerEntries())

			stored, err := mem.GetRequest(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, models.RequestPending, stored.Status)
			assert.Nil(t, stored.ResolvedAt)
		})
	}
}

func TestResolvedAtMatchesStoredRequest(t *testing.T) {
	f := newFixture(t, map[string]int64{"alice": 100, "bob": 10})
	req := requestFrom(t, f, "bob", "alice@example.com", 25)

	resolved, err := resolve(f, req.ID, "alice", models.ActionApprove)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), *resolved.ResolvedAt)

	stored, err := f.store.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResolvedAt)
	assert.Equal(t, *resolved.ResolvedAt, *stored.ResolvedAt)
}

func TestGetMoneyRequestVisibleToPartiesOnly(t *testing.T) {
	f := newFixture(t, map[string]int64{"alice": 100, "bob": 10, "carol": 0})
	ctx := context.Background()
	req := requestFrom(t, f, "bob", "alice@example.com", 25)

	for _, actor := range []string{"alice", "bob"} {
		got, err := f.ledger.GetMoneyRequest(ctx, req.ID, actor)
		require.NoError(t, err)
		assert.Equal(t, req.ID, got.ID)
	}

	_, err := f.ledger.GetMoneyRequest(ctx, req.ID, "carol")
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))

	_, err = f.ledger.GetMoneyRequest(ctx, "missing", "alice")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
