package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
	interfaces "github.com/sheikh-saqib/peer-payments/internal/interfaces"
	"github.com/sheikh-saqib/peer-payments/internal/models"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// Atomic transactions hold the store mutex for their whole duration and stage
// their writes, which are applied only when the transaction function succeeds.
type MemoryLedgerStore struct {
	mu         sync.Mutex
	accounts   map[string]models.Account
	emailIndex map[string]string // normalized email -> account id
	entries    []models.LedgerEntry
	requests   map[string]models.MoneyRequest
	now        func() time.Time
}

// NewMemoryLedgerStore creates an empty store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		accounts:   make(map[string]models.Account),
		emailIndex: make(map[string]string),
		entries:    make([]models.LedgerEntry, 0),
		requests:   make(map[string]models.MoneyRequest),
		now:        time.Now,
	}
}

// CreateAccount stores a new account. The id and the normalized email must
// both be unused.
func (m *MemoryLedgerStore) CreateAccount(ctx context.Context, account models.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	account.Email = models.NormalizeEmail(account.Email)

	// lock the mutex so the id and email checks and the insert are one step
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[account.ID]; exists {
		return apperr.AlreadyExists("account already exists")
	}
	if _, exists := m.emailIndex[account.Email]; exists {
		return apperr.AlreadyExists("email is already registered")
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = m.now()
	}
	m.accounts[account.ID] = account
	m.emailIndex[account.Email] = account.ID
	return nil
}

// GetAccount returns the account with the given id.
func (m *MemoryLedgerStore) GetAccount(ctx context.Context, id string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return models.Account{}, apperr.NotFound("account not found")
	}
	return account, nil
}

// FindAccountByEmail looks an account up by its normalized email.
func (m *MemoryLedgerStore) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.emailIndex[models.NormalizeEmail(email)]
	if !ok {
		return models.Account{}, apperr.NotFound("no account registered with that email")
	}
	return m.accounts[id], nil
}

// SearchAccounts returns accounts whose email contains query, ordered by email.
func (m *MemoryLedgerStore) SearchAccounts(ctx context.Context, query string, limit int) ([]models.Account, error) {
	query = models.NormalizeEmail(query)

	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Account
	for email, id := range m.emailIndex {
		if strings.Contains(email, query) {
			result = append(result, m.accounts[id])
		}
	}
	slices.SortFunc(result, func(a, b models.Account) int {
		return strings.Compare(a.Email, b.Email)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetEntriesByAccount returns the account's entries, newest first.
func (m *MemoryLedgerStore) GetEntriesByAccount(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.LedgerEntry
	// walk backwards so equal timestamps keep newest-inserted first
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].AccountID == accountID {
			result = append(result, m.entries[i])
		}
	}
	slices.SortStableFunc(result, func(a, b models.LedgerEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetLedgerEntries returns a copy of every entry in insertion order.
func (m *MemoryLedgerStore) GetLedgerEntries() []models.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.entries)
}

// SaveRequest stores a new money request.
func (m *MemoryLedgerStore) SaveRequest(ctx context.Context, req models.MoneyRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.requests[req.ID]; exists {
		return apperr.AlreadyExists("money request already exists")
	}
	m.requests[req.ID] = req
	return nil
}

// GetRequest returns the money request with the given id.
func (m *MemoryLedgerStore) GetRequest(ctx context.Context, id string) (models.MoneyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.requests[id]
	if !ok {
		return models.MoneyRequest{}, apperr.NotFound("money request not found")
	}
	return req, nil
}

// GetRequestsByPayer returns the payer's requests in status, newest first.
func (m *MemoryLedgerStore) GetRequestsByPayer(ctx context.Context, payerID string, status models.RequestStatus) ([]models.MoneyRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.MoneyRequest
	for _, r := range m.requests {
		if r.PayerID == payerID && r.Status == status {
			result = append(result, r)
		}
	}
	slices.SortFunc(result, func(a, b models.MoneyRequest) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return result, nil
}

// WithAtomicTransaction runs fn under the store mutex. fn must only use tx;
// calling the store's own methods from inside fn deadlocks.
func (m *MemoryLedgerStore) WithAtomicTransaction(ctx context.Context, fn func(tx interfaces.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{
		store:    m,
		balances: make(map[string]decimal.Decimal),
		statuses: make(map[string]resolution),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.apply()
	return nil
}

// memoryTx stages writes until apply is called.
type memoryTx struct {
	store    *MemoryLedgerStore
	balances map[string]decimal.Decimal
	entries  []models.LedgerEntry
	statuses map[string]resolution
}

type resolution struct {
	status models.RequestStatus
	at     time.Time
}

// GetAccountForUpdate reads the account including balance changes staged in tx.
func (t *memoryTx) GetAccountForUpdate(ctx context.Context, id string) (models.Account, error) {
	account, ok := t.store.accounts[id]
	if !ok {
		return models.Account{}, apperr.NotFound("account not found")
	}
	if staged, ok := t.balances[id]; ok {
		account.Balance = staged
	}
	return account, nil
}

// AdjustBalance stages balance + delta. A negative result is rejected.
func (t *memoryTx) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	account, err := t.GetAccountForUpdate(ctx, accountID)
	if err != nil {
		return err
	}
	next := account.Balance.Add(delta)
	if next.IsNegative() {
		return apperr.FailedPrecondition("insufficient funds")
	}
	t.balances[accountID] = next
	return nil
}

// AppendEntry stages a ledger entry.
func (t *memoryTx) AppendEntry(ctx context.Context, entry models.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	t.entries = append(t.entries, entry)
	return nil
}

// GetRequestForUpdate reads the request including a status staged in tx.
func (t *memoryTx) GetRequestForUpdate(ctx context.Context, id string) (models.MoneyRequest, error) {
	req, ok := t.store.requests[id]
	if !ok {
		return models.MoneyRequest{}, apperr.NotFound("money request not found")
	}
	if staged, ok := t.statuses[id]; ok {
		req.Status = staged.status
	}
	return req, nil
}

// SetRequestStatus stages the transition out of pending.
func (t *memoryTx) SetRequestStatus(ctx context.Context, id string, status models.RequestStatus, resolvedAt time.Time) error {
	if !status.Terminal() {
		return apperr.InvalidArgument("money request can only move to approved or rejected")
	}
	req, err := t.GetRequestForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if req.Status != models.RequestPending {
		return apperr.FailedPrecondition("this request has already been processed")
	}
	t.statuses[id] = resolution{status: status, at: resolvedAt}
	return nil
}

// apply copies the staged writes into the store. The caller holds the mutex.
func (t *memoryTx) apply() {
	for id, balance := range t.balances {
		account := t.store.accounts[id]
		account.Balance = balance
		t.store.accounts[id] = account
	}
	t.store.entries = append(t.store.entries, t.entries...)
	for id, res := range t.statuses {
		req := t.store.requests[id]
		req.Status = res.status
		resolvedAt := res.at
		if resolvedAt.IsZero() {
			resolvedAt = t.store.now()
		}
		req.ResolvedAt = &resolvedAt
		t.store.requests[id] = req
	}
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
