package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/peer-payments/internal/models"
)

// LedgerStore is the persistence boundary of the ledger. Lookups that find
// nothing return an apperr NotFound error.
type LedgerStore interface {
	CreateAccount(ctx context.Context, account models.Account) error
	GetAccount(ctx context.Context, id string) (models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (models.Account, error)
	// SearchAccounts returns accounts whose email contains query, ordered by
	// email. An empty query matches every account. A limit <= 0 returns all.
	SearchAccounts(ctx context.Context, query string, limit int) ([]models.Account, error)

	// GetEntriesByAccount returns the account's entries, newest first.
	// A limit <= 0 returns all of them.
	GetEntriesByAccount(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error)

	SaveRequest(ctx context.Context, req models.MoneyRequest) error
	GetRequest(ctx context.Context, id string) (models.MoneyRequest, error)
	// GetRequestsByPayer returns requests addressed to payerID in the given
	// status, newest first.
	GetRequestsByPayer(ctx context.Context, payerID string, status models.RequestStatus) ([]models.MoneyRequest, error)

	// WithAtomicTransaction runs fn so that every write made through tx
	// commits together or not at all. Reads made through tx are part of the
	// same snapshot. Implementations may run fn more than once when the
	// commit conflicts with a concurrent transaction, so fn must not have
	// side effects outside tx.
	WithAtomicTransaction(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx is the view of the store inside an atomic transaction.
type LedgerTx interface {
	// GetAccountForUpdate reads the account and guards it against
	// concurrent modification until the transaction ends.
	GetAccountForUpdate(ctx context.Context, id string) (models.Account, error)
	AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) error
	AppendEntry(ctx context.Context, entry models.LedgerEntry) error

	GetRequestForUpdate(ctx context.Context, id string) (models.MoneyRequest, error)
	// SetRequestStatus moves a pending request to a terminal status and
	// records resolvedAt as its resolution time.
	SetRequestStatus(ctx context.Context, id string, status models.RequestStatus, resolvedAt time.Time) error
}
