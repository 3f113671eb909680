package ledger

import (
	"context"
	"slices"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
	interfaces "github.com/sheikh-saqib/peer-payments/internal/interfaces"
	"github.com/sheikh-saqib/peer-payments/internal/models"
)

// Directory resolves user-facing emails to accounts.
type Directory struct {
	store interfaces.LedgerStore
}

// NewDirectory creates a Directory backed by store.
func NewDirectory(store interfaces.LedgerStore) *Directory {
	return &Directory{store: store}
}

// ResolveByEmail returns the single account registered with email. A miss is
// a NotFound error and should not be retried.
func (d *Directory) ResolveByEmail(ctx context.Context, email string) (models.Account, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return models.Account{}, apperr.InvalidArgument("email is required")
	}
	return d.store.FindAccountByEmail(ctx, email)
}

// Search lists accounts whose email contains query, leaving out callerID so
// the caller only sees possible counterparties.
func (d *Directory) Search(ctx context.Context, callerID, query string, limit int) ([]models.Account, error) {
	fetch := limit
	if fetch > 0 {
		fetch++
	}
	accounts, err := d.store.SearchAccounts(ctx, query, fetch)
	if err != nil {
		return nil, err
	}
	accounts = slices.DeleteFunc(accounts, func(a models.Account) bool {
		return a.ID == callerID
	})
	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}
