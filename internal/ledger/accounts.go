package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
	"github.com/sheikh-saqib/peer-payments/internal/models"
)

type OpenAccountInput struct {
	ID             string // identity-provider subject; generated when empty
	Email          string
	DisplayName    string
	InitialBalance decimal.Decimal
}

// OpenAccount registers a new account, usually right after sign-up.
func (l *Ledger) OpenAccount(ctx context.Context, in OpenAccountInput) (models.Account, error) {
	ctx, span := l.startSpan(ctx, "OpenAccount")

	account := models.Account{
		ID:          strings.TrimSpace(in.ID),
		Email:       models.NormalizeEmail(in.Email),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Balance:     in.InitialBalance,
		CreatedAt:   l.now(),
	}
	if account.ID == "" {
		account.ID = l.newID()
	}

	err := l.store.CreateAccount(ctx, account)
	if err = l.finish(span, "open account", err, zap.String("account_id", account.ID)); err != nil {
		return models.Account{}, err
	}
	l.logger.Info("account opened", zap.String("account_id", account.ID))
	return account, nil
}

// GetAccount returns the account profile and current balance.
func (l *Ledger) GetAccount(ctx context.Context, id string) (models.Account, error) {
	ctx, span := l.startSpan(ctx, "GetAccount")
	account, err := l.store.GetAccount(ctx, id)
	if err = l.finish(span, "get account", err, zap.String("account_id", id)); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

// History returns the account's ledger entries, newest first. A limit <= 0
// uses the configured default.
func (l *Ledger) History(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	ctx, span := l.startSpan(ctx, "History")
	if limit <= 0 {
		limit = l.historyLimit
	}

	entries, err := l.store.GetEntriesByAccount(ctx, accountID, limit)
	if err = l.finish(span, "history", err, zap.String("account_id", accountID)); err != nil {
		return nil, err
	}
	return entries, nil
}

// PendingRequests lists requests awaiting the account's decision, newest first.
func (l *Ledger) PendingRequests(ctx context.Context, payerID string) ([]models.MoneyRequest, error) {
	ctx, span := l.startSpan(ctx, "PendingRequests")
	if payerID == "" {
		return nil, l.finish(span, "pending requests", apperr.InvalidArgument("account id is required"))
	}

	requests, err := l.store.GetRequestsByPayer(ctx, payerID, models.RequestPending)
	if err = l.finish(span, "pending requests", err, zap.String("account_id", payerID)); err != nil {
		return nil, err
	}
	return requests, nil
}

// SearchUsers lists other accounts by email substring for picking a
// counterparty. A limit <= 0 uses DefaultSearchLimit.
func (l *Ledger) SearchUsers(ctx context.Context, callerID, query string, limit int) ([]models.Account, error) {
	ctx, span := l.startSpan(ctx, "SearchUsers")
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	accounts, err := l.directory.Search(ctx, callerID, query, limit)
	if err = l.finish(span, "search users", err, zap.String("account_id", callerID)); err != nil {
		return nil, err
	}
	return accounts, nil
}
