package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/peer-payments/internal/apperr"
	interfaces "github.com/sheikh-saqib/peer-payments/internal/interfaces"
	"github.com/sheikh-saqib/peer-payments/internal/models"
)

// SQLSTATE codes the store reacts to.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
)

const DefaultMaxRetries = 5

type PostgresLedgerStore struct {
	db         *sql.DB
	logger     *zap.Logger
	maxRetries uint
}

func NewPostgresLedgerStore(db *sql.DB, logger *zap.Logger, maxRetries uint) *PostgresLedgerStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}
	return &PostgresLedgerStore{
		db:         db,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const accountColumns = `id, email, display_name, balance, created_at`

func scanAccount(row rowScanner) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.DisplayName, &a.Balance, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, apperr.NotFound("account not found")
	}
	return a, err
}

const entryColumns = `id, transfer_id, user_id, type, amount, counterparty_email, created_at`

func scanEntry(row rowScanner) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := row.Scan(&e.ID, &e.TransferID, &e.AccountID, &e.Direction, &e.Amount, &e.CounterpartyEmail, &e.CreatedAt)
	return e, err
}

const requestColumns = `id, requester_id, requester_email, from_email, from_user_id, amount, status, created_at, resolved_at`

func scanRequest(row rowScanner) (models.MoneyRequest, error) {
	var (
		r          models.MoneyRequest
		resolvedAt sql.NullTime
	)
	err := row.Scan(&r.ID, &r.RequesterID, &r.RequesterEmail, &r.PayerEmail, &r.PayerID,
		&r.Amount, &r.Status, &r.CreatedAt, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MoneyRequest{}, apperr.NotFound("money request not found")
	}
	if resolvedAt.Valid {
		r.ResolvedAt = &resolvedAt.Time
	}
	return r, err
}

// CreateAccount inserts a new account. A taken id or email is AlreadyExists.
func (p *PostgresLedgerStore) CreateAccount(ctx context.Context, account models.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO users (id, email, display_name, balance, created_at)
	VALUES ($1, $2, $3, $4, $5)`

	_, err := p.db.ExecContext(ctx, query, account.ID, models.NormalizeEmail(account.Email),
		account.DisplayName, account.Balance, account.CreatedAt)
	if hasCode(err, codeUniqueViolation) {
		return apperr.AlreadyExists("account or email is already registered")
	}
	return err
}

// GetAccount returns the account with the given id.
func (p *PostgresLedgerStore) GetAccount(ctx context.Context, id string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM users WHERE id = $1`
	return scanAccount(p.db.QueryRowContext(ctx, query, id))
}

// FindAccountByEmail looks an account up by its normalized email.
func (p *PostgresLedgerStore) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM users WHERE email = $1 LIMIT 1`

	account, err := scanAccount(p.db.QueryRowContext(ctx, query, models.NormalizeEmail(email)))
	if apperr.IsKind(err, apperr.KindNotFound) {
		return models.Account{}, apperr.NotFound("no account registered with that email")
	}
	return account, err
}

// SearchAccounts returns accounts whose email contains query, ordered by email.
// LIKE wildcards in query match literally.
func (p *PostgresLedgerStore) SearchAccounts(ctx context.Context, query string, limit int) ([]models.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM users
	WHERE email ILIKE '%' || $1 || '%' ESCAPE '\' ORDER BY email`
	args := []any{likeEscaper.Replace(models.NormalizeEmail(query))}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GetEntriesByAccount returns the account's entries, newest first.
func (p *PostgresLedgerStore) GetEntriesByAccount(ctx context.Context, accountID string, limit int) ([]models.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM transactions
	WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	args := []any{accountID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveRequest inserts a new money request.
func (p *PostgresLedgerStore) SaveRequest(ctx context.Context, req models.MoneyRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	const query = `INSERT INTO money_requests
	(id, requester_id, requester_email, from_email, from_user_id, amount, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := p.db.ExecContext(ctx, query, req.ID, req.RequesterID, req.RequesterEmail,
		req.PayerEmail, req.PayerID, req.Amount, req.Status, req.CreatedAt)
	if hasCode(err, codeUniqueViolation) {
		return apperr.AlreadyExists("money request already exists")
	}
	return err
}

// GetRequest returns the money request with the given id.
func (p *PostgresLedgerStore) GetRequest(ctx context.Context, id string) (models.MoneyRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM money_requests WHERE id = $1`
	return scanRequest(p.db.QueryRowContext(ctx, query, id))
}

// GetRequestsByPayer returns the payer's requests in status, newest first.
func (p *PostgresLedgerStore) GetRequestsByPayer(ctx context.Context, payerID string, status models.RequestStatus) ([]models.MoneyRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM money_requests
	WHERE from_user_id = $1 AND status = $2 ORDER BY created_at DESC, id`

	rows, err := p.db.QueryContext(ctx, query, payerID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.MoneyRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return requests, nil
}

// WithAtomicTransaction runs fn in a SERIALIZABLE transaction and retries
// the whole function when postgres reports a serialization failure or a
// deadlock. Any other error aborts without retry.
func (p *PostgresLedgerStore) WithAtomicTransaction(ctx context.Context, fn func(tx interfaces.LedgerTx) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 250 * time.Millisecond

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := p.runTx(ctx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if isRetryable(err) {
			p.logger.Debug("transaction conflict, retrying", zap.Int("attempt", attempt), zap.Error(err))
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(p.maxRetries))

	if err != nil && isRetryable(err) {
		p.logger.Warn("transaction conflict persisted after retries", zap.Int("attempts", attempt))
	}
	return err
}

// runTx runs fn in one SERIALIZABLE transaction, rolling back on any error.
func (p *PostgresLedgerStore) runTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) (err error) {
	dbTx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if err = fn(&postgresTx{tx: dbTx}); err != nil {
		return err
	}
	return dbTx.Commit()
}

type postgresTx struct {
	tx *sql.Tx
}

// GetAccountForUpdate reads the account and row-locks it.
func (t *postgresTx) GetAccountForUpdate(ctx context.Context, id string) (models.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanAccount(t.tx.QueryRowContext(ctx, query, id))
}

// AdjustBalance adds delta to the balance. The balance >= 0 check constraint
// turns an overdraft into FailedPrecondition.
func (t *postgresTx) AdjustBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	const query = `UPDATE users SET balance = balance + $2 WHERE id = $1`

	res, err := t.tx.ExecContext(ctx, query, accountID, delta)
	if hasCode(err, codeCheckViolation) {
		return apperr.FailedPrecondition("insufficient funds")
	}
	if err != nil {
		return err
	}
	return expectOneRow(res, apperr.NotFound("account not found"))
}

// AppendEntry inserts a ledger entry.
func (t *postgresTx) AppendEntry(ctx context.Context, entry models.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	const query = `INSERT INTO transactions (` + entryColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := t.tx.ExecContext(ctx, query, entry.ID, entry.TransferID, entry.AccountID,
		entry.Direction, entry.Amount, entry.CounterpartyEmail, entry.CreatedAt)
	return err
}

// GetRequestForUpdate reads the request and row-locks it.
func (t *postgresTx) GetRequestForUpdate(ctx context.Context, id string) (models.MoneyRequest, error) {
	const query = `SELECT ` + requestColumns + ` FROM money_requests WHERE id = $1 FOR UPDATE`
	return scanRequest(t.tx.QueryRowContext(ctx, query, id))
}

// SetRequestStatus moves the request out of pending. Zero rows updated means
// another transaction resolved it first.
func (t *postgresTx) SetRequestStatus(ctx context.Context, id string, status models.RequestStatus, resolvedAt time.Time) error {
	if !status.Terminal() {
		return apperr.InvalidArgument("money request can only move to approved or rejected")
	}

	if resolvedAt.IsZero() {
		resolvedAt = time.Now().UTC()
	}

	const query = `UPDATE money_requests SET status = $2, resolved_at = $3
	WHERE id = $1 AND status = 'pending'`

	res, err := t.tx.ExecContext(ctx, query, id, status, resolvedAt)
	if err != nil {
		return err
	}
	return expectOneRow(res, apperr.FailedPrecondition("this request has already been processed"))
}

func expectOneRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}

func hasCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

// isRetryable reports whether err is a write conflict worth another attempt.
func isRetryable(err error) bool {
	return hasCode(err, codeSerializationFailure) || hasCode(err, codeDeadlockDetected)
}

var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
