package sqlx

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"loyaltykit/core"
)

// Driver selects the SQL dialect.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
)

// appendRetries bounds retry of the atomic append on serialization failures.
const appendRetries = 3

// Config holds SQL connection configuration.
type Config struct {
	Driver          Driver        `json:"driver"`
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// DefaultConfig returns sensible defaults for the given driver.
func DefaultConfig(driver Driver) Config {
	return Config{
		Driver:          driver,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Store implements the ledger on a relational database. The balance update
// and the transaction insert run inside one database transaction with the
// account row locked (SELECT ... FOR UPDATE), so concurrent appends for the
// same account serialize at the store.
//
// Schema:
//   - loyalty_accounts: account_id PK, cached balance, updated_at
//   - loyalty_transactions: append-only entries; action_id and content_ref
//     are first-class indexed columns so the cooldown guard and the
//     milestone lookback never scan free-form metadata
type Store struct {
	db     *sqlx.DB
	driver Driver
}

// New connects to the database described by cfg.
func New(cfg Config) (*Store, error) {
	db, err := sqlx.Connect(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return NewWithDB(db, cfg.Driver), nil
}

// NewWithDB creates a Store using an existing connection (useful for testing).
func NewWithDB(db *sqlx.DB, driver Driver) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the ledger tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	var stmts []string
	switch s.driver {
	case DriverMySQL:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS loyalty_accounts (
				account_id VARCHAR(191) PRIMARY KEY,
				balance BIGINT NOT NULL DEFAULT 0,
				updated_at DATETIME(6) NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS loyalty_transactions (
				id VARCHAR(36) PRIMARY KEY,
				account_id VARCHAR(191) NOT NULL,
				action_id VARCHAR(64) NOT NULL,
				content_ref VARCHAR(191) NOT NULL DEFAULT '',
				delta BIGINT NOT NULL,
				balance_after BIGINT NOT NULL,
				kind VARCHAR(16) NOT NULL,
				reason VARCHAR(256) NOT NULL DEFAULT '',
				metadata JSON,
				created_at DATETIME(6) NOT NULL,
				INDEX idx_loyalty_tx_guard (account_id, action_id, content_ref, created_at),
				INDEX idx_loyalty_tx_history (account_id, created_at)
			)`,
		}
	default:
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS loyalty_accounts (
				account_id TEXT PRIMARY KEY,
				balance BIGINT NOT NULL DEFAULT 0,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS loyalty_transactions (
				id TEXT PRIMARY KEY,
				account_id TEXT NOT NULL,
				action_id TEXT NOT NULL,
				content_ref TEXT NOT NULL DEFAULT '',
				delta BIGINT NOT NULL,
				balance_after BIGINT NOT NULL,
				kind TEXT NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				metadata JSONB,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_loyalty_tx_guard ON loyalty_transactions (account_id, action_id, content_ref, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_loyalty_tx_history ON loyalty_transactions (account_id, created_at)`,
		}
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type txRow struct {
	ID           string    `db:"id"`
	Account      string    `db:"account_id"`
	Action       string    `db:"action_id"`
	ContentRef   string    `db:"content_ref"`
	Delta        int64     `db:"delta"`
	BalanceAfter int64     `db:"balance_after"`
	Kind         string    `db:"kind"`
	Reason       string    `db:"reason"`
	Metadata     []byte    `db:"metadata"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r txRow) toTransaction() (core.Transaction, error) {
	tx := core.Transaction{
		ID:           r.ID,
		Account:      core.AccountID(r.Account),
		Action:       core.ActionID(r.Action),
		ContentRef:   core.ContentRef(r.ContentRef),
		Delta:        r.Delta,
		BalanceAfter: r.BalanceAfter,
		Kind:         core.TxKind(r.Kind),
		Reason:       r.Reason,
		CreatedAt:    r.CreatedAt,
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &tx.Metadata); err != nil {
			return core.Transaction{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return tx, nil
}

// Append records one ledger entry under the account row lock, retrying
// bounded times on serialization failures before reporting a conflict.
func (s *Store) Append(ctx context.Context, account core.AccountID, in core.AppendInput) (core.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < appendRetries; attempt++ {
		tx, err := s.appendOnce(ctx, account, in)
		if err == nil {
			return tx, nil
		}
		if !isRetryable(err) {
			return core.Transaction{}, err
		}
		lastErr = err
	}
	return core.Transaction{}, fmt.Errorf("%w: %v", core.ErrConflict, lastErr)
}

func (s *Store) appendOnce(ctx context.Context, account core.AccountID, in core.AppendInput) (core.Transaction, error) {
	dbtx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin append: %w", err)
	}
	defer dbtx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	var balance int64
	err = dbtx.GetContext(ctx, &balance,
		s.db.Rebind(`SELECT balance FROM loyalty_accounts WHERE account_id = ? FOR UPDATE`), account)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := dbtx.ExecContext(ctx,
			s.db.Rebind(`INSERT INTO loyalty_accounts (account_id, balance, updated_at) VALUES (?, ?, ?)`),
			account, 0, now); err != nil {
			return core.Transaction{}, fmt.Errorf("create account: %w", err)
		}
		balance = 0
	case err != nil:
		return core.Transaction{}, fmt.Errorf("lock account: %w", err)
	}

	next, err := core.AddSafe(balance, in.Delta)
	if err != nil {
		return core.Transaction{}, err
	}
	if _, err := dbtx.ExecContext(ctx,
		s.db.Rebind(`UPDATE loyalty_accounts SET balance = ?, updated_at = ? WHERE account_id = ?`),
		next, now, account); err != nil {
		return core.Transaction{}, fmt.Errorf("update balance: %w", err)
	}

	var metadata []byte
	if len(in.Metadata) > 0 {
		metadata, err = json.Marshal(in.Metadata)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("encode metadata: %w", err)
		}
	}
	entry := core.Transaction{
		ID:           uuid.NewString(),
		Account:      account,
		Action:       in.Action,
		ContentRef:   in.ContentRef,
		Delta:        in.Delta,
		BalanceAfter: next,
		Kind:         in.Kind,
		Reason:       in.Reason,
		Metadata:     in.Metadata,
		CreatedAt:    now,
	}
	if _, err := dbtx.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO loyalty_transactions
			(id, account_id, action_id, content_ref, delta, balance_after, kind, reason, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		entry.ID, entry.Account, entry.Action, entry.ContentRef, entry.Delta,
		entry.BalanceAfter, entry.Kind, entry.Reason, metadata, entry.CreatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}

	if err := dbtx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit append: %w", err)
	}
	return entry, nil
}

func (s *Store) Balance(ctx context.Context, account core.AccountID) (int64, error) {
	var balance int64
	err := s.db.GetContext(ctx, &balance,
		s.db.Rebind(`SELECT balance FROM loyalty_accounts WHERE account_id = ?`), account)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

func (s *Store) HasSince(ctx context.Context, account core.AccountID, action core.ActionID, ref core.ContentRef, since time.Time) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		s.db.Rebind(`SELECT EXISTS(
			SELECT 1 FROM loyalty_transactions
			WHERE account_id = ? AND action_id = ? AND content_ref = ? AND created_at >= ?)`),
		account, action, ref, since)
	if err != nil {
		return false, fmt.Errorf("cooldown lookup: %w", err)
	}
	return exists, nil
}

func (s *Store) CountAction(ctx context.Context, account core.AccountID, action core.ActionID) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n,
		s.db.Rebind(`SELECT COUNT(*) FROM loyalty_transactions WHERE account_id = ? AND action_id = ?`),
		account, action)
	if err != nil {
		return 0, fmt.Errorf("count action: %w", err)
	}
	return n, nil
}

func (s *Store) Recent(ctx context.Context, account core.AccountID, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []txRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT id, account_id, action_id, content_ref, delta, balance_after, kind, reason, metadata, created_at
			FROM loyalty_transactions WHERE account_id = ?
			ORDER BY created_at DESC, id DESC LIMIT ?`),
		account, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		tx, err := r.toTransaction()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *Store) TotalEarned(ctx context.Context, account core.AccountID) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total,
		s.db.Rebind(`SELECT COALESCE(SUM(delta), 0) FROM loyalty_transactions WHERE account_id = ? AND delta > 0`),
		account)
	if err != nil {
		return 0, fmt.Errorf("total earned: %w", err)
	}
	return total, nil
}

// isRetryable reports whether an append failed due to a serialization or
// deadlock condition the caller may retry.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		// ER_LOCK_DEADLOCK, ER_LOCK_WAIT_TIMEOUT
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	return false
}
