// Package memory is an in-process storage driver for local development and
// tests. It implements the same ports as the postgres package.
//
// Transactions are serialized: Begin takes a store-wide lock that is held
// until Commit or Rollback, and every mutation made through a transaction
// is journaled so Rollback restores the previous state.
package memory

import (
	"context"
	"sync"
	"time"

	"company-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type allowanceKey struct {
	employeeID int64
	categoryID int64
}

// DB holds every table of the in-memory driver.
type DB struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	currency           string
	balances           map[int64]*domain.WalletBalance
	ledger             []domain.LedgerEntry
	allowances         map[allowanceKey]*domain.CategoryAllowance
	payments           map[uuid.UUID]*domain.PaymentRequest
	payouts            map[uuid.UUID]*domain.PayoutRequest
	merchantCategories map[int64]map[int64]struct{}
	directory          map[int64]domain.DirectoryEntry
}

// NewDB creates an empty in-memory database. currency tags lazily created
// wallet rows.
func NewDB(currency string) *DB {
	return &DB{
		currency:           currency,
		balances:           make(map[int64]*domain.WalletBalance),
		allowances:         make(map[allowanceKey]*domain.CategoryAllowance),
		payments:           make(map[uuid.UUID]*domain.PaymentRequest),
		payouts:            make(map[uuid.UUID]*domain.PayoutRequest),
		merchantCategories: make(map[int64]map[int64]struct{}),
		directory:          make(map[int64]domain.DirectoryEntry),
	}
}

// PutDirectoryEntry registers an employee in the directory.
func (db *DB) PutDirectoryEntry(e domain.DirectoryEntry) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.directory[e.AccountID] = e
}

// ExpirePaymentRequest moves the OTP deadline of a request into the past.
func (db *DB) ExpirePaymentRequest(id uuid.UUID) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	req, ok := db.payments[id]
	if !ok {
		return false
	}
	req.OTPExpiresAt = time.Now().UTC().Add(-time.Second)
	return true
}

// Name implements ports.HealthChecker.
func (db *DB) Name() string { return "memory" }

// Ping implements ports.HealthChecker.
func (db *DB) Ping(ctx context.Context) error { return nil }

// Transactor implements ports.DBTransactor for the in-memory driver.
type Transactor struct {
	db *DB
}

// NewTransactor creates a Transactor over db.
func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

// Begin blocks until no other transaction is open.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.db.txMu.Lock()
	return &memTx{db: t.db}, nil
}

// memTx is a pgx.Tx whose only real behavior is the undo journal.
type memTx struct {
	db     *DB
	undo   []func()
	closed bool
}

// record queues an undo step. Callers hold db.mu.
func (t *memTx) record(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *memTx) finish(rollback bool) error {
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	if rollback {
		t.db.mu.Lock()
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
		t.db.mu.Unlock()
	}
	t.undo = nil
	t.db.txMu.Unlock()
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) Commit(ctx context.Context) error          { return t.finish(false) }
func (t *memTx) Rollback(ctx context.Context) error        { return t.finish(true) }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }

// journal returns the memTx behind tx, or nil when tx came from elsewhere.
func journal(tx pgx.Tx) *memTx {
	mt, _ := tx.(*memTx)
	return mt
}

// record is a nil-safe helper for repositories.
func record(tx pgx.Tx, fn func()) {
	if mt := journal(tx); mt != nil {
		mt.record(fn)
	}
}
