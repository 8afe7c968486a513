package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// DefaultLockTimeout bounds how long a workflow waits on a contended row
// (a payment request held FOR UPDATE, a hot wallet).
const DefaultLockTimeout = 5 * time.Second

// Transactor implements ports.DBTransactor on the ledger pool.
type Transactor struct {
	pool        Pool
	lockTimeout time.Duration
}

func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool, lockTimeout: DefaultLockTimeout}
}

// Begin starts a READ COMMITTED transaction. Ledger mutations rely on
// conditional single-statement updates plus row locks, not on a stricter
// isolation level.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin ledger tx: %w", err)
	}
	if t.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", t.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback(ctx)
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}
	return tx, nil
}
