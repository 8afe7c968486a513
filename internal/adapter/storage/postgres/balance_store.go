package postgres

import (
	"context"
	"errors"
	"fmt"

	"company-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// BalanceStore implements ports.BalanceStore.
type BalanceStore struct {
	pool     Pool
	currency string
}

// NewBalanceStore creates a new BalanceStore. currency tags lazily created rows.
func NewBalanceStore(pool Pool, currency string) *BalanceStore {
	return &BalanceStore{pool: pool, currency: currency}
}

const ensureBalanceSQL = `INSERT INTO wallet_balances (account_id, balance, currency, updated_at)
	VALUES ($1, 0, $2, NOW())
	ON CONFLICT (account_id) DO NOTHING`

// Get returns the balance for accountID. A missing row is created at zero;
// a concurrent creator simply wins the conflict and the row is re-read.
func (s *BalanceStore) Get(ctx context.Context, accountID int64) (*domain.WalletBalance, error) {
	if _, err := s.pool.Exec(ctx, ensureBalanceSQL, accountID, s.currency); err != nil {
		return nil, fmt.Errorf("ensure wallet balance: %w", err)
	}

	query := `SELECT account_id, balance::text, currency, updated_at
		FROM wallet_balances WHERE account_id = $1`

	var (
		w   domain.WalletBalance
		raw string
	)
	err := s.pool.QueryRow(ctx, query, accountID).Scan(&w.AccountID, &raw, &w.Currency, &w.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get wallet balance: %w", err)
	}
	if w.Balance, err = parseNumeric(raw); err != nil {
		return nil, err
	}
	return &w, nil
}

// Adjust applies adj to the balance in one conditional UPDATE.
// The guard is part of the WHERE clause, so concurrent debits can never
// drive the balance below zero.
func (s *BalanceStore) Adjust(ctx context.Context, tx pgx.Tx, accountID int64, adj domain.Adjustment) (domain.BalanceChange, bool, error) {
	change := domain.BalanceChange{AccountID: accountID}

	var query string
	switch adj.Guard {
	case domain.GuardNone:
		query = `UPDATE wallet_balances SET balance = balance + $2::numeric, updated_at = NOW()
			WHERE account_id = $1 RETURNING balance::text`
	case domain.GuardNonNegative:
		query = `UPDATE wallet_balances SET balance = balance + $2::numeric, updated_at = NOW()
			WHERE account_id = $1 AND balance + $2::numeric >= 0 RETURNING balance::text`
	case domain.GuardWithinLimit, domain.GuardFloorZero:
		return change, false, fmt.Errorf("balance adjust: unsupported guard %s", adj.Guard)
	default:
		return change, false, fmt.Errorf("balance adjust: unknown guard %d", adj.Guard)
	}

	if _, err := tx.Exec(ctx, ensureBalanceSQL, accountID, s.currency); err != nil {
		return change, false, fmt.Errorf("ensure wallet balance: %w", err)
	}

	var raw string
	err := tx.QueryRow(ctx, query, accountID, adj.Delta.String()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return change, false, nil
		}
		return change, false, fmt.Errorf("adjust wallet balance: %w", err)
	}

	after, err := parseNumeric(raw)
	if err != nil {
		return change, false, err
	}
	change.After = after
	change.Before = after.Sub(adj.Delta)
	return change, true, nil
}
