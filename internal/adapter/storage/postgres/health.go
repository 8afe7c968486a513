package postgres

import (
	"context"
	"errors"
)

// ledgerTables must exist for the service to accept traffic.
var ledgerTables = []string{
	"wallet_balances",
	"ledger_entries",
	"payment_requests",
	"payout_requests",
	"category_allowances",
	"merchant_categories",
	"employee_directory",
}

// HealthCheck reports whether the ledger schema is reachable and migrated.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	var missing int
	err := h.pool.QueryRow(ctx,
		`SELECT count(*) FROM unnest($1::text[]) AS t(name) WHERE to_regclass(t.name) IS NULL`,
		ledgerTables,
	).Scan(&missing)
	if err != nil {
		return err
	}
	if missing > 0 {
		return errors.New("ledger schema not migrated")
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgresql"
}
