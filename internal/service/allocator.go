package service

import (
	"context"
	"fmt"

	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// allocator performs transaction-scoped allowance movements. It is the
// category counterpart of funds: AllowanceService and the payment request
// settle step both go through it.
type allocator struct {
	allowances ports.AllowanceRepository
}

func (a allocator) consume(ctx context.Context, tx pgx.Tx, employeeID, categoryID int64, amount decimal.Decimal) (bool, error) {
	applied, err := a.allowances.Adjust(ctx, tx, employeeID, categoryID, domain.Consume(amount))
	if err != nil {
		return false, fmt.Errorf("consume allowance %d/%d: %w", employeeID, categoryID, err)
	}
	return applied, nil
}

func (a allocator) release(ctx context.Context, tx pgx.Tx, employeeID, categoryID int64, amount decimal.Decimal) error {
	if _, err := a.allowances.Adjust(ctx, tx, employeeID, categoryID, domain.Release(amount)); err != nil {
		return fmt.Errorf("release allowance %d/%d: %w", employeeID, categoryID, err)
	}
	return nil
}

// reservation is a consume whose undo is the matching release.
func (a allocator) reservation(tx pgx.Tx, employeeID, categoryID int64, amount decimal.Decimal) provisional {
	return provisional{
		name: "consume allowance",
		apply: func(ctx context.Context) (bool, error) {
			return a.consume(ctx, tx, employeeID, categoryID, amount)
		},
		undo: func(ctx context.Context) error {
			return a.release(ctx, tx, employeeID, categoryID, amount)
		},
	}
}
