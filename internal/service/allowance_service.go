package service

import (
	"context"
	"fmt"

	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"
	"company-wallet/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// AllowanceServiceImpl implements ports.AllowanceService.
type AllowanceServiceImpl struct {
	repo       ports.AllowanceRepository
	alloc      allocator
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewAllowanceService creates a new AllowanceServiceImpl.
func NewAllowanceService(repo ports.AllowanceRepository, transactor ports.DBTransactor, log zerolog.Logger) *AllowanceServiceImpl {
	return &AllowanceServiceImpl{repo: repo, alloc: allocator{allowances: repo}, transactor: transactor, log: log}
}

// Consume adds amount to the spent total if it stays within the limit.
// A missing allowance behaves as a zero limit.
func (s *AllowanceServiceImpl) Consume(ctx context.Context, employeeID, categoryID int64, amount decimal.Decimal) (bool, error) {
	if !domain.IsPositiveAmount(amount) {
		return false, apperror.ErrInvalidAmount()
	}
	var applied bool
	err := runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
		var err error
		applied, err = s.alloc.consume(ctx, tx, employeeID, categoryID, amount)
		if err != nil {
			return storageErr("consume allowance", err)
		}
		return nil
	})
	return applied, err
}

// Release subtracts amount from the spent total, floored at zero.
func (s *AllowanceServiceImpl) Release(ctx context.Context, employeeID, categoryID int64, amount decimal.Decimal) error {
	if !domain.IsPositiveAmount(amount) {
		return apperror.ErrInvalidAmount()
	}
	return runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
		if err := s.alloc.release(ctx, tx, employeeID, categoryID, amount); err != nil {
			return storageErr("release allowance", err)
		}
		return nil
	})
}

// Remaining is informational only; Consume is the authoritative check.
func (s *AllowanceServiceImpl) Remaining(ctx context.Context, employeeID, categoryID int64) (decimal.Decimal, error) {
	a, err := s.repo.Get(ctx, employeeID, categoryID)
	if err != nil {
		return decimal.Zero, storageErr("get allowance", err)
	}
	return a.Remaining(), nil
}

// SetLimits upserts every limit in one transaction. Entries with a
// non-positive category are skipped.
func (s *AllowanceServiceImpl) SetLimits(ctx context.Context, employeeID, companyID int64, limits []domain.LimitSpec) error {
	if employeeID <= 0 {
		return apperror.Validation("employee_id is required")
	}
	for _, l := range limits {
		if l.Limit.IsNegative() || !domain.FitsAmountColumn(l.Limit) {
			return apperror.Validation(fmt.Sprintf("limit for category %d must not be negative", l.CategoryID))
		}
	}

	applied := 0
	err := runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
		for _, l := range limits {
			if l.CategoryID <= 0 {
				continue
			}
			err := s.repo.Upsert(ctx, tx, &domain.CategoryAllowance{
				EmployeeID:    employeeID,
				CategoryID:    l.CategoryID,
				CompanyID:     companyID,
				SpendingLimit: domain.NormalizeAmount(l.Limit),
			})
			if err != nil {
				return storageErr("upsert allowance", err)
			}
			applied++
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Int64("employee_id", employeeID).
		Int64("company_id", companyID).
		Int("categories", applied).
		Msg("allowance limits updated")
	return nil
}

func (s *AllowanceServiceImpl) ListLimits(ctx context.Context, employeeID int64) ([]domain.CategoryAllowance, error) {
	list, err := s.repo.ListByEmployee(ctx, employeeID)
	if err != nil {
		return nil, storageErr("list allowances", err)
	}
	return list, nil
}
