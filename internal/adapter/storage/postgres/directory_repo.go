package postgres

import (
	"context"
	"errors"
	"fmt"

	"company-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// DirectoryRepo implements ports.DirectoryRepository over the employee
// directory table maintained by the provisioning import.
type DirectoryRepo struct {
	pool Pool
}

// NewDirectoryRepo creates a new DirectoryRepo.
func NewDirectoryRepo(pool Pool) *DirectoryRepo {
	return &DirectoryRepo{pool: pool}
}

// GetByNationalID resolves an employee by national id. Returns nil, nil if absent.
func (r *DirectoryRepo) GetByNationalID(ctx context.Context, nationalID string) (*domain.DirectoryEntry, error) {
	return r.get(ctx, `SELECT account_id, national_id, mobile, company_id
		FROM employee_directory WHERE national_id = $1`, nationalID)
}

// GetByAccountID resolves an employee by account id. Returns nil, nil if absent.
func (r *DirectoryRepo) GetByAccountID(ctx context.Context, accountID int64) (*domain.DirectoryEntry, error) {
	return r.get(ctx, `SELECT account_id, national_id, mobile, company_id
		FROM employee_directory WHERE account_id = $1`, accountID)
}

func (r *DirectoryRepo) get(ctx context.Context, query string, arg any) (*domain.DirectoryEntry, error) {
	var e domain.DirectoryEntry
	err := r.pool.QueryRow(ctx, query, arg).Scan(&e.AccountID, &e.NationalID, &e.Mobile, &e.CompanyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get directory entry: %w", err)
	}
	return &e, nil
}
