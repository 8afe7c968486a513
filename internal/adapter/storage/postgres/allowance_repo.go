package postgres

import (
	"context"
	"errors"
	"fmt"

	"company-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AllowanceRepo implements ports.AllowanceRepository.
type AllowanceRepo struct {
	pool Pool
}

// NewAllowanceRepo creates a new AllowanceRepo.
func NewAllowanceRepo(pool Pool) *AllowanceRepo {
	return &AllowanceRepo{pool: pool}
}

const allowanceColumns = `employee_id, category_id, company_id, spending_limit::text, spent_amount::text, updated_at`

// Adjust changes spent_amount in one conditional UPDATE. A missing row never
// matches, which makes a consume against an unknown pair fail as limit 0.
func (r *AllowanceRepo) Adjust(ctx context.Context, tx pgx.Tx, employeeID, categoryID int64, adj domain.Adjustment) (bool, error) {
	var query string
	switch adj.Guard {
	case domain.GuardWithinLimit:
		query = `UPDATE category_allowances SET spent_amount = spent_amount + $3::numeric, updated_at = NOW()
			WHERE employee_id = $1 AND category_id = $2 AND spending_limit >= spent_amount + $3::numeric`
	case domain.GuardFloorZero:
		query = `UPDATE category_allowances SET spent_amount = GREATEST(spent_amount + $3::numeric, 0), updated_at = NOW()
			WHERE employee_id = $1 AND category_id = $2`
	case domain.GuardNone, domain.GuardNonNegative:
		return false, fmt.Errorf("allowance adjust: unsupported guard %s", adj.Guard)
	default:
		return false, fmt.Errorf("allowance adjust: unknown guard %d", adj.Guard)
	}

	tag, err := tx.Exec(ctx, query, employeeID, categoryID, adj.Delta.String())
	if err != nil {
		return false, fmt.Errorf("adjust allowance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get fetches one allowance row. Returns nil, nil if it does not exist.
func (r *AllowanceRepo) Get(ctx context.Context, employeeID, categoryID int64) (*domain.CategoryAllowance, error) {
	query := `SELECT ` + allowanceColumns + ` FROM category_allowances
		WHERE employee_id = $1 AND category_id = $2`

	a, err := scanAllowance(r.pool.QueryRow(ctx, query, employeeID, categoryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get allowance: %w", err)
	}
	return a, nil
}

// ListByEmployee returns all allowances of an employee ordered by category.
func (r *AllowanceRepo) ListByEmployee(ctx context.Context, employeeID int64) ([]domain.CategoryAllowance, error) {
	query := `SELECT ` + allowanceColumns + ` FROM category_allowances
		WHERE employee_id = $1 ORDER BY category_id`

	rows, err := r.pool.Query(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("list allowances: %w", err)
	}
	defer rows.Close()

	var out []domain.CategoryAllowance
	for rows.Next() {
		a, err := scanAllowance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan allowance row: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allowance rows: %w", err)
	}
	return out, nil
}

// Upsert inserts or updates a limit. On update spent_amount is clamped to
// the new limit so it can never exceed it.
func (r *AllowanceRepo) Upsert(ctx context.Context, tx pgx.Tx, a *domain.CategoryAllowance) error {
	query := `INSERT INTO category_allowances (employee_id, category_id, company_id, spending_limit, spent_amount, updated_at)
		VALUES ($1, $2, $3, $4::numeric, 0, NOW())
		ON CONFLICT (employee_id, category_id) DO UPDATE SET
			company_id = EXCLUDED.company_id,
			spending_limit = EXCLUDED.spending_limit,
			spent_amount = LEAST(category_allowances.spent_amount, EXCLUDED.spending_limit),
			updated_at = NOW()`

	_, err := tx.Exec(ctx, query, a.EmployeeID, a.CategoryID, a.CompanyID, a.SpendingLimit.String())
	if err != nil {
		return fmt.Errorf("upsert allowance: %w", err)
	}
	return nil
}

func scanAllowance(row pgx.Row) (*domain.CategoryAllowance, error) {
	var (
		a            domain.CategoryAllowance
		limit, spent string
	)
	if err := row.Scan(&a.EmployeeID, &a.CategoryID, &a.CompanyID, &limit, &spent, &a.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.SpendingLimit, err = parseNumeric(limit); err != nil {
		return nil, err
	}
	if a.SpentAmount, err = parseNumeric(spent); err != nil {
		return nil, err
	}
	return &a, nil
}
