package memory

import (
	"context"
	"sort"
	"time"

	"company-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AllowanceRepo implements ports.AllowanceRepository.
type AllowanceRepo struct {
	db *DB
}

// NewAllowanceRepo creates an AllowanceRepo over db.
func NewAllowanceRepo(db *DB) *AllowanceRepo {
	return &AllowanceRepo{db: db}
}

func (r *AllowanceRepo) Adjust(ctx context.Context, tx pgx.Tx, employeeID, categoryID int64, adj domain.Adjustment) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	a, ok := r.db.allowances[allowanceKey{employeeID, categoryID}]
	if !ok {
		return false, nil
	}
	next, ok := adj.Apply(a.SpentAmount, a.SpendingLimit)
	if !ok {
		return false, nil
	}

	prev, prevUpdated := a.SpentAmount, a.UpdatedAt
	record(tx, func() { a.SpentAmount, a.UpdatedAt = prev, prevUpdated })

	a.SpentAmount = next
	a.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *AllowanceRepo) Get(ctx context.Context, employeeID, categoryID int64) (*domain.CategoryAllowance, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	a, ok := r.db.allowances[allowanceKey{employeeID, categoryID}]
	if !ok {
		return nil, nil
	}
	out := *a
	return &out, nil
}

func (r *AllowanceRepo) ListByEmployee(ctx context.Context, employeeID int64) ([]domain.CategoryAllowance, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []domain.CategoryAllowance
	for k, a := range r.db.allowances {
		if k.employeeID == employeeID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (r *AllowanceRepo) Upsert(ctx context.Context, tx pgx.Tx, in *domain.CategoryAllowance) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := allowanceKey{in.EmployeeID, in.CategoryID}
	now := time.Now().UTC()

	existing, ok := r.db.allowances[key]
	if !ok {
		row := &domain.CategoryAllowance{
			EmployeeID:    in.EmployeeID,
			CategoryID:    in.CategoryID,
			CompanyID:     in.CompanyID,
			SpendingLimit: domain.NormalizeAmount(in.SpendingLimit),
			UpdatedAt:     now,
		}
		r.db.allowances[key] = row
		record(tx, func() { delete(r.db.allowances, key) })
		return nil
	}

	prev := *existing
	record(tx, func() { *existing = prev })

	existing.CompanyID = in.CompanyID
	existing.ApplyLimit(in.SpendingLimit)
	existing.UpdatedAt = now
	return nil
}
