package memory

import (
	"context"
	"sort"
	"time"

	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceStore implements ports.BalanceStore.
type BalanceStore struct {
	db *DB
}

// NewBalanceStore creates a BalanceStore over db.
func NewBalanceStore(db *DB) *BalanceStore {
	return &BalanceStore{db: db}
}

// ensure returns the row for accountID, creating it at zero. Callers hold db.mu.
func (s *BalanceStore) ensure(accountID int64) (*domain.WalletBalance, bool) {
	w, ok := s.db.balances[accountID]
	if ok {
		return w, false
	}
	w = &domain.WalletBalance{
		AccountID: accountID,
		Balance:   decimal.Zero,
		Currency:  s.db.currency,
		UpdatedAt: time.Now().UTC(),
	}
	s.db.balances[accountID] = w
	return w, true
}

func (s *BalanceStore) Get(ctx context.Context, accountID int64) (*domain.WalletBalance, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	w, _ := s.ensure(accountID)
	out := *w
	return &out, nil
}

// Adjust applies adj to the balance under the store lock, which is the
// in-memory equivalent of a single conditional UPDATE.
func (s *BalanceStore) Adjust(ctx context.Context, tx pgx.Tx, accountID int64, adj domain.Adjustment) (domain.BalanceChange, bool, error) {
	change := domain.BalanceChange{AccountID: accountID}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	w, created := s.ensure(accountID)
	if created {
		record(tx, func() { delete(s.db.balances, accountID) })
	}

	next, ok := adj.Apply(w.Balance, decimal.Zero)
	if !ok {
		return change, false, nil
	}

	prev, prevUpdated := w.Balance, w.UpdatedAt
	record(tx, func() {
		if row, exists := s.db.balances[accountID]; exists {
			row.Balance, row.UpdatedAt = prev, prevUpdated
		}
	})

	w.Balance = next
	w.UpdatedAt = time.Now().UTC()
	change.Before, change.After = prev, next
	return change, true, nil
}

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	db *DB
}

// NewLedgerRepo creates a LedgerRepo over db.
func NewLedgerRepo(db *DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	n := len(r.db.ledger)
	r.db.ledger = append(r.db.ledger, copyEntry(*e))
	record(tx, func() { r.db.ledger = r.db.ledger[:n] })
	return nil
}

func (r *LedgerRepo) ListByAccount(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var matched []domain.LedgerEntry
	for i := len(r.db.ledger) - 1; i >= 0; i-- {
		e := r.db.ledger[i]
		if e.SenderID != params.AccountID && e.ReceiverID != params.AccountID {
			continue
		}
		if params.Type != nil && e.Type != *params.Type {
			continue
		}
		matched = append(matched, copyEntry(e))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start < 0 || start >= len(matched) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func copyEntry(e domain.LedgerEntry) domain.LedgerEntry {
	e.Metadata = copyMetadata(e.Metadata)
	return e
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
