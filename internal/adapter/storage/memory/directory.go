package memory

import (
	"context"
	"sort"

	"company-wallet/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// MerchantCategoryRepo implements ports.MerchantCategoryRepository.
type MerchantCategoryRepo struct {
	db *DB
}

// NewMerchantCategoryRepo creates a MerchantCategoryRepo over db.
func NewMerchantCategoryRepo(db *DB) *MerchantCategoryRepo {
	return &MerchantCategoryRepo{db: db}
}

func (r *MerchantCategoryRepo) IsAssigned(ctx context.Context, merchantID, categoryID int64) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	_, ok := r.db.merchantCategories[merchantID][categoryID]
	return ok, nil
}

func (r *MerchantCategoryRepo) ListByMerchant(ctx context.Context, merchantID int64) ([]int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var ids []int64
	for id := range r.db.merchantCategories[merchantID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *MerchantCategoryRepo) Replace(ctx context.Context, tx pgx.Tx, merchantID int64, categoryIDs []int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	prev, had := r.db.merchantCategories[merchantID]
	record(tx, func() {
		if had {
			r.db.merchantCategories[merchantID] = prev
		} else {
			delete(r.db.merchantCategories, merchantID)
		}
	})

	set := make(map[int64]struct{}, len(categoryIDs))
	for _, id := range categoryIDs {
		set[id] = struct{}{}
	}
	r.db.merchantCategories[merchantID] = set
	return nil
}

// DirectoryRepo implements ports.DirectoryRepository. Entries are seeded
// with DB.PutDirectoryEntry.
type DirectoryRepo struct {
	db *DB
}

// NewDirectoryRepo creates a DirectoryRepo over db.
func NewDirectoryRepo(db *DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

func (r *DirectoryRepo) GetByNationalID(ctx context.Context, nationalID string) (*domain.DirectoryEntry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, e := range r.db.directory {
		if e.NationalID == nationalID {
			out := e
			return &out, nil
		}
	}
	return nil, nil
}

func (r *DirectoryRepo) GetByAccountID(ctx context.Context, accountID int64) (*domain.DirectoryEntry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	e, ok := r.db.directory[accountID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}
