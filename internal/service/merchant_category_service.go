package service

import (
	"context"
	"sort"

	"company-wallet/internal/core/ports"
	"company-wallet/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// MerchantCategoryServiceImpl implements ports.MerchantCategoryService.
type MerchantCategoryServiceImpl struct {
	repo       ports.MerchantCategoryRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewMerchantCategoryService creates a new MerchantCategoryServiceImpl.
func NewMerchantCategoryService(repo ports.MerchantCategoryRepository, transactor ports.DBTransactor, log zerolog.Logger) *MerchantCategoryServiceImpl {
	return &MerchantCategoryServiceImpl{repo: repo, transactor: transactor, log: log}
}

// Assign replaces the merchant's category set.
func (s *MerchantCategoryServiceImpl) Assign(ctx context.Context, merchantID int64, categoryIDs []int64) error {
	if merchantID <= 0 {
		return apperror.Validation("merchant_id is required")
	}

	seen := make(map[int64]struct{}, len(categoryIDs))
	ids := make([]int64, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		if id <= 0 {
			return apperror.Validation("category ids must be positive")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	err := runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
		if err := s.repo.Replace(ctx, tx, merchantID, ids); err != nil {
			return storageErr("replace merchant categories", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().Int64("merchant_id", merchantID).Ints64("categories", ids).Msg("merchant categories assigned")
	return nil
}

func (s *MerchantCategoryServiceImpl) List(ctx context.Context, merchantID int64) ([]int64, error) {
	ids, err := s.repo.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, storageErr("list merchant categories", err)
	}
	return ids, nil
}

func (s *MerchantCategoryServiceImpl) IsAuthorized(ctx context.Context, merchantID, categoryID int64) (bool, error) {
	ok, err := s.repo.IsAssigned(ctx, merchantID, categoryID)
	if err != nil {
		return false, storageErr("check merchant category", err)
	}
	return ok, nil
}
