package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// MerchantCategoryRepo implements ports.MerchantCategoryRepository.
type MerchantCategoryRepo struct {
	pool Pool
}

// NewMerchantCategoryRepo creates a new MerchantCategoryRepo.
func NewMerchantCategoryRepo(pool Pool) *MerchantCategoryRepo {
	return &MerchantCategoryRepo{pool: pool}
}

// IsAssigned reports whether the merchant may charge against the category.
func (r *MerchantCategoryRepo) IsAssigned(ctx context.Context, merchantID, categoryID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM merchant_categories WHERE merchant_id = $1 AND category_id = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, merchantID, categoryID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check merchant category: %w", err)
	}
	return exists, nil
}

// ListByMerchant returns the merchant's category ids in ascending order.
func (r *MerchantCategoryRepo) ListByMerchant(ctx context.Context, merchantID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category_id FROM merchant_categories WHERE merchant_id = $1 ORDER BY category_id`, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list merchant categories: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan merchant category: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merchant categories: %w", err)
	}
	return ids, nil
}

// Replace swaps the merchant's full category set within a transaction.
func (r *MerchantCategoryRepo) Replace(ctx context.Context, tx pgx.Tx, merchantID int64, categoryIDs []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM merchant_categories WHERE merchant_id = $1`, merchantID); err != nil {
		return fmt.Errorf("clear merchant categories: %w", err)
	}
	for _, id := range categoryIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO merchant_categories (merchant_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			merchantID, id)
		if err != nil {
			return fmt.Errorf("insert merchant category %d: %w", id, err)
		}
	}
	return nil
}
