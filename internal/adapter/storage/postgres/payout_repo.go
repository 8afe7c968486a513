package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PayoutRepo implements ports.PayoutRepository.
type PayoutRepo struct {
	pool Pool
}

// NewPayoutRepo creates a new PayoutRepo.
func NewPayoutRepo(pool Pool) *PayoutRepo {
	return &PayoutRepo{pool: pool}
}

const payoutColumns = `id, merchant_id, amount::text, bank_account, status, approved_by, approved_at,
	processed_at, notes, created_at, updated_at`

// Create inserts a payout request within a transaction.
func (r *PayoutRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PayoutRequest) error {
	query := `INSERT INTO payout_requests (id, merchant_id, amount, bank_account, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.MerchantID, p.Amount.String(), p.BankAccount, p.Status, p.Notes, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payout request: %w", err)
	}
	return nil
}

// Delete removes a payout row. Only used to undo an insert whose escrow
// debit did not go through.
func (r *PayoutRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM payout_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payout request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payout request not found: %s", id)
	}
	return nil
}

// GetByID fetches a payout request. Returns nil, nil if absent.
func (r *PayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error) {
	query := `SELECT ` + payoutColumns + ` FROM payout_requests WHERE id = $1`

	p, err := scanPayout(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payout request: %w", err)
	}
	return p, nil
}

// Transition applies a status change only if the current status is one of
// t.From. Returns nil, nil when nothing matched, which is how a second
// concurrent rejection learns it lost.
func (r *PayoutRepo) Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, t domain.PayoutTransition) (*domain.PayoutRequest, error) {
	from := make([]string, len(t.From))
	for i, s := range t.From {
		from[i] = string(s)
	}

	query := `UPDATE payout_requests SET
			status = $2,
			approved_by = COALESCE($3, approved_by),
			approved_at = COALESCE($4, approved_at),
			processed_at = COALESCE($5, processed_at),
			notes = COALESCE($6, notes),
			updated_at = NOW()
		WHERE id = $1 AND status = ANY($7)
		RETURNING ` + payoutColumns

	p, err := scanPayout(tx.QueryRow(ctx, query,
		id, t.To, t.ApprovedBy, t.ApprovedAt, t.ProcessedAt, t.Notes, from,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("transition payout request: %w", err)
	}
	return p, nil
}

// List returns payouts newest first, optionally filtered by merchant and status.
func (r *PayoutRepo) List(ctx context.Context, params ports.PayoutListParams) ([]domain.PayoutRequest, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.MerchantID != 0 {
		conditions = append(conditions, fmt.Sprintf("merchant_id = $%d", argIdx))
		args = append(args, params.MerchantID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM payout_requests %s ORDER BY created_at DESC LIMIT $%d`, payoutColumns, where, argIdx)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payout requests: %w", err)
	}
	defer rows.Close()

	var out []domain.PayoutRequest
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout row: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payout rows: %w", err)
	}
	return out, nil
}

func scanPayout(row pgx.Row) (*domain.PayoutRequest, error) {
	var (
		p      domain.PayoutRequest
		amount string
	)
	if err := row.Scan(
		&p.ID, &p.MerchantID, &amount, &p.BankAccount, &p.Status, &p.ApprovedBy, &p.ApprovedAt,
		&p.ProcessedAt, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	var err error
	if p.Amount, err = parseNumeric(amount); err != nil {
		return nil, err
	}
	return &p, nil
}
