package postgres

import (
	"context"
	"fmt"
	"strings"

	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. Rows are only ever inserted.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

const ledgerColumns = `id, type, sender_id, receiver_id, amount::text, status, related_request, metadata,
	sender_balance_before::text, sender_balance_after::text,
	receiver_balance_before::text, receiver_balance_after::text, created_at`

// Append inserts a ledger entry within a transaction.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	meta, err := marshalMetadata(e.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO ledger_entries (id, type, sender_id, receiver_id, amount, status, related_request, metadata,
		sender_balance_before, sender_balance_after, receiver_balance_before, receiver_balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9::numeric, $10::numeric, $11::numeric, $12::numeric, $13)`

	_, err = tx.Exec(ctx, query,
		e.ID, e.Type, e.SenderID, e.ReceiverID, e.Amount.String(), e.Status, e.RelatedRequest, meta,
		optionalNumeric(e.SenderBalanceBefore), optionalNumeric(e.SenderBalanceAfter),
		optionalNumeric(e.ReceiverBalanceBefore), optionalNumeric(e.ReceiverBalanceAfter),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListByAccount fetches entries where the account is sender or receiver,
// newest first.
func (r *LedgerRepo) ListByAccount(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("(sender_id = $%d OR receiver_id = $%d)", argIdx, argIdx))
	args = append(args, params.AccountID)
	argIdx++

	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM ledger_entries %s", where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM ledger_entries %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		ledgerColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e              domain.LedgerEntry
			amount         string
			meta           []byte
			sb, sa, rb, ra *string
		)
		if err := rows.Scan(
			&e.ID, &e.Type, &e.SenderID, &e.ReceiverID, &amount, &e.Status, &e.RelatedRequest, &meta,
			&sb, &sa, &rb, &ra, &e.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan ledger row: %w", err)
		}
		if e.Amount, err = parseNumeric(amount); err != nil {
			return nil, 0, err
		}
		if e.Metadata, err = unmarshalMetadata(meta); err != nil {
			return nil, 0, err
		}
		if e.SenderBalanceBefore, err = parseOptionalNumeric(sb); err != nil {
			return nil, 0, err
		}
		if e.SenderBalanceAfter, err = parseOptionalNumeric(sa); err != nil {
			return nil, 0, err
		}
		if e.ReceiverBalanceBefore, err = parseOptionalNumeric(rb); err != nil {
			return nil, 0, err
		}
		if e.ReceiverBalanceAfter, err = parseOptionalNumeric(ra); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, total, nil
}
