package postgres

import (
	"context"
	"errors"
	"fmt"

	"company-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRequestRepo implements ports.PaymentRequestRepository.
type PaymentRequestRepo struct {
	pool Pool
}

// NewPaymentRequestRepo creates a new PaymentRequestRepo.
func NewPaymentRequestRepo(pool Pool) *PaymentRequestRepo {
	return &PaymentRequestRepo{pool: pool}
}

const paymentRequestColumns = `id, merchant_id, employee_id, category_id, amount::text, otp, otp_expires_at,
	failed_attempts, locked_at, status, metadata, created_at, updated_at`

// Create inserts a new pending payment request.
func (r *PaymentRequestRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.PaymentRequest) error {
	meta, err := marshalMetadata(req.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO payment_requests (id, merchant_id, employee_id, category_id, amount, otp, otp_expires_at,
		failed_attempts, locked_at, status, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = tx.Exec(ctx, query,
		req.ID, req.MerchantID, req.EmployeeID, req.CategoryID, req.Amount.String(), req.OTP, req.OTPExpiresAt,
		req.FailedAttempts, req.LockedAt, req.Status, meta, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment request: %w", err)
	}
	return nil
}

// GetByID fetches a payment request without locking.
func (r *PaymentRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE id = $1`
	return r.scan(r.pool.QueryRow(ctx, query, id), "get payment request")
}

// GetByIDForUpdate fetches a payment request and locks its row until the
// transaction ends, serializing concurrent confirmations of the same request.
func (r *PaymentRequestRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE id = $1 FOR UPDATE`
	return r.scan(tx.QueryRow(ctx, query, id), "get payment request for update")
}

// MarkExpired moves a pending request to expired.
func (r *PaymentRequestRepo) MarkExpired(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	query := `UPDATE payment_requests SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3`

	tag, err := tx.Exec(ctx, query, id, domain.PaymentStatusExpired, domain.PaymentStatusPending)
	if err != nil {
		return false, fmt.Errorf("expire payment request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordFailedAttempt increments failed_attempts atomically and locks the
// request once the count reaches maxAttempts. Returns nil, nil when the
// request is no longer pending.
func (r *PaymentRequestRepo) RecordFailedAttempt(ctx context.Context, tx pgx.Tx, id uuid.UUID, maxAttempts int) (*domain.AttemptOutcome, error) {
	query := `UPDATE payment_requests SET
			failed_attempts = failed_attempts + 1,
			locked_at = CASE WHEN failed_attempts + 1 >= $2 THEN NOW() ELSE locked_at END,
			status = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE status END,
			updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING failed_attempts, status`

	var (
		out    domain.AttemptOutcome
		status domain.PaymentStatus
	)
	err := tx.QueryRow(ctx, query, id, maxAttempts, domain.PaymentStatusLocked, domain.PaymentStatusPending).
		Scan(&out.FailedAttempts, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("record failed otp attempt: %w", err)
	}
	out.Locked = status == domain.PaymentStatusLocked
	return &out, nil
}

// MarkCompleted moves a pending request to completed, resets the attempt
// counter and merges metadata into the stored object.
func (r *PaymentRequestRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, metadata map[string]any) (bool, error) {
	meta, err := marshalMetadata(metadata)
	if err != nil {
		return false, err
	}

	query := `UPDATE payment_requests SET status = $2, failed_attempts = 0,
			metadata = metadata || $3::jsonb, updated_at = NOW()
		WHERE id = $1 AND status = $4`

	tag, err := tx.Exec(ctx, query, id, domain.PaymentStatusCompleted, meta, domain.PaymentStatusPending)
	if err != nil {
		return false, fmt.Errorf("complete payment request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRequestRepo) scan(row pgx.Row, op string) (*domain.PaymentRequest, error) {
	var (
		req    domain.PaymentRequest
		amount string
		meta   []byte
	)
	err := row.Scan(
		&req.ID, &req.MerchantID, &req.EmployeeID, &req.CategoryID, &amount, &req.OTP, &req.OTPExpiresAt,
		&req.FailedAttempts, &req.LockedAt, &req.Status, &meta, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if req.Amount, err = parseNumeric(amount); err != nil {
		return nil, err
	}
	if req.Metadata, err = unmarshalMetadata(meta); err != nil {
		return nil, err
	}
	return &req, nil
}
