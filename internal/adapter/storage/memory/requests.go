package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentRequestRepo implements ports.PaymentRequestRepository.
type PaymentRequestRepo struct {
	db *DB
}

// NewPaymentRequestRepo creates a PaymentRequestRepo over db.
func NewPaymentRequestRepo(db *DB) *PaymentRequestRepo {
	return &PaymentRequestRepo{db: db}
}

func (r *PaymentRequestRepo) Create(ctx context.Context, tx pgx.Tx, req *domain.PaymentRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.payments[req.ID]; exists {
		return fmt.Errorf("payment request %s already exists", req.ID)
	}
	row := copyPayment(req)
	r.db.payments[req.ID] = row
	record(tx, func() { delete(r.db.payments, req.ID) })
	return nil
}

func (r *PaymentRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRequest, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	req, ok := r.db.payments[id]
	if !ok {
		return nil, nil
	}
	return copyPayment(req), nil
}

// GetByIDForUpdate needs no row lock: the open transaction already excludes
// every other writer.
func (r *PaymentRequestRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PaymentRequest, error) {
	return r.GetByID(ctx, id)
}

func (r *PaymentRequestRepo) MarkExpired(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	return r.update(tx, id, func(req *domain.PaymentRequest) {
		req.Status = domain.PaymentStatusExpired
	}), nil
}

func (r *PaymentRequestRepo) RecordFailedAttempt(ctx context.Context, tx pgx.Tx, id uuid.UUID, maxAttempts int) (*domain.AttemptOutcome, error) {
	var out *domain.AttemptOutcome
	r.update(tx, id, func(req *domain.PaymentRequest) {
		req.FailedAttempts++
		if req.FailedAttempts >= maxAttempts {
			now := time.Now().UTC()
			req.LockedAt = &now
			req.Status = domain.PaymentStatusLocked
		}
		out = &domain.AttemptOutcome{
			FailedAttempts: req.FailedAttempts,
			Locked:         req.Status == domain.PaymentStatusLocked,
		}
	})
	return out, nil
}

func (r *PaymentRequestRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, metadata map[string]any) (bool, error) {
	return r.update(tx, id, func(req *domain.PaymentRequest) {
		req.Status = domain.PaymentStatusCompleted
		req.FailedAttempts = 0
		if req.Metadata == nil {
			req.Metadata = map[string]any{}
		}
		for k, v := range metadata {
			req.Metadata[k] = v
		}
	}), nil
}

// update applies fn to a pending request and journals the previous row.
func (r *PaymentRequestRepo) update(tx pgx.Tx, id uuid.UUID, fn func(*domain.PaymentRequest)) bool {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	req, ok := r.db.payments[id]
	if !ok || req.Status != domain.PaymentStatusPending {
		return false
	}
	prev := copyPayment(req)
	record(tx, func() { r.db.payments[id] = prev })

	fn(req)
	req.UpdatedAt = time.Now().UTC()
	return true
}

func copyPayment(req *domain.PaymentRequest) *domain.PaymentRequest {
	out := *req
	out.Metadata = copyMetadata(req.Metadata)
	return &out
}

// PayoutRepo implements ports.PayoutRepository.
type PayoutRepo struct {
	db *DB
}

// NewPayoutRepo creates a PayoutRepo over db.
func NewPayoutRepo(db *DB) *PayoutRepo {
	return &PayoutRepo{db: db}
}

func (r *PayoutRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PayoutRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.payouts[p.ID]; exists {
		return fmt.Errorf("payout request %s already exists", p.ID)
	}
	row := *p
	r.db.payouts[p.ID] = &row
	record(tx, func() { delete(r.db.payouts, p.ID) })
	return nil
}

func (r *PayoutRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	row, ok := r.db.payouts[id]
	if !ok {
		return fmt.Errorf("payout request not found: %s", id)
	}
	delete(r.db.payouts, id)
	record(tx, func() { r.db.payouts[id] = row })
	return nil
}

func (r *PayoutRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	p, ok := r.db.payouts[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (r *PayoutRepo) Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, t domain.PayoutTransition) (*domain.PayoutRequest, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.payouts[id]
	if !ok || !containsStatus(t.From, p.Status) {
		return nil, nil
	}
	prev := *p
	record(tx, func() { *p = prev })

	p.Status = t.To
	if t.ApprovedBy != nil {
		p.ApprovedBy = t.ApprovedBy
	}
	if t.ApprovedAt != nil {
		p.ApprovedAt = t.ApprovedAt
	}
	if t.ProcessedAt != nil {
		p.ProcessedAt = t.ProcessedAt
	}
	if t.Notes != nil {
		p.Notes = t.Notes
	}
	p.UpdatedAt = time.Now().UTC()

	out := *p
	return &out, nil
}

func (r *PayoutRepo) List(ctx context.Context, params ports.PayoutListParams) ([]domain.PayoutRequest, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []domain.PayoutRequest
	for _, p := range r.db.payouts {
		if params.MerchantID != 0 && p.MerchantID != params.MerchantID {
			continue
		}
		if params.Status != nil && p.Status != *params.Status {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	limit := params.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func containsStatus(set []domain.PayoutStatus, s domain.PayoutStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
