package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"
	"company-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	payoutIdempotencyTTL = 24 * time.Hour
	defaultPayoutLimit   = 100
	maxPayoutLimit       = 500
)

// PayoutServiceImpl implements ports.PayoutService.
type PayoutServiceImpl struct {
	payouts    ports.PayoutRepository
	balances   ports.BalanceStore
	ledger     ports.LedgerRepository
	idemCache  ports.IdempotencyCache
	transactor ports.DBTransactor
	funds      funds
	log        zerolog.Logger
	now        func() time.Time
}

// NewPayoutService creates a new PayoutServiceImpl. idemCache may be nil,
// in which case idempotency keys are ignored.
func NewPayoutService(
	payouts ports.PayoutRepository,
	balances ports.BalanceStore,
	ledger ports.LedgerRepository,
	idemCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *PayoutServiceImpl {
	return &PayoutServiceImpl{
		payouts:    payouts,
		balances:   balances,
		ledger:     ledger,
		idemCache:  idemCache,
		transactor: transactor,
		funds:      funds{balances: balances, log: log},
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Request moves the amount from the merchant wallet into escrow and files
// a pending payout.
func (s *PayoutServiceImpl) Request(ctx context.Context, req ports.PayoutInput) (*domain.PayoutRequest, error) {
	if !domain.IsPositiveAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.MerchantID <= 0 {
		return nil, apperror.Validation("merchant_id is required")
	}
	if strings.TrimSpace(req.BankAccount) == "" {
		return nil, apperror.Validation("bank_account is required")
	}

	if req.IdempotencyKey == "" || s.idemCache == nil {
		return s.request(ctx, req)
	}

	// 1. Replay a finished request
	key := domain.BuildPayoutIdempotencyKey(req.MerchantID, req.IdempotencyKey)
	if cached, err := s.idemCache.Get(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency cache read failed")
	} else if cached != nil {
		var p domain.PayoutRequest
		if err := json.Unmarshal(cached, &p); err == nil {
			return &p, nil
		}
	}

	// 2. Claim the key so a concurrent retry cannot run the same request
	claimed, err := s.idemCache.Claim(ctx, key, payoutIdempotencyTTL)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(err)
	}
	if !claimed {
		return nil, apperror.ErrDuplicateRequest()
	}

	p, err := s.request(ctx, req)
	if err != nil {
		if ferr := s.idemCache.Forget(ctx, key); ferr != nil {
			s.log.Warn().Err(ferr).Str("key", key).Msg("failed to release idempotency claim")
		}
		return nil, err
	}

	// 3. Cache the result for replays
	if data, err := json.Marshal(p); err == nil {
		if err := s.idemCache.Set(ctx, key, data, payoutIdempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to cache payout response")
		}
	}
	return p, nil
}

func (s *PayoutServiceImpl) request(ctx context.Context, req ports.PayoutInput) (*domain.PayoutRequest, error) {
	amount := domain.NormalizeAmount(req.Amount)

	wallet, err := s.balances.Get(ctx, req.MerchantID)
	if err != nil {
		return nil, storageErr("get balance", err)
	}
	if wallet.Balance.LessThan(amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	now := s.now()
	p := &domain.PayoutRequest{
		ID:          uuid.New(),
		MerchantID:  req.MerchantID,
		Amount:      amount,
		BankAccount: strings.TrimSpace(req.BankAccount),
		Status:      domain.PayoutStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
		comp := newCompensator(s.log)
		if _, err := comp.attempt(ctx, provisional{
			name: "file payout",
			apply: func(ctx context.Context) (bool, error) {
				return true, s.payouts.Create(ctx, tx, p)
			},
			undo: func(ctx context.Context) error {
				return s.payouts.Delete(ctx, tx, p.ID)
			},
		}); err != nil {
			return storageErr("create payout", err)
		}

		change, ok, err := s.funds.debit(ctx, tx, req.MerchantID, amount)
		if err != nil || !ok {
			if cerr := comp.compensate(ctx); cerr != nil {
				s.log.Error().Err(cerr).Str("payout_id", p.ID.String()).Msg("payout rollback incomplete")
			}
			if err != nil {
				return storageErr("escrow payout", err)
			}
			return apperror.ErrInsufficientFunds()
		}

		entry := domain.NewLedgerEntry(domain.EntryTypePayoutRequest, req.MerchantID, domain.ExternalAccount, amount, domain.EntryStatusPending).
			WithSenderSnapshot(change).
			RelatedTo(p.ID)
		entry.Metadata["bank_account"] = p.BankAccount
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return storageErr("append ledger entry", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("payout_id", p.ID.String()).
		Int64("merchant_id", p.MerchantID).
		Str("amount", amount.String()).
		Msg("payout requested")
	return p, nil
}

// Approve moves a pending payout to approved.
func (s *PayoutServiceImpl) Approve(ctx context.Context, id uuid.UUID, adminID int64) (*domain.PayoutRequest, error) {
	now := s.now()
	return s.transition(ctx, id, domain.PayoutTransition{
		To:         domain.PayoutStatusApproved,
		ApprovedBy: &adminID,
		ApprovedAt: &now,
	}, nil)
}

// Reject cancels a pending or approved payout and returns the escrowed
// amount to the merchant.
func (s *PayoutServiceImpl) Reject(ctx context.Context, id uuid.UUID, adminID int64, notes string) (*domain.PayoutRequest, error) {
	t := domain.PayoutTransition{To: domain.PayoutStatusRejected}
	if notes != "" {
		t.Notes = &notes
	}
	return s.transition(ctx, id, t, func(ctx context.Context, tx pgx.Tx, p *domain.PayoutRequest) error {
		change, err := s.funds.credit(ctx, tx, p.MerchantID, p.Amount)
		if err != nil {
			return storageErr("refund payout", err)
		}
		entry := domain.NewLedgerEntry(domain.EntryTypeAdminAdjustment, domain.ExternalAccount, p.MerchantID, p.Amount, domain.EntryStatusCompleted).
			WithReceiverSnapshot(change).
			RelatedTo(p.ID)
		entry.Metadata["actor_id"] = adminID
		entry.Metadata["reason"] = "payout_rejected"
		if notes != "" {
			entry.Metadata["notes"] = notes
		}
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return storageErr("append ledger entry", err)
		}
		return nil
	})
}

// MarkPaid records that the bank transfer for an approved payout went out.
func (s *PayoutServiceImpl) MarkPaid(ctx context.Context, id uuid.UUID, adminID int64) (*domain.PayoutRequest, error) {
	now := s.now()
	return s.transition(ctx, id, domain.PayoutTransition{
		To:          domain.PayoutStatusPaid,
		ProcessedAt: &now,
	}, nil)
}

func (s *PayoutServiceImpl) transition(
	ctx context.Context,
	id uuid.UUID,
	t domain.PayoutTransition,
	after func(ctx context.Context, tx pgx.Tx, p *domain.PayoutRequest) error,
) (*domain.PayoutRequest, error) {
	t.From = domain.PayoutSources(t.To)

	var out *domain.PayoutRequest
	err := runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
		p, err := s.payouts.Transition(ctx, tx, id, t)
		if err != nil {
			return storageErr("transition payout", err)
		}
		if p == nil {
			return s.explainMiss(ctx, id, t.To)
		}
		if after != nil {
			if err := after(ctx, tx, p); err != nil {
				return err
			}
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("payout_id", id.String()).
		Str("status", string(t.To)).
		Msg("payout transitioned")
	return out, nil
}

func (s *PayoutServiceImpl) explainMiss(ctx context.Context, id uuid.UUID, to domain.PayoutStatus) error {
	current, err := s.payouts.GetByID(ctx, id)
	if err != nil {
		return storageErr("get payout", err)
	}
	if current == nil {
		return apperror.ErrNotFound("payout")
	}
	return apperror.ErrInvalidTransition(string(current.Status), string(to))
}

// List returns payouts newest first.
func (s *PayoutServiceImpl) List(ctx context.Context, params ports.PayoutListParams) ([]domain.PayoutRequest, error) {
	if params.Status != nil && !params.Status.Valid() {
		return nil, apperror.Validation("unknown payout status")
	}
	if params.Limit <= 0 {
		params.Limit = defaultPayoutLimit
	}
	if params.Limit > maxPayoutLimit {
		params.Limit = maxPayoutLimit
	}
	list, err := s.payouts.List(ctx, params)
	if err != nil {
		return nil, storageErr("list payouts", err)
	}
	return list, nil
}
