package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"
	"company-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PaymentRequestConfig tunes OTP issuance and lockout.
type PaymentRequestConfig struct {
	OTPTTL      time.Duration
	MaxAttempts int
}

// PaymentRequestServiceImpl implements ports.PaymentRequestService.
type PaymentRequestServiceImpl struct {
	payments   ports.PaymentRequestRepository
	allowances ports.AllowanceRepository
	balances   ports.BalanceStore
	ledger     ports.LedgerRepository
	categories ports.MerchantCategoryRepository
	directory  ports.DirectoryRepository
	sender     ports.OTPSender
	transactor ports.DBTransactor
	funds      funds
	allocator  allocator
	otpTTL     time.Duration
	maxTries   int
	log        zerolog.Logger

	now      func() time.Time
	dispatch func(fn func())
}

// NewPaymentRequestService creates a new PaymentRequestServiceImpl.
func NewPaymentRequestService(
	payments ports.PaymentRequestRepository,
	allowances ports.AllowanceRepository,
	balances ports.BalanceStore,
	ledger ports.LedgerRepository,
	categories ports.MerchantCategoryRepository,
	directory ports.DirectoryRepository,
	sender ports.OTPSender,
	transactor ports.DBTransactor,
	cfg PaymentRequestConfig,
	log zerolog.Logger,
) *PaymentRequestServiceImpl {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = domain.OTPTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = domain.MaxOTPAttempts
	}
	return &PaymentRequestServiceImpl{
		payments:   payments,
		allowances: allowances,
		balances:   balances,
		ledger:     ledger,
		categories: categories,
		directory:  directory,
		sender:     sender,
		transactor: transactor,
		funds:      funds{balances: balances, log: log},
		allocator:  allocator{allowances: allowances},
		otpTTL:     cfg.OTPTTL,
		maxTries:   cfg.MaxAttempts,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
		dispatch:   func(fn func()) { go fn() },
	}
}

// Create issues a pending payment request and sends its OTP to the employee.
func (s *PaymentRequestServiceImpl) Create(ctx context.Context, req ports.CreatePaymentRequest) (*domain.PaymentRequest, error) {
	if !domain.IsPositiveAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.MerchantID <= 0 {
		return nil, apperror.Validation("merchant_id is required")
	}

	employeeID, destination, err := s.resolveEmployee(ctx, req)
	if err != nil {
		return nil, err
	}
	if employeeID == req.MerchantID {
		return nil, apperror.Validation("merchant cannot charge itself")
	}

	amount := domain.NormalizeAmount(req.Amount)
	meta := map[string]any{}

	var categoryID *int64
	if req.CategoryID != nil && *req.CategoryID > 0 {
		id := *req.CategoryID
		categoryID = &id
		if err := s.precheckAllowance(ctx, req.MerchantID, employeeID, id, amount, meta); err != nil {
			return nil, err
		}
	}

	code, err := generateOTP()
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	now := s.now()
	pr := &domain.PaymentRequest{
		ID:           uuid.New(),
		MerchantID:   req.MerchantID,
		EmployeeID:   employeeID,
		CategoryID:   categoryID,
		Amount:       amount,
		OTP:          code,
		OTPExpiresAt: now.Add(s.otpTTL),
		Status:       domain.PaymentStatusPending,
		Metadata:     meta,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	meta["otp_expires"] = pr.OTPExpiresAt.Format(time.RFC3339)

	err = runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
		if err := s.payments.Create(ctx, tx, pr); err != nil {
			return storageErr("create payment request", err)
		}
		entry := domain.NewLedgerEntry(domain.EntryTypePaymentRequest, employeeID, req.MerchantID, amount, domain.EntryStatusPending).
			RelatedTo(pr.ID)
		for k, v := range meta {
			entry.Metadata[k] = v
		}
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return storageErr("append ledger entry", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendOTP(ctx, pr.ID, destination, code)

	s.log.Info().
		Str("request_id", pr.ID.String()).
		Int64("merchant_id", pr.MerchantID).
		Int64("employee_id", pr.EmployeeID).
		Str("amount", amount.String()).
		Msg("payment request created")

	return pr, nil
}

// resolveEmployee returns the payer account and its OTP destination.
func (s *PaymentRequestServiceImpl) resolveEmployee(ctx context.Context, req ports.CreatePaymentRequest) (int64, string, error) {
	if req.NationalID != "" {
		entry, err := s.directory.GetByNationalID(ctx, req.NationalID)
		if err != nil {
			return 0, "", storageErr("resolve employee", err)
		}
		if entry == nil {
			return 0, "", apperror.ErrNotFound("employee")
		}
		if req.EmployeeID != 0 && req.EmployeeID != entry.AccountID {
			return 0, "", apperror.Validation("employee_id does not match national_id")
		}
		return entry.AccountID, entry.Mobile, nil
	}

	if req.EmployeeID <= 0 {
		return 0, "", apperror.Validation("employee_id or national_id is required")
	}
	entry, err := s.directory.GetByAccountID(ctx, req.EmployeeID)
	if err != nil {
		return 0, "", storageErr("resolve employee", err)
	}
	if entry == nil {
		return req.EmployeeID, "", nil
	}
	return req.EmployeeID, entry.Mobile, nil
}

// precheckAllowance is advisory: Confirm repeats the check atomically.
func (s *PaymentRequestServiceImpl) precheckAllowance(ctx context.Context, merchantID, employeeID, categoryID int64, amount decimal.Decimal, meta map[string]any) error {
	assigned, err := s.categories.IsAssigned(ctx, merchantID, categoryID)
	if err != nil {
		return storageErr("check merchant category", err)
	}
	if !assigned {
		return apperror.ErrCategoryNotAssigned()
	}

	allowance, err := s.allowances.Get(ctx, employeeID, categoryID)
	if err != nil {
		return storageErr("get allowance", err)
	}
	wallet, err := s.balances.Get(ctx, employeeID)
	if err != nil {
		return storageErr("get balance", err)
	}

	remaining := allowance.Remaining()
	limit := decimal.Zero
	if allowance != nil {
		limit = allowance.SpendingLimit
	}

	meta["category_id"] = categoryID
	meta["limit"] = limit.String()
	meta["remaining"] = remaining.String()
	meta["wallet_balance"] = wallet.Balance.String()

	if decimal.Min(remaining, wallet.Balance).LessThan(amount) {
		return apperror.ErrAllowanceExceeded()
	}
	return nil
}

func (s *PaymentRequestServiceImpl) sendOTP(ctx context.Context, requestID uuid.UUID, destination, code string) {
	if s.sender == nil || destination == "" {
		s.log.Warn().Str("request_id", requestID.String()).Msg("no otp destination, code not sent")
		return
	}
	bg := context.WithoutCancel(ctx)
	s.dispatch(func() {
		if err := s.sender.SendOTP(bg, destination, code); err != nil {
			s.log.Warn().Err(err).Str("request_id", requestID.String()).Msg("otp delivery failed")
		}
	})
}

// Confirm verifies the OTP and, on a match, settles the payment.
// The request row stays locked for the whole call.
func (s *PaymentRequestServiceImpl) Confirm(ctx context.Context, req ports.ConfirmPaymentRequest) (*domain.PaymentRequest, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	pr, err := s.payments.GetByIDForUpdate(ctx, tx, req.RequestID)
	if err != nil {
		return nil, storageErr("load payment request", err)
	}
	if pr == nil || !pr.BelongsTo(req.Caller) {
		return nil, apperror.ErrRequestNotFound()
	}

	if err := s.refusal(pr); err != nil {
		return nil, err
	}

	now := s.now()
	if pr.IsExpiredAt(now) {
		if err := s.advance(pr, domain.PaymentStatusExpired); err != nil {
			return nil, err
		}
		if _, err := s.payments.MarkExpired(ctx, tx, pr.ID); err != nil {
			return nil, storageErr("expire payment request", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
		}
		s.log.Info().Str("request_id", pr.ID.String()).Msg("payment request expired")
		return nil, apperror.ErrRequestExpired()
	}

	if !otpMatches(pr.OTP, req.OTP) {
		// the attempt that reaches the limit locks the request
		if err := s.advance(pr, domain.PaymentStatusLocked); err != nil {
			return nil, err
		}
		return nil, s.recordFailure(ctx, tx, pr.ID)
	}

	if err := s.advance(pr, domain.PaymentStatusCompleted); err != nil {
		return nil, err
	}
	return s.settle(ctx, tx, pr, req.Caller, now)
}

// refusal returns the error for a request that no longer accepts OTPs,
// or nil when it is still open.
func (s *PaymentRequestServiceImpl) refusal(pr *domain.PaymentRequest) error {
	switch {
	case pr.Status == domain.PaymentStatusCompleted:
		return apperror.ErrRequestAlreadyCompleted()
	case pr.IsLocked(s.maxTries):
		return apperror.ErrRequestLocked()
	case pr.Status == domain.PaymentStatusExpired:
		return apperror.ErrRequestExpired()
	case pr.Status.IsTerminal():
		return apperror.ErrInvalidTransition(string(pr.Status), string(domain.PaymentStatusCompleted))
	}
	return nil
}

// advance checks that pr may move to next before the store is touched.
func (s *PaymentRequestServiceImpl) advance(pr *domain.PaymentRequest, next domain.PaymentStatus) error {
	if pr.Status.CanTransitionTo(next) {
		return nil
	}
	if err := s.refusal(pr); err != nil {
		return err
	}
	return apperror.ErrInvalidTransition(string(pr.Status), string(next))
}

func (s *PaymentRequestServiceImpl) recordFailure(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	out, err := s.payments.RecordFailedAttempt(ctx, tx, id, s.maxTries)
	if err != nil {
		return storageErr("record failed attempt", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}
	if out == nil {
		return apperror.ErrRequestLocked()
	}

	s.log.Warn().
		Str("request_id", id.String()).
		Int("failed_attempts", out.FailedAttempts).
		Bool("locked", out.Locked).
		Msg("invalid otp submitted")
	return apperror.ErrInvalidOTP()
}

// settle consumes the allowance, moves the money and completes the request.
// Any failure after the first mutation undoes what was applied.
func (s *PaymentRequestServiceImpl) settle(ctx context.Context, tx pgx.Tx, pr *domain.PaymentRequest, caller domain.Principal, now time.Time) (*domain.PaymentRequest, error) {
	comp := newCompensator(s.log)
	fail := func(err error) (*domain.PaymentRequest, error) {
		if cerr := comp.compensate(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}

	metadata := map[string]any{
		"confirmed_at": now.Format(time.RFC3339),
		"confirmed_by": caller.AccountID,
	}

	if pr.HasCategory() {
		categoryID := *pr.CategoryID
		before, err := s.allowances.Get(ctx, pr.EmployeeID, categoryID)
		if err != nil {
			return nil, storageErr("get allowance", err)
		}

		ok, err := comp.attempt(ctx, s.allocator.reservation(tx, pr.EmployeeID, categoryID, pr.Amount))
		if err != nil {
			return fail(storageErr("consume allowance", err))
		}
		if !ok {
			return fail(apperror.ErrAllowanceExceeded())
		}

		remaining := before.Remaining().Sub(pr.Amount)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		metadata["category_id"] = categoryID
		metadata["category_remaining_after"] = remaining.String()
	}

	var moved domain.TransferResult
	ok, err := comp.attempt(ctx, provisional{
		name: "transfer employee to merchant",
		apply: func(ctx context.Context) (bool, error) {
			res, ok, err := s.funds.transfer(ctx, tx, pr.EmployeeID, pr.MerchantID, pr.Amount)
			moved = res
			return ok, err
		},
		undo: func(ctx context.Context) error {
			_, ok, err := s.funds.transfer(ctx, tx, pr.MerchantID, pr.EmployeeID, pr.Amount)
			if err == nil && !ok {
				err = errors.New("merchant balance no longer covers reversal")
			}
			return err
		},
	})
	if err != nil {
		return fail(storageErr("transfer", err))
	}
	if !ok {
		return fail(apperror.ErrInsufficientFunds())
	}

	done, err := s.payments.MarkCompleted(ctx, tx, pr.ID, metadata)
	if err != nil {
		return fail(storageErr("complete payment request", err))
	}
	if !done {
		return fail(apperror.ErrRequestAlreadyCompleted())
	}

	entry := domain.NewLedgerEntry(domain.EntryTypePayment, pr.EmployeeID, pr.MerchantID, pr.Amount, domain.EntryStatusCompleted).
		WithSenderSnapshot(moved.Sender).
		WithReceiverSnapshot(moved.Receiver).
		RelatedTo(pr.ID)
	if pr.HasCategory() {
		entry.Metadata["category_id"] = *pr.CategoryID
	}
	if err := s.ledger.Append(ctx, tx, entry); err != nil {
		return fail(storageErr("append ledger entry", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	pr.Status = domain.PaymentStatusCompleted
	pr.FailedAttempts = 0
	pr.UpdatedAt = now
	if pr.Metadata == nil {
		pr.Metadata = map[string]any{}
	}
	for k, v := range metadata {
		pr.Metadata[k] = v
	}

	s.log.Info().
		Str("request_id", pr.ID.String()).
		Int64("employee_id", pr.EmployeeID).
		Int64("merchant_id", pr.MerchantID).
		Str("amount", pr.Amount.String()).
		Msg("payment request confirmed")

	return pr, nil
}

// Get returns a request visible to the caller.
func (s *PaymentRequestServiceImpl) Get(ctx context.Context, id uuid.UUID, caller domain.Principal) (*domain.PaymentRequest, error) {
	pr, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get payment request", err)
	}
	if pr == nil || !pr.BelongsTo(caller) {
		return nil, apperror.ErrRequestNotFound()
	}
	return pr, nil
}
