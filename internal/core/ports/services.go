package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"company-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TokenService handles JWT token operations for the identity edge.
type TokenService interface {
	Generate(principal domain.Principal) (string, time.Time, error)
	Validate(tokenString string) (*domain.Principal, error)
}

// IdempotencyCache is the Redis-layer guard against duplicated client retries.
type IdempotencyCache interface {
	// Claim atomically reserves key. Returns true if this caller owns it.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Get returns the cached response JSON or nil.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Forget drops a claim so the key can be retried.
	Forget(ctx context.Context, key string) error
}

// OTPSender delivers a one-time code to a destination (e.g. SMS).
type OTPSender interface {
	SendOTP(ctx context.Context, destination, code string) error
}

// --- Service Ports (Business Logic) ---

// WalletLedger exposes balance reads and trusted money movements.
type WalletLedger interface {
	GetBalance(ctx context.Context, accountID int64) (*domain.WalletBalance, error)
	Credit(ctx context.Context, req MovementRequest) (*domain.LedgerEntry, error)
	Debit(ctx context.Context, req MovementRequest) (*domain.LedgerEntry, error)
	Transfer(ctx context.Context, req TransferRequest) (*domain.LedgerEntry, error)
	// Charge moves company funds to an employee wallet.
	Charge(ctx context.Context, companyID, employeeID int64, amount decimal.Decimal) (*domain.LedgerEntry, error)
	BulkCredit(ctx context.Context, req BulkCreditRequest) ([]domain.LedgerEntry, error)
	History(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
}

// MovementRequest holds validated input for a one-sided credit or debit.
type MovementRequest struct {
	AccountID int64
	Amount    decimal.Decimal
	Type      domain.EntryType // defaults to admin_adjustment
	ActorID   int64
	Note      string
}

// TransferRequest holds validated input for a two-sided move.
type TransferRequest struct {
	From     int64
	To       int64
	Amount   decimal.Decimal
	Type     domain.EntryType // defaults to transfer
	Metadata map[string]any
}

// BulkCreditRequest credits many accounts in one all-or-nothing batch.
type BulkCreditRequest struct {
	ActorID int64
	Items   []BulkCreditItem
}

// BulkCreditItem is one row of a bulk credit.
type BulkCreditItem struct {
	AccountID int64
	Amount    decimal.Decimal
}

// PaymentRequestService drives the OTP-gated checkout state machine.
type PaymentRequestService interface {
	Create(ctx context.Context, req CreatePaymentRequest) (*domain.PaymentRequest, error)
	Confirm(ctx context.Context, req ConfirmPaymentRequest) (*domain.PaymentRequest, error)
	Get(ctx context.Context, id uuid.UUID, caller domain.Principal) (*domain.PaymentRequest, error)
}

// CreatePaymentRequest holds validated input for a merchant checkout.
// Exactly one of EmployeeID or NationalID identifies the payer.
type CreatePaymentRequest struct {
	MerchantID int64
	EmployeeID int64
	NationalID string
	CategoryID *int64
	Amount     decimal.Decimal
}

// ConfirmPaymentRequest holds an OTP submission.
type ConfirmPaymentRequest struct {
	RequestID uuid.UUID
	Caller    domain.Principal
	OTP       string
}

// AllowanceService manages per-category employee spending caps.
type AllowanceService interface {
	Consume(ctx context.Context, employeeID, categoryID int64, amount decimal.Decimal) (bool, error)
	Release(ctx context.Context, employeeID, categoryID int64, amount decimal.Decimal) error
	Remaining(ctx context.Context, employeeID, categoryID int64) (decimal.Decimal, error)
	SetLimits(ctx context.Context, employeeID, companyID int64, limits []domain.LimitSpec) error
	ListLimits(ctx context.Context, employeeID int64) ([]domain.CategoryAllowance, error)
}

// PayoutService drives the merchant payout workflow.
type PayoutService interface {
	Request(ctx context.Context, req PayoutInput) (*domain.PayoutRequest, error)
	Approve(ctx context.Context, id uuid.UUID, adminID int64) (*domain.PayoutRequest, error)
	Reject(ctx context.Context, id uuid.UUID, adminID int64, notes string) (*domain.PayoutRequest, error)
	MarkPaid(ctx context.Context, id uuid.UUID, adminID int64) (*domain.PayoutRequest, error)
	List(ctx context.Context, params PayoutListParams) ([]domain.PayoutRequest, error)
}

// PayoutInput holds validated input for a payout request.
type PayoutInput struct {
	MerchantID     int64
	Amount         decimal.Decimal
	BankAccount    string
	IdempotencyKey string
}

// MerchantCategoryService manages which categories a merchant may charge against.
type MerchantCategoryService interface {
	Assign(ctx context.Context, merchantID int64, categoryIDs []int64) error
	List(ctx context.Context, merchantID int64) ([]int64, error)
	IsAuthorized(ctx context.Context, merchantID, categoryID int64) (bool, error)
}
