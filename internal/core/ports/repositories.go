package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"

	"company-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BalanceStore defines persistence for wallet balances.
// Adjust is the only mutation path: a single conditional statement that
// applies the delta if and only if the guard holds.
type BalanceStore interface {
	// Get returns the balance for accountID, creating a zero row if absent.
	Get(ctx context.Context, accountID int64) (*domain.WalletBalance, error)
	// Adjust applies adj inside tx. applied is false when the guard rejected it.
	Adjust(ctx context.Context, tx pgx.Tx, accountID int64, adj domain.Adjustment) (change domain.BalanceChange, applied bool, err error)
}

// LedgerRepository defines persistence for the append-only transaction log.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	ListByAccount(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
}

// LedgerListParams holds filter + pagination for listing ledger entries.
type LedgerListParams struct {
	AccountID int64
	Type      *domain.EntryType
	Page      int
	PageSize  int
}

// AllowanceRepository defines persistence for category allowances.
type AllowanceRepository interface {
	// Adjust applies adj to spent_amount inside tx. applied is false when the
	// guard rejected it or no allowance row exists for the pair.
	Adjust(ctx context.Context, tx pgx.Tx, employeeID, categoryID int64, adj domain.Adjustment) (applied bool, err error)
	Get(ctx context.Context, employeeID, categoryID int64) (*domain.CategoryAllowance, error)
	ListByEmployee(ctx context.Context, employeeID int64) ([]domain.CategoryAllowance, error)
	// Upsert sets the limit, clamping spent_amount to the new limit on update.
	Upsert(ctx context.Context, tx pgx.Tx, a *domain.CategoryAllowance) error
}

// PaymentRequestRepository defines persistence for OTP-gated payment requests.
// Every status change is conditional on the row still being pending.
type PaymentRequestRepository interface {
	Create(ctx context.Context, tx pgx.Tx, req *domain.PaymentRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentRequest, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.PaymentRequest, error)
	MarkExpired(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
	RecordFailedAttempt(ctx context.Context, tx pgx.Tx, id uuid.UUID, maxAttempts int) (*domain.AttemptOutcome, error)
	MarkCompleted(ctx context.Context, tx pgx.Tx, id uuid.UUID, metadata map[string]any) (bool, error)
}

// PayoutRepository defines persistence for payout requests.
type PayoutRepository interface {
	Create(ctx context.Context, tx pgx.Tx, p *domain.PayoutRequest) error
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PayoutRequest, error)
	// Transition moves a payout whose status is in t.From to t.To.
	// Returns nil when no row matched.
	Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, t domain.PayoutTransition) (*domain.PayoutRequest, error)
	List(ctx context.Context, params PayoutListParams) ([]domain.PayoutRequest, error)
}

// PayoutListParams filters payout listings. Zero values mean "any".
type PayoutListParams struct {
	MerchantID int64
	Status     *domain.PayoutStatus
	Limit      int
}

// MerchantCategoryRepository defines persistence for merchant category assignments.
type MerchantCategoryRepository interface {
	IsAssigned(ctx context.Context, merchantID, categoryID int64) (bool, error)
	ListByMerchant(ctx context.Context, merchantID int64) ([]int64, error)
	Replace(ctx context.Context, tx pgx.Tx, merchantID int64, categoryIDs []int64) error
}

// DirectoryRepository resolves employees to their OTP contact data.
type DirectoryRepository interface {
	GetByNationalID(ctx context.Context, nationalID string) (*domain.DirectoryEntry, error)
	GetByAccountID(ctx context.Context, accountID int64) (*domain.DirectoryEntry, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
