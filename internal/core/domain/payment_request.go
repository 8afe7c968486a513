package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// OTPLength is the number of digits in a payment OTP.
	OTPLength = 6
	// OTPTTL is how long an issued OTP stays valid.
	OTPTTL = 5 * time.Minute
	// MaxOTPAttempts is the number of wrong submissions that locks a request.
	MaxOTPAttempts = 5
)

// PaymentStatus is the lifecycle state of an OTP-gated payment request.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusLocked    PaymentStatus = "locked"
)

// IsTerminal returns true for states that admit no further transition.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusPending:
		return false
	case PaymentStatusCompleted, PaymentStatusExpired, PaymentStatusLocked:
		return true
	default:
		return true
	}
}

// CanTransitionTo reports whether next is reachable from s.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		switch next {
		case PaymentStatusCompleted, PaymentStatusExpired, PaymentStatusLocked:
			return true
		case PaymentStatusPending:
			return false
		}
		return false
	case PaymentStatusCompleted, PaymentStatusExpired, PaymentStatusLocked:
		return false
	default:
		return false
	}
}

// PaymentRequest is a merchant-initiated checkout awaiting employee OTP confirmation.
type PaymentRequest struct {
	ID             uuid.UUID       `json:"id"`
	MerchantID     int64           `json:"merchant_id"`
	EmployeeID     int64           `json:"employee_id"`
	CategoryID     *int64          `json:"category_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	OTP            string          `json:"-"`
	OTPExpiresAt   time.Time       `json:"otp_expires_at"`
	FailedAttempts int             `json:"failed_attempts"`
	LockedAt       *time.Time      `json:"locked_at,omitempty"`
	Status         PaymentStatus   `json:"status"`
	Metadata       map[string]any  `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsLocked reports whether the request refuses further OTP submissions
// once maxAttempts wrong codes have been recorded.
func (r *PaymentRequest) IsLocked(maxAttempts int) bool {
	return r.Status == PaymentStatusLocked || r.LockedAt != nil || r.FailedAttempts >= maxAttempts
}

// IsExpiredAt reports whether the OTP window has closed at now.
func (r *PaymentRequest) IsExpiredAt(now time.Time) bool {
	return now.After(r.OTPExpiresAt)
}

// HasCategory reports whether the request is capped by a category allowance.
func (r *PaymentRequest) HasCategory() bool {
	return r.CategoryID != nil && *r.CategoryID > 0
}

// BelongsTo reports whether the request is visible to the given principal.
// Merchants see their own requests, employees see requests addressed to them,
// admins see everything.
func (r *PaymentRequest) BelongsTo(p Principal) bool {
	switch p.Role {
	case RoleMerchant:
		return r.MerchantID == p.AccountID
	case RoleEmployee:
		return r.EmployeeID == p.AccountID
	case RoleAdmin:
		return true
	case RoleCompany:
		return false
	default:
		return false
	}
}

// AttemptOutcome is the persisted state after one wrong OTP submission.
type AttemptOutcome struct {
	FailedAttempts int
	Locked         bool
}
