package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutStatus is the lifecycle state of a merchant payout.
type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "pending"
	PayoutStatusApproved PayoutStatus = "approved"
	PayoutStatusRejected PayoutStatus = "rejected"
	PayoutStatusPaid     PayoutStatus = "paid"
)

// Valid reports whether s is a known payout status.
func (s PayoutStatus) Valid() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusApproved, PayoutStatusRejected, PayoutStatusPaid:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s.
// pending -> approved | rejected, approved -> paid | rejected.
func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	switch s {
	case PayoutStatusPending:
		return next == PayoutStatusApproved || next == PayoutStatusRejected
	case PayoutStatusApproved:
		return next == PayoutStatusPaid || next == PayoutStatusRejected
	case PayoutStatusRejected, PayoutStatusPaid:
		return false
	default:
		return false
	}
}

// PayoutSources lists every status from which next is reachable.
func PayoutSources(next PayoutStatus) []PayoutStatus {
	var from []PayoutStatus
	for _, s := range []PayoutStatus{PayoutStatusPending, PayoutStatusApproved, PayoutStatusRejected, PayoutStatusPaid} {
		if s.CanTransitionTo(next) {
			from = append(from, s)
		}
	}
	return from
}

// PayoutRequest is a merchant withdrawal whose funds are held in escrow
// until an administrator decides on it.
type PayoutRequest struct {
	ID          uuid.UUID       `json:"id"`
	MerchantID  int64           `json:"merchant_id"`
	Amount      decimal.Decimal `json:"amount"`
	BankAccount string          `json:"bank_account"`
	Status      PayoutStatus    `json:"status"`
	ApprovedBy  *int64          `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time      `json:"approved_at,omitempty"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PayoutTransition describes a status change and the audit fields it sets.
// Nil fields leave the stored value untouched.
type PayoutTransition struct {
	From        []PayoutStatus
	To          PayoutStatus
	ApprovedBy  *int64
	ApprovedAt  *time.Time
	ProcessedAt *time.Time
	Notes       *string
}
