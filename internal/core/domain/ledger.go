package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryType represents the kind of balance-affecting event recorded in the log.
type EntryType string

const (
	EntryTypeCharge           EntryType = "charge"
	EntryTypeTransfer         EntryType = "transfer"
	EntryTypePayment          EntryType = "payment"
	EntryTypePaymentRequest   EntryType = "payment_request"
	EntryTypePayoutRequest    EntryType = "payout_request"
	EntryTypeAdminAdjustment  EntryType = "admin_adjustment"
	EntryTypeAdminBulkCredit  EntryType = "admin_bulk_credit"
	EntryTypeCreditAllocation EntryType = "credit_allocation"
)

// Valid reports whether t is one of the known entry types.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeCharge, EntryTypeTransfer, EntryTypePayment, EntryTypePaymentRequest,
		EntryTypePayoutRequest, EntryTypeAdminAdjustment, EntryTypeAdminBulkCredit,
		EntryTypeCreditAllocation:
		return true
	}
	return false
}

// EntryStatus is the outcome recorded on a ledger entry.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
)

// ExternalAccount marks the side of an entry that lies outside the system
// (deposits from a bank, payouts to one).
const ExternalAccount int64 = 0

// LedgerEntry is an immutable record of one state-changing operation.
type LedgerEntry struct {
	ID                    uuid.UUID        `json:"id"`
	Type                  EntryType        `json:"type"`
	SenderID              int64            `json:"sender_id"`
	ReceiverID            int64            `json:"receiver_id"`
	Amount                decimal.Decimal  `json:"amount"`
	Status                EntryStatus      `json:"status"`
	RelatedRequest        *uuid.UUID       `json:"related_request,omitempty"`
	Metadata              map[string]any   `json:"metadata,omitempty"`
	SenderBalanceBefore   *decimal.Decimal `json:"sender_balance_before,omitempty"`
	SenderBalanceAfter    *decimal.Decimal `json:"sender_balance_after,omitempty"`
	ReceiverBalanceBefore *decimal.Decimal `json:"receiver_balance_before,omitempty"`
	ReceiverBalanceAfter  *decimal.Decimal `json:"receiver_balance_after,omitempty"`
	CreatedAt             time.Time        `json:"created_at"`
}

// NewLedgerEntry builds an entry with a fresh id and creation time.
func NewLedgerEntry(entryType EntryType, sender, receiver int64, amount decimal.Decimal, status EntryStatus) *LedgerEntry {
	return &LedgerEntry{
		ID:         uuid.New(),
		Type:       entryType,
		SenderID:   sender,
		ReceiverID: receiver,
		Amount:     NormalizeAmount(amount),
		Status:     status,
		Metadata:   map[string]any{},
		CreatedAt:  time.Now().UTC(),
	}
}

// WithSenderSnapshot records the sender balance before and after the move.
func (e *LedgerEntry) WithSenderSnapshot(c BalanceChange) *LedgerEntry {
	before, after := c.Before, c.After
	e.SenderBalanceBefore, e.SenderBalanceAfter = &before, &after
	return e
}

// WithReceiverSnapshot records the receiver balance before and after the move.
func (e *LedgerEntry) WithReceiverSnapshot(c BalanceChange) *LedgerEntry {
	before, after := c.Before, c.After
	e.ReceiverBalanceBefore, e.ReceiverBalanceAfter = &before, &after
	return e
}

// RelatedTo links the entry to a payment or payout request.
func (e *LedgerEntry) RelatedTo(id uuid.UUID) *LedgerEntry {
	e.RelatedRequest = &id
	return e
}
