package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletBalance is the custodial balance held for one account.
type WalletBalance struct {
	AccountID int64           `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BalanceChange captures a balance before and after one applied adjustment.
type BalanceChange struct {
	AccountID int64
	Before    decimal.Decimal
	After     decimal.Decimal
}

// TransferResult holds both sides of a completed transfer.
type TransferResult struct {
	Sender   BalanceChange
	Receiver BalanceChange
}
