package dto

import (
	"github.com/shopspring/decimal"
)

// ChargeRequest is the request body for a company funding an employee wallet.
type ChargeRequest struct {
	EmployeeID int64           `json:"employee_id" binding:"required,gt=0"`
	Amount     decimal.Decimal `json:"amount" binding:"positive_amount"`
}

// AdjustRequest is the request body for an administrative balance correction.
type AdjustRequest struct {
	AccountID int64           `json:"account_id" binding:"required,gt=0"`
	Direction string          `json:"direction" binding:"required,oneof=credit debit"`
	Amount    decimal.Decimal `json:"amount" binding:"positive_amount"`
	Note      string          `json:"note" binding:"max=255"`
}

// BulkCreditRequest credits many wallets in one batch.
type BulkCreditRequest struct {
	Items []BulkCreditItem `json:"items" binding:"required,min=1,max=1000,dive"`
}

// BulkCreditItem is one row of a bulk credit.
type BulkCreditItem struct {
	AccountID int64           `json:"account_id" binding:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount" binding:"positive_amount"`
}

// CreatePaymentRequest is the merchant checkout body.
// The payer is named by employee_id or national_id.
type CreatePaymentRequest struct {
	EmployeeID int64           `json:"employee_id" binding:"omitempty,gt=0"`
	NationalID string          `json:"national_id" binding:"omitempty,numeric,max=20"`
	CategoryID *int64          `json:"category_id,omitempty" binding:"omitempty,gt=0"`
	Amount     decimal.Decimal `json:"amount" binding:"positive_amount"`
}

// ConfirmPaymentRequest carries the OTP typed by the employee.
type ConfirmPaymentRequest struct {
	OTP string `json:"otp" binding:"required,len=6,numeric"`
}

// PayoutRequest is the request body for a merchant withdrawal.
type PayoutRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"positive_amount"`
	BankAccount string          `json:"bank_account" binding:"required,max=64"`
}

// RejectPayoutRequest optionally explains a rejection.
type RejectPayoutRequest struct {
	Notes string `json:"notes" binding:"max=500"`
}

// SetLimitsRequest replaces an employee's category limits.
type SetLimitsRequest struct {
	CompanyID int64       `json:"company_id" binding:"required,gt=0"`
	Limits    []LimitItem `json:"limits" binding:"required,min=1,dive"`
}

// LimitItem is one category cap.
type LimitItem struct {
	CategoryID int64           `json:"category_id" binding:"required,gt=0"`
	Limit      decimal.Decimal `json:"limit" binding:"non_negative_amount"`
}

// AssignCategoriesRequest sets the categories a merchant may charge against.
type AssignCategoriesRequest struct {
	CategoryIDs []int64 `json:"category_ids" binding:"required,dive,gt=0"`
}

// WalletBalanceResponse is the response for balance query.
type WalletBalanceResponse struct {
	AccountID int64  `json:"account_id"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
}

// AllowanceResponse describes one category allowance.
type AllowanceResponse struct {
	CategoryID    int64  `json:"category_id"`
	SpendingLimit string `json:"spending_limit"`
	SpentAmount   string `json:"spent_amount"`
	Remaining     string `json:"remaining"`
}

// CategoriesResponse lists a merchant's assigned categories.
type CategoriesResponse struct {
	MerchantID  int64   `json:"merchant_id"`
	CategoryIDs []int64 `json:"category_ids"`
}

// ListResponse wraps a paginated list.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// PayoutHeaders carries the optional client retry key.
type PayoutHeaders struct {
	IdempotencyKey string `header:"Idempotency-Key" binding:"omitempty,max=128,safe_id"`
}
