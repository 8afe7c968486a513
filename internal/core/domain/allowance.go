package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryAllowance is an employee's spending cap for one merchant category.
type CategoryAllowance struct {
	EmployeeID    int64           `json:"employee_id"`
	CategoryID    int64           `json:"category_id"`
	CompanyID     int64           `json:"company_id"`
	SpendingLimit decimal.Decimal `json:"spending_limit"`
	SpentAmount   decimal.Decimal `json:"spent_amount"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Remaining returns max(0, limit - spent).
func (a *CategoryAllowance) Remaining() decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	r := a.SpendingLimit.Sub(a.SpentAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// ApplyLimit sets a new spending limit and clamps spent so it never exceeds it.
func (a *CategoryAllowance) ApplyLimit(limit decimal.Decimal) {
	a.SpendingLimit = NormalizeAmount(limit)
	if a.SpentAmount.GreaterThan(a.SpendingLimit) {
		a.SpentAmount = a.SpendingLimit
	}
}

// LimitSpec is one category limit in a bulk SetLimits call.
type LimitSpec struct {
	CategoryID int64
	Limit      decimal.Decimal
}
