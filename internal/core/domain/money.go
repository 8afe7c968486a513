package domain

import "github.com/shopspring/decimal"

// AmountScale is the number of fractional digits kept for every stored amount.
const AmountScale int32 = 6

// NormalizeAmount rounds an amount to AmountScale fractional digits.
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// MaxAmount is the exclusive upper bound of a stored amount: the money
// columns hold 14 integer and 6 fractional digits.
var MaxAmount = decimal.New(1, 14)

// FitsAmountColumn reports whether d can be stored without overflow.
func FitsAmountColumn(d decimal.Decimal) bool {
	return NormalizeAmount(d).Abs().LessThan(MaxAmount)
}

// IsPositiveAmount reports whether d is strictly greater than zero after
// normalization and fits the money columns.
func IsPositiveAmount(d decimal.Decimal) bool {
	return NormalizeAmount(d).IsPositive() && FitsAmountColumn(d)
}

// Guard is the predicate a conditional adjustment must satisfy to take effect.
type Guard int

const (
	// GuardNone applies the delta unconditionally.
	GuardNone Guard = iota
	// GuardNonNegative applies the delta only if the result stays >= 0.
	GuardNonNegative
	// GuardWithinLimit applies the delta only if the result stays <= limit.
	GuardWithinLimit
	// GuardFloorZero applies the delta and floors the result at 0.
	GuardFloorZero
)

func (g Guard) String() string {
	switch g {
	case GuardNone:
		return "none"
	case GuardNonNegative:
		return "non_negative"
	case GuardWithinLimit:
		return "within_limit"
	case GuardFloorZero:
		return "floor_zero"
	default:
		return "unknown"
	}
}

// Adjustment is a signed delta paired with the guard under which it applies.
// Every balance and allowance mutation is expressed as one Adjustment and
// executed as a single conditional statement by the store.
type Adjustment struct {
	Delta decimal.Decimal
	Guard Guard
}

// Debit withdraws amount from a balance, refusing to go below zero.
func Debit(amount decimal.Decimal) Adjustment {
	return Adjustment{Delta: NormalizeAmount(amount).Neg(), Guard: GuardNonNegative}
}

// Credit adds amount to a balance unconditionally.
func Credit(amount decimal.Decimal) Adjustment {
	return Adjustment{Delta: NormalizeAmount(amount), Guard: GuardNone}
}

// Consume adds amount to an allowance's spent total, refusing to exceed the limit.
func Consume(amount decimal.Decimal) Adjustment {
	return Adjustment{Delta: NormalizeAmount(amount), Guard: GuardWithinLimit}
}

// Release subtracts amount from an allowance's spent total, floored at zero.
func Release(amount decimal.Decimal) Adjustment {
	return Adjustment{Delta: NormalizeAmount(amount).Neg(), Guard: GuardFloorZero}
}

// Apply evaluates the adjustment against current and returns the resulting
// value and whether the guard held. limit is consulted only by GuardWithinLimit.
func (a Adjustment) Apply(current, limit decimal.Decimal) (decimal.Decimal, bool) {
	next := current.Add(a.Delta)
	switch a.Guard {
	case GuardNone:
		return next, true
	case GuardNonNegative:
		if next.IsNegative() {
			return current, false
		}
		return next, true
	case GuardWithinLimit:
		if next.GreaterThan(limit) {
			return current, false
		}
		return next, true
	case GuardFloorZero:
		if next.IsNegative() {
			return decimal.Zero, true
		}
		return next, true
	default:
		return current, false
	}
}
