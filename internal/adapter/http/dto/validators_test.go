package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeStruct_TrimsAndEscapes(t *testing.T) {
	req := PayoutRequest{BankAccount: "  IR06 <b>0170</b>  "}
	SanitizeStruct(&req)

	assert.Equal(t, "IR06 &lt;b&gt;0170&lt;/b&gt;", req.BankAccount)
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	type withPtr struct {
		Note *string
		Nil  *string
	}
	note := "  refund  "
	v := withPtr{Note: &note}
	SanitizeStruct(&v)

	assert.Equal(t, "refund", *v.Note)
	assert.Nil(t, v.Nil)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	SanitizeStruct("hello")
}

func TestSafeID(t *testing.T) {
	for _, tc := range []string{"ref-001", "REF_002", "a.b.c"} {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
	for _, tc := range []string{"ref 001", "ref<001>", "ref;DROP", "", "ref\n001"} {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestAmountValidators(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		valid  bool
	}{
		{"integer", "100", true},
		{"six decimals", "0.000001", true},
		{"seven decimals", "0.0000001", false},
		{"zero", "0", false},
		{"negative", "-5", false},
		{"largest storable", "99999999999999.999999", true},
		{"fifteen integer digits", "100000000000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := PayoutRequest{Amount: decimal.RequireFromString(tt.amount), BankAccount: "IR06"}
			err := binding.Validator.ValidateStruct(&req)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestNonNegativeAmountAllowsZero(t *testing.T) {
	req := SetLimitsRequest{CompanyID: 1, Limits: []LimitItem{{CategoryID: 3, Limit: decimal.Zero}}}
	assert.NoError(t, binding.Validator.ValidateStruct(&req))

	req.Limits[0].Limit = decimal.NewFromInt(-1)
	assert.Error(t, binding.Validator.ValidateStruct(&req))

	req.Limits[0].Limit = decimal.New(1, 14)
	assert.Error(t, binding.Validator.ValidateStruct(&req))
}

func TestAdjustRequestDirection(t *testing.T) {
	req := AdjustRequest{AccountID: 1, Direction: "sideways", Amount: decimal.NewFromInt(1)}
	assert.Error(t, binding.Validator.ValidateStruct(&req))

	req.Direction = "debit"
	assert.NoError(t, binding.Validator.ValidateStruct(&req))
}

func TestConfirmPaymentRequestOTP(t *testing.T) {
	assert.NoError(t, binding.Validator.ValidateStruct(&ConfirmPaymentRequest{OTP: "123456"}))
	assert.Error(t, binding.Validator.ValidateStruct(&ConfirmPaymentRequest{OTP: "12345"}))
	assert.Error(t, binding.Validator.ValidateStruct(&ConfirmPaymentRequest{OTP: "12a456"}))
}

func TestPayoutHeadersIdempotencyKey(t *testing.T) {
	assert.NoError(t, binding.Validator.ValidateStruct(&PayoutHeaders{}))
	assert.NoError(t, binding.Validator.ValidateStruct(&PayoutHeaders{IdempotencyKey: "order-42.retry_1"}))
	assert.Error(t, binding.Validator.ValidateStruct(&PayoutHeaders{IdempotencyKey: "has space"}))
}
