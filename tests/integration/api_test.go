package integration

import (
	"net/http"
	"testing"
	"time"

	"company-wallet/internal/adapter/http/middleware"
	"company-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_RequiresToken(t *testing.T) {
	app := newTestApp(t)

	status, resp := app.call(t, "", http.MethodGet, "/api/v1/wallets/balance", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTH_003", resp["error_code"])

	status, _ = app.call(t, domain.RoleMerchant, http.MethodPost, "/api/v1/admin/wallets/adjust", map[string]any{
		"account_id": merchantID, "direction": "credit", "amount": "1000",
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestIntegration_CheckoutWithCategoryAllowance(t *testing.T) {
	app := newTestApp(t)
	app.fundEmployee(t, "300")

	status, resp := app.call(t, domain.RoleAdmin, http.MethodPut, "/api/v1/admin/merchants/20/categories",
		map[string]any{"category_ids": []int64{groceries}})
	require.Equal(t, http.StatusOK, status, resp)

	status, resp = app.call(t, domain.RoleAdmin, http.MethodPut, "/api/v1/admin/allowances/10", map[string]any{
		"company_id": companyID,
		"limits":     []map[string]any{{"category_id": groceries, "limit": "200"}},
	})
	require.Equal(t, http.StatusOK, status, resp)

	id, otp := app.checkout(t, map[string]any{
		"national_id": employeeNationalID, "category_id": groceries, "amount": "120",
	})

	status, resp = app.confirm(t, id, wrongOTP(otp))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "OTP_004", resp["error_code"])

	status, resp = app.confirm(t, id, otp)
	require.Equal(t, http.StatusOK, status, resp)
	assert.Equal(t, "completed", data(resp)["status"])
	assert.Equal(t, float64(0), data(resp)["failed_attempts"])

	assert.Equal(t, "180", app.balance(t, domain.RoleEmployee))
	assert.Equal(t, "120", app.balance(t, domain.RoleMerchant))

	status, resp = app.call(t, domain.RoleEmployee, http.MethodGet, "/api/v1/allowances", nil)
	require.Equal(t, http.StatusOK, status)
	limits := resp["data"].([]any)
	require.Len(t, limits, 1)
	assert.Equal(t, "80", limits[0].(map[string]any)["remaining"])

	status, resp = app.call(t, domain.RoleEmployee, http.MethodGet, "/api/v1/transactions?type=payment", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), data(resp)["total"])

	// Terminal: a second confirmation changes nothing.
	status, resp = app.confirm(t, id, otp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "OTP_001", resp["error_code"])
	assert.Equal(t, "180", app.balance(t, domain.RoleEmployee))
}

func TestIntegration_CheckoutRejectedForUnassignedCategory(t *testing.T) {
	app := newTestApp(t)
	app.fundEmployee(t, "100")

	status, resp := app.call(t, domain.RoleMerchant, http.MethodPost, "/api/v1/payment-requests", map[string]any{
		"employee_id": employeeID, "category_id": groceries, "amount": "10",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "CAT_001", resp["error_code"])
}

func TestIntegration_InsufficientFundsLeavesRequestPending(t *testing.T) {
	app := newTestApp(t)
	app.fundEmployee(t, "50")

	id, otp := app.checkout(t, map[string]any{"employee_id": employeeID, "amount": "80"})

	status, resp := app.confirm(t, id, otp)
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "PAY_001", resp["error_code"])
	assert.Equal(t, "50", app.balance(t, domain.RoleEmployee))
	assert.Equal(t, "0", app.balance(t, domain.RoleMerchant))

	status, resp = app.call(t, domain.RoleMerchant, http.MethodGet, "/api/v1/payment-requests/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pending", data(resp)["status"])
}

func TestIntegration_LockoutAfterFailedAttempts(t *testing.T) {
	app := newTestApp(t)
	app.fundEmployee(t, "100")

	id, otp := app.checkout(t, map[string]any{"employee_id": employeeID, "amount": "10"})

	for i := 0; i < domain.MaxOTPAttempts; i++ {
		status, _ := app.confirm(t, id, wrongOTP(otp))
		require.Equal(t, http.StatusBadRequest, status)
	}

	status, resp := app.confirm(t, id, otp)
	assert.Equal(t, http.StatusLocked, status)
	assert.Equal(t, "OTP_002", resp["error_code"])
	assert.Equal(t, "100", app.balance(t, domain.RoleEmployee))
}

func TestIntegration_ExpiredRequest(t *testing.T) {
	app := newTestApp(t)
	app.fundEmployee(t, "100")

	id, otp := app.checkout(t, map[string]any{"employee_id": employeeID, "amount": "10"})
	require.True(t, app.db.ExpirePaymentRequest(uuid.MustParse(id)))

	status, resp := app.confirm(t, id, otp)
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, "OTP_003", resp["error_code"])
	assert.Equal(t, "100", app.balance(t, domain.RoleEmployee))
}

func TestIntegration_PaymentRequestVisibility(t *testing.T) {
	app := newTestApp(t)
	app.fundEmployee(t, "100")
	id, _ := app.checkout(t, map[string]any{"employee_id": employeeID, "amount": "10"})

	status, _ := app.call(t, domain.RoleCompany, http.MethodGet, "/api/v1/payment-requests/"+id, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, resp := app.call(t, domain.RoleEmployee, http.MethodGet, "/api/v1/payment-requests/"+id, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, resp["data"], "otp")
}

func TestIntegration_PayoutLifecycle(t *testing.T) {
	app := newTestApp(t)
	app.adjust(t, merchantID, "credit", "100")

	body := map[string]any{"amount": "60", "bank_account": "IR060170000000000000000001"}
	status, first := app.call(t, domain.RoleMerchant, http.MethodPost, "/api/v1/payouts", body, "Idempotency-Key", "withdraw-1")
	require.Equal(t, http.StatusCreated, status, first)
	payoutID := data(first)["id"].(string)

	status, replay := app.call(t, domain.RoleMerchant, http.MethodPost, "/api/v1/payouts", body, "Idempotency-Key", "withdraw-1")
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, payoutID, data(replay)["id"])
	assert.Equal(t, "40", app.balance(t, domain.RoleMerchant))

	status, resp := app.call(t, domain.RoleMerchant, http.MethodPost, "/api/v1/payouts",
		map[string]any{"amount": "41", "bank_account": "IR06"})
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "PAY_001", resp["error_code"])

	status, resp = app.call(t, domain.RoleAdmin, http.MethodPost, "/api/v1/admin/payouts/"+payoutID+"/reject",
		map[string]any{"notes": "iban mismatch"})
	require.Equal(t, http.StatusOK, status, resp)
	assert.Equal(t, "rejected", data(resp)["status"])
	assert.Equal(t, "100", app.balance(t, domain.RoleMerchant))

	status, resp = app.call(t, domain.RoleAdmin, http.MethodPost, "/api/v1/admin/payouts/"+payoutID+"/reject", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "PAY_008", resp["error_code"])
	assert.Equal(t, "100", app.balance(t, domain.RoleMerchant))

	status, resp = app.call(t, domain.RoleMerchant, http.MethodGet, "/api/v1/payouts?status=rejected", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, resp["data"], 1)
}

func TestIntegration_PayoutApproveThenPaid(t *testing.T) {
	app := newTestApp(t)
	app.adjust(t, merchantID, "credit", "100")

	status, resp := app.call(t, domain.RoleMerchant, http.MethodPost, "/api/v1/payouts",
		map[string]any{"amount": "100", "bank_account": "IR06"})
	require.Equal(t, http.StatusCreated, status, resp)
	id := data(resp)["id"].(string)

	status, resp = app.call(t, domain.RoleAdmin, http.MethodPost, "/api/v1/admin/payouts/"+id+"/paid", nil)
	assert.Equal(t, http.StatusConflict, status, resp)

	status, _ = app.call(t, domain.RoleAdmin, http.MethodPost, "/api/v1/admin/payouts/"+id+"/approve", nil)
	require.Equal(t, http.StatusOK, status)
	status, resp = app.call(t, domain.RoleAdmin, http.MethodPost, "/api/v1/admin/payouts/"+id+"/paid", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "paid", data(resp)["status"])
	assert.Equal(t, "0", app.balance(t, domain.RoleMerchant))
}

func TestIntegration_PaymentRequestRateLimit(t *testing.T) {
	app := newTestApp(t, withRateLimits(middleware.DefaultRateLimitRules(2, time.Minute)))
	app.fundEmployee(t, "100")

	body := map[string]any{"employee_id": employeeID, "amount": "1"}
	for i := 0; i < 2; i++ {
		status, _ := app.call(t, domain.RoleMerchant, http.MethodPost, "/api/v1/payment-requests", body)
		require.Equal(t, http.StatusCreated, status)
	}
	status, resp := app.call(t, domain.RoleMerchant, http.MethodPost, "/api/v1/payment-requests", body)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_001", resp["error_code"])
}

func TestIntegration_BulkCreditIsAllOrNothing(t *testing.T) {
	app := newTestApp(t)

	status, resp := app.call(t, domain.RoleAdmin, http.MethodPost, "/api/v1/admin/wallets/bulk-credit", map[string]any{
		"items": []map[string]any{
			{"account_id": employeeID, "amount": "25"},
			{"account_id": merchantID, "amount": "5"},
		},
	})
	require.Equal(t, http.StatusCreated, status, resp)
	assert.Len(t, resp["data"], 2)
	assert.Equal(t, "25", app.balance(t, domain.RoleEmployee))
	assert.Equal(t, "5", app.balance(t, domain.RoleMerchant))
}
