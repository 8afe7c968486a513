package integration

import (
	"net/http"
	"sync/atomic"
	"testing"

	"company-wallet/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestConcurrentConfirmSettlesOnce fires the same valid OTP from many
// clients; exactly one confirmation may move money.
func TestConcurrentConfirmSettlesOnce(t *testing.T) {
	app := newTestApp(t)
	app.fundEmployee(t, "100")
	id, otp := app.checkout(t, map[string]any{"employee_id": employeeID, "amount": "40"})

	var completed, rejected atomic.Int32
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			status, _ := app.confirm(t, id, otp)
			switch status {
			case http.StatusOK:
				completed.Add(1)
			case http.StatusConflict:
				rejected.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), completed.Load())
	assert.Equal(t, int32(9), rejected.Load())
	assert.Equal(t, "60", app.balance(t, domain.RoleEmployee))
	assert.Equal(t, "40", app.balance(t, domain.RoleMerchant))
}

// TestConcurrentChargesNeverOverdraw charges one company wallet from many
// clients at once; the balance must never go negative.
func TestConcurrentChargesNeverOverdraw(t *testing.T) {
	app := newTestApp(t)
	app.adjust(t, companyID, "credit", "100")

	var ok, refused atomic.Int32
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			status, _ := app.call(t, domain.RoleCompany, http.MethodPost, "/api/v1/wallets/charge", map[string]any{
				"employee_id": employeeID, "amount": "30",
			})
			switch status {
			case http.StatusCreated:
				ok.Add(1)
			case http.StatusPaymentRequired:
				refused.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(3), ok.Load())
	assert.Equal(t, int32(7), refused.Load())
	assert.Equal(t, "10", app.balance(t, domain.RoleCompany))
	assert.Equal(t, "90", app.balance(t, domain.RoleEmployee))
}

// TestConcurrentPayoutRetriesDebitOnce replays one idempotency key in
// parallel; the merchant is debited for a single payout.
func TestConcurrentPayoutRetriesDebitOnce(t *testing.T) {
	app := newTestApp(t)
	app.adjust(t, merchantID, "credit", "100")

	var created atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			status, _ := app.call(t, domain.RoleMerchant, http.MethodPost, "/api/v1/payouts",
				map[string]any{"amount": "25", "bank_account": "IR06"}, "Idempotency-Key", "same-key")
			if status == http.StatusCreated {
				created.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.GreaterOrEqual(t, created.Load(), int32(1))
	assert.Equal(t, "75", app.balance(t, domain.RoleMerchant))
}
