package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "company-wallet/internal/adapter/http/handler"
	"company-wallet/internal/adapter/http/middleware"
	"company-wallet/internal/adapter/storage/memory"
	redisStorage "company-wallet/internal/adapter/storage/redis"
	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"
	"company-wallet/internal/service"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	companyID  int64 = 1
	employeeID int64 = 10
	merchantID int64 = 20
	adminID    int64 = 99
	groceries  int64 = 3

	employeeNationalID = "0012345678"
	employeeMobile     = "09120000010"
)

// otpInbox records every code handed to the SMS edge.
type otpInbox struct {
	codes chan string
}

func (i *otpInbox) SendOTP(_ context.Context, _, code string) error {
	i.codes <- code
	return nil
}

func (i *otpInbox) next(t *testing.T) string {
	t.Helper()
	select {
	case code := <-i.codes:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("no OTP was sent")
		return ""
	}
}

// testApp wires the real HTTP stack over the in-memory store and an
// embedded Redis.
type testApp struct {
	server *httptest.Server
	db     *memory.DB
	inbox  *otpInbox
	tokens map[domain.Role]string
}

type appOption func(*httpHandler.RouterDeps)

func withRateLimits(rules map[string]middleware.RateLimitRule) appOption {
	return func(d *httpHandler.RouterDeps) { d.RateLimitRules = rules }
}

func newTestApp(t *testing.T, opts ...appOption) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := zerolog.Nop()
	db := memory.NewDB("IRR")
	db.PutDirectoryEntry(domain.DirectoryEntry{
		AccountID: employeeID, NationalID: employeeNationalID, Mobile: employeeMobile, CompanyID: companyID,
	})

	balances := memory.NewBalanceStore(db)
	ledger := memory.NewLedgerRepo(db)
	allowances := memory.NewAllowanceRepo(db)
	categories := memory.NewMerchantCategoryRepo(db)
	transactor := memory.NewTransactor(db)
	inbox := &otpInbox{codes: make(chan string, 64)}

	tokenSvc := service.NewJWTTokenService("integration-secret-at-least-32-bytes", time.Hour, "company-wallet-test")
	deps := httpHandler.RouterDeps{
		Ledger: service.NewWalletLedgerService(balances, ledger, transactor, log),
		Payments: service.NewPaymentRequestService(
			memory.NewPaymentRequestRepo(db), allowances, balances, ledger, categories,
			memory.NewDirectoryRepo(db), inbox, transactor, service.PaymentRequestConfig{}, log,
		),
		Payouts: service.NewPayoutService(
			memory.NewPayoutRepo(db), balances, ledger, redisStorage.NewIdempotencyCache(rdb), transactor, log,
		),
		Allowances:     service.NewAllowanceService(allowances, transactor, log),
		Categories:     service.NewMerchantCategoryService(categories, transactor, log),
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{db, redisStorage.NewHealthCheck(rdb, "redis-embedded")},
		Logger:         log,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	server := httptest.NewServer(httpHandler.SetupRouter(deps))
	t.Cleanup(server.Close)

	app := &testApp{server: server, db: db, inbox: inbox, tokens: map[domain.Role]string{}}
	for role, id := range map[domain.Role]int64{
		domain.RoleCompany:  companyID,
		domain.RoleEmployee: employeeID,
		domain.RoleMerchant: merchantID,
		domain.RoleAdmin:    adminID,
	} {
		token, _, err := tokenSvc.Generate(domain.Principal{AccountID: id, Role: role})
		require.NoError(t, err)
		app.tokens[role] = token
	}
	return app
}

// call performs one request as role and decodes the envelope.
func (a *testApp) call(t *testing.T, role domain.Role, method, path string, body any, headers ...string) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token, ok := a.tokens[role]; ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func data(resp map[string]any) map[string]any {
	d, _ := resp["data"].(map[string]any)
	return d
}

func (a *testApp) balance(t *testing.T, role domain.Role) string {
	t.Helper()
	status, resp := a.call(t, role, http.MethodGet, "/api/v1/wallets/balance", nil)
	require.Equal(t, http.StatusOK, status, resp)
	return data(resp)["balance"].(string)
}

func (a *testApp) adjust(t *testing.T, account int64, direction, amount string) {
	t.Helper()
	status, resp := a.call(t, domain.RoleAdmin, http.MethodPost, "/api/v1/admin/wallets/adjust", map[string]any{
		"account_id": account, "direction": direction, "amount": amount,
	})
	require.Equal(t, http.StatusCreated, status, resp)
}

// fundEmployee credits the company and charges the employee from it.
func (a *testApp) fundEmployee(t *testing.T, amount string) {
	t.Helper()
	a.adjust(t, companyID, "credit", amount)
	status, resp := a.call(t, domain.RoleCompany, http.MethodPost, "/api/v1/wallets/charge", map[string]any{
		"employee_id": employeeID, "amount": amount,
	})
	require.Equal(t, http.StatusCreated, status, resp)
}

// checkout opens a payment request and returns its id and the OTP sent.
func (a *testApp) checkout(t *testing.T, body map[string]any) (string, string) {
	t.Helper()
	status, resp := a.call(t, domain.RoleMerchant, http.MethodPost, "/api/v1/payment-requests", body)
	require.Equal(t, http.StatusCreated, status, resp)
	return data(resp)["id"].(string), a.inbox.next(t)
}

func (a *testApp) confirm(t *testing.T, id, otp string) (int, map[string]any) {
	t.Helper()
	return a.call(t, domain.RoleEmployee, http.MethodPost, "/api/v1/payment-requests/"+id+"/confirm", map[string]any{"otp": otp})
}

func wrongOTP(otp string) string {
	if otp == "000000" {
		return "111111"
	}
	return "000000"
}
