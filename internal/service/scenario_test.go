package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"company-wallet/internal/adapter/storage/memory"
	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"
	"company-wallet/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	companyAccount  int64 = 1
	employeeAccount int64 = 10
	merchantAccount int64 = 20
	adminAccount    int64 = 99
	groceries       int64 = 3
)

// fixture wires every service over one in-memory store.
type fixture struct {
	db         *memory.DB
	balances   ports.BalanceStore
	allowances *memory.AllowanceRepo
	payments   *memory.PaymentRequestRepo
	wallet     *WalletLedgerService
	allowance  *AllowanceServiceImpl
	categories *MerchantCategoryServiceImpl
	requests   *PaymentRequestServiceImpl
	payouts    *PayoutServiceImpl
}

func newFixture(t *testing.T, balances ports.BalanceStore) *fixture {
	t.Helper()
	db := memory.NewDB("IRR")
	if balances == nil {
		balances = memory.NewBalanceStore(db)
	}
	log := zerolog.Nop()
	transactor := memory.NewTransactor(db)
	ledger := memory.NewLedgerRepo(db)
	allowances := memory.NewAllowanceRepo(db)
	payments := memory.NewPaymentRequestRepo(db)
	categories := memory.NewMerchantCategoryRepo(db)

	db.PutDirectoryEntry(domain.DirectoryEntry{AccountID: employeeAccount, NationalID: "0012345678", CompanyID: companyAccount})

	f := &fixture{
		db:         db,
		balances:   balances,
		allowances: allowances,
		payments:   payments,
		wallet:     NewWalletLedgerService(balances, ledger, transactor, log),
		allowance:  NewAllowanceService(allowances, transactor, log),
		categories: NewMerchantCategoryService(categories, transactor, log),
		requests: NewPaymentRequestService(
			payments, allowances, balances, ledger, categories,
			memory.NewDirectoryRepo(db), nil, transactor, PaymentRequestConfig{}, log,
		),
		payouts: NewPayoutService(memory.NewPayoutRepo(db), balances, ledger, nil, transactor, log),
	}
	return f
}

func (f *fixture) fund(t *testing.T, account int64, amount string) {
	t.Helper()
	_, err := f.wallet.Credit(context.Background(), ports.MovementRequest{AccountID: account, Amount: dec(amount)})
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, account int64) string {
	t.Helper()
	w, err := f.wallet.GetBalance(context.Background(), account)
	require.NoError(t, err)
	return w.Balance.String()
}

func (f *fixture) spent(t *testing.T, category int64) string {
	t.Helper()
	a, err := f.allowances.Get(context.Background(), employeeAccount, category)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a.SpentAmount.String()
}

func (f *fixture) create(t *testing.T, amount string, category *int64) *domain.PaymentRequest {
	t.Helper()
	pr, err := f.requests.Create(context.Background(), ports.CreatePaymentRequest{
		MerchantID: merchantAccount,
		EmployeeID: employeeAccount,
		CategoryID: category,
		Amount:     dec(amount),
	})
	require.NoError(t, err)
	return pr
}

func (f *fixture) confirm(pr *domain.PaymentRequest, otp string) (*domain.PaymentRequest, error) {
	return f.requests.Confirm(context.Background(), ports.ConfirmPaymentRequest{
		RequestID: pr.ID,
		Caller:    domain.Principal{AccountID: employeeAccount, Role: domain.RoleEmployee},
		OTP:       otp,
	})
}

func wrongOTP(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestScenario_CreditThenOverdraw(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	assert.Equal(t, "0", f.balance(t, employeeAccount))
	f.fund(t, employeeAccount, "100")
	assert.Equal(t, "100", f.balance(t, employeeAccount))

	_, err := f.wallet.Debit(ctx, ports.MovementRequest{AccountID: employeeAccount, Amount: dec("150")})
	assertAppError(t, err, "PAY_001")
	assert.Equal(t, "100", f.balance(t, employeeAccount))
}

func TestScenario_ConfirmOverAllowanceLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.fund(t, employeeAccount, "500")
	require.NoError(t, f.categories.Assign(ctx, merchantAccount, []int64{groceries}))
	require.NoError(t, f.allowance.SetLimits(ctx, employeeAccount, companyAccount, []domain.LimitSpec{{CategoryID: groceries, Limit: dec("200")}}))

	pr := f.create(t, "80", int64Ptr(groceries))

	// Another purchase eats into the allowance after the request was issued.
	ok, err := f.allowance.Consume(ctx, employeeAccount, groceries, dec("150"))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.confirm(pr, pr.OTP)
	assertAppError(t, err, "ALW_001")
	assert.Equal(t, "500", f.balance(t, employeeAccount))
	assert.Equal(t, "150", f.spent(t, groceries))

	stored, err := f.payments.GetByID(ctx, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, stored.Status)
}

func TestScenario_ConfirmInsufficientFunds(t *testing.T) {
	f := newFixture(t, nil)

	f.fund(t, employeeAccount, "500")
	pr := f.create(t, "600", nil)

	_, err := f.confirm(pr, pr.OTP)
	assertAppError(t, err, "PAY_001")
	assert.Equal(t, "500", f.balance(t, employeeAccount))
	assert.Equal(t, "0", f.balance(t, merchantAccount))
}

func TestScenario_PayoutRejectRefundsOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.fund(t, merchantAccount, "300")
	p, err := f.payouts.Request(ctx, ports.PayoutInput{MerchantID: merchantAccount, Amount: dec("300"), BankAccount: "IR001"})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPending, p.Status)
	assert.Equal(t, "0", f.balance(t, merchantAccount))

	p, err = f.payouts.Reject(ctx, p.ID, adminAccount, "closed account")
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusRejected, p.Status)
	assert.Equal(t, "300", f.balance(t, merchantAccount))

	_, err = f.payouts.Reject(ctx, p.ID, adminAccount, "again")
	assertAppError(t, err, "PAY_008")
	assert.Equal(t, "300", f.balance(t, merchantAccount))
}

func TestScenario_PayoutApproveThenPaid(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.fund(t, merchantAccount, "50")
	p, err := f.payouts.Request(ctx, ports.PayoutInput{MerchantID: merchantAccount, Amount: dec("20"), BankAccount: "IR001"})
	require.NoError(t, err)

	_, err = f.payouts.MarkPaid(ctx, p.ID, adminAccount)
	assertAppError(t, err, "PAY_008")

	p, err = f.payouts.Approve(ctx, p.ID, adminAccount)
	require.NoError(t, err)
	require.NotNil(t, p.ApprovedBy)
	assert.Equal(t, adminAccount, *p.ApprovedBy)

	p, err = f.payouts.MarkPaid(ctx, p.ID, adminAccount)
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPaid, p.Status)
	assert.NotNil(t, p.ProcessedAt)
	assert.Equal(t, "30", f.balance(t, merchantAccount))
}

func TestScenario_ConcurrentConfirmTransfersOnce(t *testing.T) {
	f := newFixture(t, nil)

	f.fund(t, employeeAccount, "500")
	pr := f.create(t, "120", nil)

	var completed, already atomic.Int32
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := f.confirm(pr, pr.OTP)
			switch {
			case err == nil:
				completed.Add(1)
			case apperror.CodeOf(err) == "OTP_001":
				already.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), completed.Load())
	assert.Equal(t, int32(1), already.Load())
	assert.Equal(t, "380", f.balance(t, employeeAccount))
	assert.Equal(t, "120", f.balance(t, merchantAccount))
}

func TestScenario_LockoutAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, nil)

	f.fund(t, employeeAccount, "500")
	pr := f.create(t, "10", nil)
	bad := wrongOTP(pr.OTP)

	for i := 0; i < domain.MaxOTPAttempts; i++ {
		_, err := f.confirm(pr, bad)
		assertAppError(t, err, "OTP_004")
	}

	_, err := f.confirm(pr, pr.OTP)
	assertAppError(t, err, "OTP_002")
	assert.Equal(t, "500", f.balance(t, employeeAccount))

	stored, err := f.payments.GetByID(context.Background(), pr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusLocked, stored.Status)
	assert.Equal(t, domain.MaxOTPAttempts, stored.FailedAttempts)
}

func TestScenario_ExpiredRequestStaysExpired(t *testing.T) {
	f := newFixture(t, nil)

	f.fund(t, employeeAccount, "500")
	pr := f.create(t, "10", nil)
	require.True(t, f.db.ExpirePaymentRequest(pr.ID))

	_, err := f.confirm(pr, pr.OTP)
	assertAppError(t, err, "OTP_003")

	stored, err := f.payments.GetByID(context.Background(), pr.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusExpired, stored.Status)

	_, err = f.confirm(pr, pr.OTP)
	assertAppError(t, err, "OTP_003")
	assert.Equal(t, "500", f.balance(t, employeeAccount))
}

func TestScenario_CompletedRequestIsTerminal(t *testing.T) {
	f := newFixture(t, nil)

	f.fund(t, employeeAccount, "500")
	pr := f.create(t, "10", nil)

	_, err := f.confirm(pr, pr.OTP)
	require.NoError(t, err)

	_, err = f.confirm(pr, wrongOTP(pr.OTP))
	assertAppError(t, err, "OTP_001")
	assert.Equal(t, "490", f.balance(t, employeeAccount))
}

func TestScenario_ConfirmByNationalIDWithAllowance(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.fund(t, employeeAccount, "500")
	require.NoError(t, f.categories.Assign(ctx, merchantAccount, []int64{groceries}))
	require.NoError(t, f.allowance.SetLimits(ctx, employeeAccount, companyAccount, []domain.LimitSpec{{CategoryID: groceries, Limit: dec("200")}}))

	pr, err := f.requests.Create(ctx, ports.CreatePaymentRequest{
		MerchantID: merchantAccount,
		NationalID: "0012345678",
		CategoryID: int64Ptr(groceries),
		Amount:     dec("80"),
	})
	require.NoError(t, err)

	out, err := f.confirm(pr, pr.OTP)
	require.NoError(t, err)
	assert.Equal(t, "120", out.Metadata["category_remaining_after"])
	assert.Equal(t, "80", f.spent(t, groceries))
	assert.Equal(t, "420", f.balance(t, employeeAccount))
	assert.Equal(t, "80", f.balance(t, merchantAccount))

	entries, total, err := f.wallet.History(ctx, ports.LedgerListParams{AccountID: employeeAccount})
	require.NoError(t, err)
	// credit, payment_request, payment
	assert.Equal(t, int64(3), total)
	assert.Equal(t, domain.EntryTypePayment, entries[0].Type)
}

// flakyBalances fails every credit to one account.
type flakyBalances struct {
	ports.BalanceStore
	failCreditTo int64
	armed        bool
}

func (b *flakyBalances) Adjust(ctx context.Context, tx pgx.Tx, accountID int64, a domain.Adjustment) (domain.BalanceChange, bool, error) {
	if b.armed && accountID == b.failCreditTo && a.Guard == domain.GuardNone {
		return domain.BalanceChange{}, false, errors.New("replica unavailable")
	}
	return b.BalanceStore.Adjust(ctx, tx, accountID, a)
}

func TestScenario_TransferFailureReleasesAllowance(t *testing.T) {
	flaky := &flakyBalances{failCreditTo: merchantAccount}
	f := newFixture(t, flaky)
	flaky.BalanceStore = memory.NewBalanceStore(f.db)
	ctx := context.Background()

	f.fund(t, employeeAccount, "500")
	require.NoError(t, f.categories.Assign(ctx, merchantAccount, []int64{groceries}))
	require.NoError(t, f.allowance.SetLimits(ctx, employeeAccount, companyAccount, []domain.LimitSpec{{CategoryID: groceries, Limit: dec("200")}}))
	pr := f.create(t, "80", int64Ptr(groceries))

	flaky.armed = true
	_, err := f.confirm(pr, pr.OTP)
	assertAppError(t, err, "SYS_001")

	assert.Equal(t, "0", f.spent(t, groceries))
	assert.Equal(t, "500", f.balance(t, employeeAccount))
	assert.Equal(t, "0", f.balance(t, merchantAccount))

	flaky.armed = false
	_, err = f.confirm(pr, pr.OTP)
	require.NoError(t, err)
	assert.Equal(t, "80", f.spent(t, groceries))
}

func TestScenario_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := newFixture(t, nil)
	f.fund(t, employeeAccount, "100")

	var ok atomic.Int32
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := f.wallet.Debit(context.Background(), ports.MovementRequest{AccountID: employeeAccount, Amount: dec("30")})
			if err == nil {
				ok.Add(1)
				return nil
			}
			if apperror.CodeOf(err) == "PAY_001" {
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(3), ok.Load())
	assert.Equal(t, "10", f.balance(t, employeeAccount))
}
