package service

import (
	"context"
	"fmt"
	"testing"

	"company-wallet/internal/core/domain"
	"company-wallet/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	committed bool
}

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error {
	m.committed = true
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}

// adjMatcher compares adjustments by guard and numeric delta.
type adjMatcher struct{ want domain.Adjustment }

func adj(a domain.Adjustment) gomock.Matcher { return adjMatcher{want: a} }

func (m adjMatcher) Matches(x any) bool {
	got, ok := x.(domain.Adjustment)
	return ok && got.Guard == m.want.Guard && got.Delta.Equal(m.want.Delta)
}

func (m adjMatcher) String() string {
	return fmt.Sprintf("adjustment %s %s", m.want.Guard, m.want.Delta)
}

func change(account int64, before, after string) domain.BalanceChange {
	return domain.BalanceChange{AccountID: account, Before: dec(before), After: dec(after)}
}
