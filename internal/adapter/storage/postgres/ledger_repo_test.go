package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ledgerRowColumns = []string{
	"id", "type", "sender_id", "receiver_id", "amount", "status", "related_request", "metadata",
	"sender_balance_before", "sender_balance_after", "receiver_balance_before", "receiver_balance_after", "created_at",
}

func TestLedgerRepo_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	ctx := context.Background()

	entry := domain.NewLedgerEntry(domain.EntryTypeTransfer, 1, 2, decimal.NewFromInt(30), domain.EntryStatusCompleted).
		WithSenderSnapshot(domain.BalanceChange{AccountID: 1, Before: decimal.NewFromInt(100), After: decimal.NewFromInt(70)}).
		WithReceiverSnapshot(domain.BalanceChange{AccountID: 2, Before: decimal.Zero, After: decimal.NewFromInt(30)})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(entry.ID, domain.EntryTypeTransfer, int64(1), int64(2), "30", domain.EntryStatusCompleted,
			pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.Append(ctx, tx, entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_Append_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	ctx := context.Background()
	entry := domain.NewLedgerEntry(domain.EntryTypeCharge, domain.ExternalAccount, 5, decimal.NewFromInt(10), domain.EntryStatusCompleted)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO ledger_entries").WillReturnError(errors.New("disk full"))

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	err = repo.Append(ctx, tx, entry)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "insert ledger entry")
}

func TestLedgerRepo_ListByAccount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	now := time.Now().UTC()
	id := uuid.New()
	related := uuid.New()
	before, after := "100.000000", "70.000000"

	mock.ExpectQuery("SELECT COUNT.+ FROM ledger_entries WHERE").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM ledger_entries WHERE .+ ORDER BY created_at DESC LIMIT").
		WithArgs(int64(1), 20, 0).
		WillReturnRows(pgxmock.NewRows(ledgerRowColumns).AddRow(
			id, domain.EntryTypePayment, int64(1), int64(2), "30.000000", domain.EntryStatusCompleted,
			&related, []byte(`{"category_id":3}`),
			&before, &after, nil, nil, now,
		))

	entries, total, err := repo.ListByAccount(context.Background(), ports.LedgerListParams{
		AccountID: 1,
		Page:      1,
		PageSize:  20,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, id, e.ID)
	assert.Equal(t, domain.EntryTypePayment, e.Type)
	assert.Equal(t, "30", e.Amount.String())
	require.NotNil(t, e.RelatedRequest)
	assert.Equal(t, related, *e.RelatedRequest)
	assert.Equal(t, float64(3), e.Metadata["category_id"])
	require.NotNil(t, e.SenderBalanceAfter)
	assert.Equal(t, "70", e.SenderBalanceAfter.String())
	assert.Nil(t, e.ReceiverBalanceBefore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepo_ListByAccount_TypeFilter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepo(mock)
	typ := domain.EntryTypePayoutRequest

	mock.ExpectQuery("SELECT COUNT.+ FROM ledger_entries WHERE .+ AND type").
		WithArgs(int64(9), typ).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery("SELECT .+ FROM ledger_entries").
		WithArgs(int64(9), typ, 10, 10).
		WillReturnRows(pgxmock.NewRows(ledgerRowColumns))

	entries, total, err := repo.ListByAccount(context.Background(), ports.LedgerListParams{
		AccountID: 9,
		Type:      &typ,
		Page:      2,
		PageSize:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
