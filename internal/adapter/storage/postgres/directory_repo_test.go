package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryRepo_GetByNationalID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDirectoryRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM employee_directory WHERE national_id").
		WithArgs("0012345678").
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "national_id", "mobile", "company_id"}).
			AddRow(int64(10), "0012345678", "09120000000", int64(1)))

	e, err := repo.GetByNationalID(context.Background(), "0012345678")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, int64(10), e.AccountID)
	assert.Equal(t, "09120000000", e.Mobile)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDirectoryRepo_GetByAccountID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewDirectoryRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM employee_directory WHERE account_id").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "national_id", "mobile", "company_id"}))

	e, err := repo.GetByAccountID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, e)
	assert.NoError(t, mock.ExpectationsWereMet())
}
