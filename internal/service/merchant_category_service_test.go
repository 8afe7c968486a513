package service

import (
	"context"
	"testing"

	"company-wallet/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMerchantCategoryService_AssignDedupesAndSorts(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMerchantCategoryRepository(ctrl)
	transactor := mocks.NewMockDBTransactor(ctrl)
	svc := NewMerchantCategoryService(repo, transactor, zerolog.Nop())
	ctx := context.Background()

	tx := &mockTx{}
	transactor.EXPECT().Begin(ctx).Return(tx, nil)
	repo.EXPECT().Replace(ctx, tx, int64(20), []int64{1, 3, 5}).Return(nil)

	require.NoError(t, svc.Assign(ctx, 20, []int64{5, 1, 3, 1}))
	assert.True(t, tx.committed)
}

func TestMerchantCategoryService_AssignValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMerchantCategoryService(mocks.NewMockMerchantCategoryRepository(ctrl), mocks.NewMockDBTransactor(ctrl), zerolog.Nop())

	assertAppError(t, svc.Assign(context.Background(), 0, []int64{1}), "PAY_002")
	assertAppError(t, svc.Assign(context.Background(), 20, []int64{1, -2}), "PAY_002")
}

func TestMerchantCategoryService_ListAndAuthorize(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockMerchantCategoryRepository(ctrl)
	svc := NewMerchantCategoryService(repo, mocks.NewMockDBTransactor(ctrl), zerolog.Nop())
	ctx := context.Background()

	repo.EXPECT().ListByMerchant(ctx, int64(20)).Return([]int64{1, 2}, nil)
	ids, err := svc.List(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	repo.EXPECT().IsAssigned(ctx, int64(20), int64(9)).Return(false, nil)
	ok, err := svc.IsAuthorized(ctx, 20, 9)
	require.NoError(t, err)
	assert.False(t, ok)
}
