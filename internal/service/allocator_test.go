package service

import (
	"context"
	"errors"
	"testing"

	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestAllocator_ReservationReleasesOnCompensate(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAllowanceRepository(ctrl)
	a := allocator{allowances: repo}
	ctx := context.Background()
	tx := &mockTx{}

	gomock.InOrder(
		repo.EXPECT().Adjust(ctx, tx, int64(10), int64(3), adj(domain.Consume(dec("40")))).Return(true, nil),
		repo.EXPECT().Adjust(ctx, tx, int64(10), int64(3), adj(domain.Release(dec("40")))).Return(true, nil),
	)

	comp := newCompensator(zerolog.Nop())
	ok, err := comp.attempt(ctx, a.reservation(tx, 10, 3, dec("40")))
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, comp.compensate(ctx))
}

func TestAllocator_RefusedReservationIsNotReleased(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAllowanceRepository(ctrl)
	a := allocator{allowances: repo}
	ctx := context.Background()
	tx := &mockTx{}

	repo.EXPECT().Adjust(ctx, tx, int64(10), int64(3), adj(domain.Consume(dec("40")))).Return(false, nil)

	comp := newCompensator(zerolog.Nop())
	ok, err := comp.attempt(ctx, a.reservation(tx, 10, 3, dec("40")))
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, comp.compensate(ctx))
}

func TestAllocator_WrapsStoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAllowanceRepository(ctrl)
	a := allocator{allowances: repo}
	ctx := context.Background()
	tx := &mockTx{}
	boom := errors.New("connection reset")

	repo.EXPECT().Adjust(ctx, tx, int64(10), int64(3), gomock.Any()).Return(false, boom).Times(2)

	_, err := a.consume(ctx, tx, 10, 3, dec("1"))
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "consume allowance 10/3")

	err = a.release(ctx, tx, 10, 3, dec("1"))
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "release allowance 10/3")
}
