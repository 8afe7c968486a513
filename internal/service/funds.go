package service

import (
	"context"
	"errors"
	"fmt"

	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"
	"company-wallet/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// funds performs transaction-scoped balance movements. Every workflow that
// touches money goes through it so each step is one BalanceStore.Adjust.
type funds struct {
	balances ports.BalanceStore
	log      zerolog.Logger
}

func (f funds) credit(ctx context.Context, tx pgx.Tx, accountID int64, amount decimal.Decimal) (domain.BalanceChange, error) {
	change, applied, err := f.balances.Adjust(ctx, tx, accountID, domain.Credit(amount))
	if err != nil {
		return change, fmt.Errorf("credit account %d: %w", accountID, err)
	}
	if !applied {
		return change, fmt.Errorf("credit account %d: not applied", accountID)
	}
	return change, nil
}

func (f funds) debit(ctx context.Context, tx pgx.Tx, accountID int64, amount decimal.Decimal) (domain.BalanceChange, bool, error) {
	change, applied, err := f.balances.Adjust(ctx, tx, accountID, domain.Debit(amount))
	if err != nil {
		return change, false, fmt.Errorf("debit account %d: %w", accountID, err)
	}
	return change, applied, nil
}

// transfer debits from and credits to. ok is false when from lacks funds,
// in which case nothing was changed. A failed credit restores the sender
// before the error is returned.
func (f funds) transfer(ctx context.Context, tx pgx.Tx, from, to int64, amount decimal.Decimal) (domain.TransferResult, bool, error) {
	var res domain.TransferResult
	comp := newCompensator(f.log)

	ok, err := comp.attempt(ctx, provisional{
		name: "debit sender",
		apply: func(ctx context.Context) (bool, error) {
			change, applied, err := f.debit(ctx, tx, from, amount)
			res.Sender = change
			return applied, err
		},
		undo: func(ctx context.Context) error {
			_, err := f.credit(ctx, tx, from, amount)
			return err
		},
	})
	if err != nil || !ok {
		return res, false, err
	}

	res.Receiver, err = f.credit(ctx, tx, to, amount)
	if err != nil {
		if cerr := comp.compensate(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return res, false, err
	}
	return res, true, nil
}

// runInTx begins a transaction, runs fn and commits. The transaction is
// rolled back if fn returns an error.
func runInTx(ctx context.Context, transactor ports.DBTransactor, fn func(tx pgx.Tx) error) error {
	tx, err := transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// storageErr passes AppErrors through and wraps anything else as SYS_001.
func storageErr(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.ErrStorageUnavailable(fmt.Errorf("%s: %w", op, err))
}
