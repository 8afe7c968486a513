package service

import (
	"context"
	"fmt"

	"company-wallet/internal/core/domain"
	"company-wallet/internal/core/ports"
	"company-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultHistoryPageSize = 20
	maxHistoryPageSize     = 100
)

// WalletLedgerService implements ports.WalletLedger.
type WalletLedgerService struct {
	funds      funds
	balances   ports.BalanceStore
	ledger     ports.LedgerRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWalletLedgerService creates a new WalletLedgerService.
func NewWalletLedgerService(
	balances ports.BalanceStore,
	ledger ports.LedgerRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletLedgerService {
	return &WalletLedgerService{
		funds:      funds{balances: balances, log: log},
		balances:   balances,
		ledger:     ledger,
		transactor: transactor,
		log:        log,
	}
}

// GetBalance returns the account balance, creating a zero wallet if needed.
func (s *WalletLedgerService) GetBalance(ctx context.Context, accountID int64) (*domain.WalletBalance, error) {
	if accountID <= 0 {
		return nil, apperror.Validation("account_id is required")
	}
	w, err := s.balances.Get(ctx, accountID)
	if err != nil {
		return nil, storageErr("get balance", err)
	}
	return w, nil
}

// Credit adds funds from outside the system.
func (s *WalletLedgerService) Credit(ctx context.Context, req ports.MovementRequest) (*domain.LedgerEntry, error) {
	typ, err := validateMovement(req)
	if err != nil {
		return nil, err
	}

	var entry *domain.LedgerEntry
	err = runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
		change, err := s.funds.credit(ctx, tx, req.AccountID, req.Amount)
		if err != nil {
			return storageErr("credit", err)
		}
		entry = domain.NewLedgerEntry(typ, domain.ExternalAccount, req.AccountID, req.Amount, domain.EntryStatusCompleted).
			WithReceiverSnapshot(change)
		annotateMovement(entry, req)
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return storageErr("append ledger entry", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("account_id", req.AccountID).
		Str("amount", entry.Amount.String()).
		Str("type", string(typ)).
		Msg("wallet credited")
	return entry, nil
}

// Debit removes funds to outside the system, refusing to overdraw.
func (s *WalletLedgerService) Debit(ctx context.Context, req ports.MovementRequest) (*domain.LedgerEntry, error) {
	typ, err := validateMovement(req)
	if err != nil {
		return nil, err
	}

	var entry *domain.LedgerEntry
	err = runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
		change, ok, err := s.funds.debit(ctx, tx, req.AccountID, req.Amount)
		if err != nil {
			return storageErr("debit", err)
		}
		if !ok {
			return apperror.ErrInsufficientFunds()
		}
		entry = domain.NewLedgerEntry(typ, req.AccountID, domain.ExternalAccount, req.Amount, domain.EntryStatusCompleted).
			WithSenderSnapshot(change)
		annotateMovement(entry, req)
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return storageErr("append ledger entry", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("account_id", req.AccountID).
		Str("amount", entry.Amount.String()).
		Str("type", string(typ)).
		Msg("wallet debited")
	return entry, nil
}

// Transfer moves funds between two wallets atomically.
func (s *WalletLedgerService) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.LedgerEntry, error) {
	if !domain.IsPositiveAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.From <= 0 || req.To <= 0 {
		return nil, apperror.Validation("both accounts are required")
	}
	if req.From == req.To {
		return nil, apperror.Validation("cannot transfer to the same account")
	}
	typ := req.Type
	if typ == "" {
		typ = domain.EntryTypeTransfer
	}
	if !typ.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown entry type %q", typ))
	}

	var entry *domain.LedgerEntry
	err := runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
		res, ok, err := s.funds.transfer(ctx, tx, req.From, req.To, req.Amount)
		if err != nil {
			return storageErr("transfer", err)
		}
		if !ok {
			return apperror.ErrInsufficientFunds()
		}
		entry = domain.NewLedgerEntry(typ, req.From, req.To, req.Amount, domain.EntryStatusCompleted).
			WithSenderSnapshot(res.Sender).
			WithReceiverSnapshot(res.Receiver)
		for k, v := range req.Metadata {
			entry.Metadata[k] = v
		}
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return storageErr("append ledger entry", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("from", req.From).
		Int64("to", req.To).
		Str("amount", entry.Amount.String()).
		Str("type", string(typ)).
		Msg("transfer completed")
	return entry, nil
}

// Charge moves company funds to an employee wallet.
func (s *WalletLedgerService) Charge(ctx context.Context, companyID, employeeID int64, amount decimal.Decimal) (*domain.LedgerEntry, error) {
	return s.Transfer(ctx, ports.TransferRequest{
		From:   companyID,
		To:     employeeID,
		Amount: amount,
		Type:   domain.EntryTypeCharge,
	})
}

// BulkCredit credits every item in one transaction. One bad row fails the batch.
func (s *WalletLedgerService) BulkCredit(ctx context.Context, req ports.BulkCreditRequest) ([]domain.LedgerEntry, error) {
	if len(req.Items) == 0 {
		return nil, apperror.Validation("items must not be empty")
	}
	for i, item := range req.Items {
		if item.AccountID <= 0 {
			return nil, apperror.Validation(fmt.Sprintf("items[%d]: account_id is required", i))
		}
		if !domain.IsPositiveAmount(item.Amount) {
			return nil, apperror.Validation(fmt.Sprintf("items[%d]: amount must be positive", i))
		}
	}

	batchID := uuid.New()
	entries := make([]domain.LedgerEntry, 0, len(req.Items))
	err := runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
		for _, item := range req.Items {
			change, err := s.funds.credit(ctx, tx, item.AccountID, item.Amount)
			if err != nil {
				return storageErr("bulk credit", err)
			}
			entry := domain.NewLedgerEntry(domain.EntryTypeAdminBulkCredit, domain.ExternalAccount, item.AccountID, item.Amount, domain.EntryStatusCompleted).
				WithReceiverSnapshot(change)
			entry.Metadata["actor_id"] = req.ActorID
			entry.Metadata["batch_id"] = batchID.String()
			entry.Metadata["batch_size"] = len(req.Items)
			if err := s.ledger.Append(ctx, tx, entry); err != nil {
				return storageErr("append ledger entry", err)
			}
			entries = append(entries, *entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("batch_id", batchID.String()).
		Int("count", len(entries)).
		Int64("actor_id", req.ActorID).
		Msg("bulk credit applied")
	return entries, nil
}

// History lists ledger entries touching an account, newest first.
func (s *WalletLedgerService) History(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	if params.AccountID <= 0 {
		return nil, 0, apperror.Validation("account_id is required")
	}
	if params.Type != nil && !params.Type.Valid() {
		return nil, 0, apperror.Validation(fmt.Sprintf("unknown entry type %q", *params.Type))
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultHistoryPageSize
	}
	if params.PageSize > maxHistoryPageSize {
		params.PageSize = maxHistoryPageSize
	}

	entries, total, err := s.ledger.ListByAccount(ctx, params)
	if err != nil {
		return nil, 0, storageErr("list ledger entries", err)
	}
	return entries, total, nil
}

func validateMovement(req ports.MovementRequest) (domain.EntryType, error) {
	if !domain.IsPositiveAmount(req.Amount) {
		return "", apperror.ErrInvalidAmount()
	}
	if req.AccountID <= 0 {
		return "", apperror.Validation("account_id is required")
	}
	typ := req.Type
	if typ == "" {
		typ = domain.EntryTypeAdminAdjustment
	}
	if !typ.Valid() {
		return "", apperror.Validation(fmt.Sprintf("unknown entry type %q", typ))
	}
	return typ, nil
}

func annotateMovement(entry *domain.LedgerEntry, req ports.MovementRequest) {
	if req.ActorID != 0 {
		entry.Metadata["actor_id"] = req.ActorID
	}
	if req.Note != "" {
		entry.Metadata["note"] = req.Note
	}
}
