package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"wingo/events"
	"wingo/models"
	"wingo/observability"
)

// LedgerRequest describes one balance mutation. Amount is always positive; the entry
// kind decides the direction.
type LedgerRequest struct {
	AccountID     int64
	Amount        decimal.Decimal
	Kind          models.EntryKind
	Description   string
	CorrelationID *string
}

// CreditAccount adds to an account balance inside uow and appends the matching ledger
// entry. Provider deposits are idempotent on their correlation id: a repeat returns
// ErrAlreadyProcessed and the caller must roll back.
func CreditAccount(ctx context.Context, uow UnitOfWork, req LedgerRequest) (*models.LedgerEntry, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !req.Kind.IsCredit() {
		return nil, fmt.Errorf("%s is not a credit kind", req.Kind)
	}

	if req.Kind == models.EntryKindDeposit && req.CorrelationID != nil {
		exists, err := uow.LedgerRepository().DepositExists(ctx, *req.CorrelationID)
		if err != nil {
			return nil, fmt.Errorf("failed to check deposit %s: %w", *req.CorrelationID, err)
		}
		if exists {
			return nil, ErrAlreadyProcessed
		}
	}

	newBalance, err := uow.AccountRepository().AddBalance(ctx, req.AccountID, req.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to credit account %d: %w", req.AccountID, err)
	}

	entry := &models.LedgerEntry{
		AccountID:     req.AccountID,
		Delta:         req.Amount,
		BalanceAfter:  newBalance,
		Kind:          req.Kind,
		Description:   req.Description,
		CorrelationID: req.CorrelationID,
	}
	if err := RecordLedgerEntry(ctx, uow, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// DebitAccount takes from an account balance inside uow and appends the matching ledger
// entry. The conditional decrement is the authoritative guard against negative balances.
func DebitAccount(ctx context.Context, uow UnitOfWork, req LedgerRequest) (*models.LedgerEntry, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !req.Kind.IsDebit() {
		return nil, fmt.Errorf("%s is not a debit kind", req.Kind)
	}

	newBalance, err := uow.AccountRepository().DeductBalance(ctx, req.AccountID, req.Amount)
	if err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		AccountID:     req.AccountID,
		Delta:         req.Amount.Neg(),
		BalanceAfter:  newBalance,
		Kind:          req.Kind,
		Description:   req.Description,
		CorrelationID: req.CorrelationID,
	}
	if err := RecordLedgerEntry(ctx, uow, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// AnnotateAccount appends a zero-delta audit entry such as an approved withdrawal
func AnnotateAccount(ctx context.Context, uow UnitOfWork, accountID int64, kind models.EntryKind, description string, correlationID *string) (*models.LedgerEntry, error) {
	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", accountID, err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	entry := &models.LedgerEntry{
		AccountID:     accountID,
		Delta:         decimal.Zero,
		BalanceAfter:  account.Balance,
		Kind:          kind,
		Description:   description,
		CorrelationID: correlationID,
	}
	if err := RecordLedgerEntry(ctx, uow, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RecordLedgerEntry appends an entry and queues the balance change event.
// Every balance mutation in the system goes through here.
func RecordLedgerEntry(ctx context.Context, uow UnitOfWork, entry *models.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid ledger entry: %w", err)
	}

	if err := uow.LedgerRepository().Append(ctx, entry); err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			return err
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		EntryID:     entry.ID,
		AccountID:   entry.AccountID,
		OldBalance:  entry.BalanceAfter.Sub(entry.Delta),
		NewBalance:  entry.BalanceAfter,
		Kind:        entry.Kind,
		Delta:       entry.Delta,
		Description: entry.Description,
	})

	observability.GetMetrics().RecordLedgerEntry(string(entry.Kind))
	return nil
}
