package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind represents the reason for a balance change
type EntryKind string

const (
	EntryKindDeposit            EntryKind = "deposit"
	EntryKindBet                EntryKind = "bet"
	EntryKindWin                EntryKind = "win"
	EntryKindRefund             EntryKind = "refund"
	EntryKindWithdrawalRequest  EntryKind = "withdrawal_request"
	EntryKindWithdrawalApproved EntryKind = "withdrawal_approved"
	EntryKindWithdrawalRefund   EntryKind = "withdrawal_refund"
	EntryKindDepositFailed      EntryKind = "deposit_failed"
)

// IsCredit reports whether entries of this kind add to the balance
func (k EntryKind) IsCredit() bool {
	switch k {
	case EntryKindDeposit, EntryKindWin, EntryKindRefund, EntryKindWithdrawalRefund:
		return true
	default:
		return false
	}
}

// IsDebit reports whether entries of this kind take from the balance
func (k EntryKind) IsDebit() bool {
	return k == EntryKindBet || k == EntryKindWithdrawalRequest
}

// IsAudit reports whether entries of this kind are informational and carry no delta
func (k EntryKind) IsAudit() bool {
	return k == EntryKindWithdrawalApproved || k == EntryKindDepositFailed
}

// LedgerEntry is an immutable record of a balance change
type LedgerEntry struct {
	ID            int64           `db:"id" json:"id"`
	AccountID     int64           `db:"account_id" json:"account_id"`
	Delta         decimal.Decimal `db:"delta" json:"delta"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	Kind          EntryKind       `db:"kind" json:"kind"`
	Description   string          `db:"description" json:"description"`
	CorrelationID *string         `db:"correlation_id" json:"correlation_id,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Validate checks that the sign of the delta matches the entry kind
func (e *LedgerEntry) Validate() error {
	switch {
	case e.Kind.IsCredit() && !e.Delta.IsPositive():
		return fmt.Errorf("%s entry must have a positive delta, got %s", e.Kind, e.Delta)
	case e.Kind.IsDebit() && !e.Delta.IsNegative():
		return fmt.Errorf("%s entry must have a negative delta, got %s", e.Kind, e.Delta)
	case e.Kind.IsAudit() && !e.Delta.IsZero():
		return fmt.Errorf("%s entry must not change the balance, got %s", e.Kind, e.Delta)
	case !e.Kind.IsCredit() && !e.Kind.IsDebit() && !e.Kind.IsAudit():
		return fmt.Errorf("unknown ledger entry kind %q", e.Kind)
	}
	return nil
}
