package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus tracks operator review of a withdrawal
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// WithdrawalRequest is a payout awaiting operator review. The amount is debited when the
// request is created and refunded if it is rejected.
type WithdrawalRequest struct {
	ID            int64            `db:"id" json:"id"`
	AccountID     int64            `db:"account_id" json:"account_id"`
	Amount        decimal.Decimal  `db:"amount" json:"amount"`
	PayoutAddress string           `db:"payout_address" json:"payout_address"`
	Status        WithdrawalStatus `db:"status" json:"status"`
	RequestedAt   time.Time        `db:"requested_at" json:"requested_at"`
	ProcessedAt   *time.Time       `db:"processed_at" json:"processed_at,omitempty"`
}
