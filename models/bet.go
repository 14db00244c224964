package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BetStatus is the settlement state of a bet
type BetStatus string

const (
	BetStatusOpen      BetStatus = "open"
	BetStatusWon       BetStatus = "won"
	BetStatusLost      BetStatus = "lost"
	BetStatusCanceled  BetStatus = "canceled"
	BetStatusCashedOut BetStatus = "cashed_out"
	BetStatusRefunded  BetStatus = "refunded"
)

// Bet is a stake placed on one round
type Bet struct {
	ID                int64            `db:"id" json:"id"`
	AccountID         int64            `db:"account_id" json:"-"`
	RoundID           string           `db:"round_id" json:"round_id"`
	GameKind          GameKind         `db:"game_kind" json:"game_kind"`
	Stake             decimal.Decimal  `db:"stake" json:"stake"`
	Color             *Color           `db:"color" json:"color,omitempty"`
	Status            BetStatus        `db:"status" json:"status"`
	CashoutMultiplier *decimal.Decimal `db:"cashout_multiplier" json:"cashout_multiplier,omitempty"`
	Payout            *decimal.Decimal `db:"payout" json:"payout,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	SettledAt         *time.Time       `db:"settled_at" json:"settled_at,omitempty"`
}

// LiveBet is the anonymized view of a bet shown to every observer
type LiveBet struct {
	Player            string           `json:"player"`
	Stake             decimal.Decimal  `json:"amount"`
	Color             *Color           `json:"color,omitempty"`
	Status            BetStatus        `json:"status"`
	CashoutMultiplier *decimal.Decimal `json:"cashout_multiplier,omitempty"`
}

// BetReceipt is returned to the bettor after a successful bet operation
type BetReceipt struct {
	Bet        *Bet            `json:"bet"`
	NewBalance decimal.Decimal `json:"new_balance"`
}
