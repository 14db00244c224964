package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus controls whether an account may log in
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusBlocked AccountStatus = "blocked"
)

// Account represents a player wallet. Balance is only ever changed through ledger entries.
type Account struct {
	ID           int64           `db:"id" json:"id"`
	Mobile       string          `db:"mobile" json:"mobile"`
	PasswordHash string          `db:"password_hash" json:"-"`
	Status       AccountStatus   `db:"status" json:"status"`
	IsAdmin      bool            `db:"is_admin" json:"is_admin"`
	Balance      decimal.Decimal `db:"balance" json:"balance"`
	Bonus        decimal.Decimal `db:"bonus" json:"bonus"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// IsBlocked reports whether the account has been suspended by an operator
func (a *Account) IsBlocked() bool {
	return a.Status == AccountStatusBlocked
}

// MaskedHandle returns the identifier shown to other players: the last four digits of
// the mobile handle
func (a *Account) MaskedHandle() string {
	return MaskMobile(a.Mobile)
}

// MaskMobile hides everything but the last four characters of a mobile handle
func MaskMobile(mobile string) string {
	runes := []rune(mobile)
	if len(runes) <= 4 {
		return "****" + string(runes)
	}
	return "****" + string(runes[len(runes)-4:])
}
