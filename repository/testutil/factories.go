package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"wingo/database"
	"wingo/models"
)

var mobileSeq atomic.Int64

// NextMobile returns a mobile handle unique within the test binary
func NextMobile() string {
	return fmt.Sprintf("98%08d", mobileSeq.Add(1))
}

// CreateTestAccount inserts an active account funded with balance. The funding bypasses
// the ledger, so tests that check ledger sums should fund through a deposit instead.
func CreateTestAccount(t *testing.T, db *database.DB, balance decimal.Decimal) *models.Account {
	t.Helper()
	ctx := context.Background()

	account := &models.Account{
		Mobile:  NextMobile(),
		Status:  models.AccountStatusActive,
		Balance: balance,
	}
	err := db.QueryRow(ctx, `
		INSERT INTO accounts (mobile, password_hash, balance)
		VALUES ($1, 'x', $2)
		RETURNING id, created_at, updated_at`,
		account.Mobile, balance,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	require.NoError(t, err)
	return account
}

// CreateTestRound inserts a round in its opening phase
func CreateTestRound(t *testing.T, db *database.DB, id string, gameKind models.GameKind) *models.Round {
	t.Helper()

	phase := models.PhaseBetting
	if gameKind == models.GameKindCrash {
		phase = models.PhaseWaiting
	}
	round := &models.Round{ID: id, GameKind: gameKind, Phase: phase}
	_, err := db.Exec(context.Background(),
		`INSERT INTO rounds (id, game_kind, phase) VALUES ($1, $2, $3)`,
		round.ID, round.GameKind, round.Phase)
	require.NoError(t, err)
	return round
}

// ColorPtr returns a pointer to c
func ColorPtr(c models.Color) *models.Color {
	return &c
}
