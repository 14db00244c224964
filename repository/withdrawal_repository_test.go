package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingo/models"
	"wingo/repository/testutil"
)

func TestWithdrawalRepository_Lifecycle(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewWithdrawalRepository(testDB.DB)
	ctx := context.Background()

	account := testutil.CreateTestAccount(t, testDB.DB, decimal.NewFromInt(100))

	request := &models.WithdrawalRequest{
		AccountID:     account.ID,
		Amount:        decimal.NewFromInt(40),
		PayoutAddress: "player@upi",
	}
	require.NoError(t, repo.Create(ctx, request))
	assert.Equal(t, models.WithdrawalStatusPending, request.Status)

	other := &models.WithdrawalRequest{AccountID: account.ID, Amount: decimal.NewFromInt(10), PayoutAddress: "player@upi"}
	require.NoError(t, repo.Create(ctx, other))

	ok, err := repo.Transition(ctx, request.ID, models.WithdrawalStatusPending, models.WithdrawalStatusApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Transition(ctx, request.ID, models.WithdrawalStatusPending, models.WithdrawalStatusRejected)
	require.NoError(t, err)
	assert.False(t, ok, "a processed request cannot change again")

	loaded, err := repo.GetForUpdate(ctx, request.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, models.WithdrawalStatusApproved, loaded.Status)
	assert.NotNil(t, loaded.ProcessedAt)

	all, err := repo.List(ctx, nil, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending := models.WithdrawalStatusPending
	onlyPending, err := repo.List(ctx, &pending, 10)
	require.NoError(t, err)
	require.Len(t, onlyPending, 1)
	assert.Equal(t, other.ID, onlyPending[0].ID)

	missing, err := repo.GetForUpdate(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
