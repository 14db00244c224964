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

func TestPaymentOrderRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewPaymentOrderRepository(testDB.DB)
	ctx := context.Background()
	account := testutil.CreateTestAccount(t, testDB.DB, decimal.Zero)

	order := &models.PaymentOrder{
		OrderID:   "order_0123456789abcdef0123456789abcdef",
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("500.00"),
	}
	require.NoError(t, repo.Create(ctx, order))
	assert.Equal(t, models.OrderStatusActive, order.Status)

	stored, err := repo.GetByID(ctx, order.OrderID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, account.ID, stored.AccountID)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(500)))

	changed, err := repo.UpdateStatus(ctx, order.OrderID, models.OrderStatusPaid)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateStatus(ctx, order.OrderID, models.OrderStatusPaid)
	require.NoError(t, err)
	assert.False(t, changed, "same status twice is not a change")

	changed, err = repo.UpdateStatus(ctx, "order_missing", models.OrderStatusFailed)
	require.NoError(t, err)
	assert.False(t, changed)

	missing, err := repo.GetByID(ctx, "order_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	duplicate := &models.PaymentOrder{OrderID: order.OrderID, AccountID: account.ID, Amount: decimal.NewFromInt(1)}
	assert.Error(t, repo.Create(ctx, duplicate))
}

func TestPaymentOrderRepository_SettledOrdersKeepTheirStatus(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	repo := NewPaymentOrderRepository(testDB.DB)
	ctx := context.Background()
	account := testutil.CreateTestAccount(t, testDB.DB, decimal.Zero)

	create := func(orderID string) {
		t.Helper()
		require.NoError(t, repo.Create(ctx, &models.PaymentOrder{
			OrderID:   orderID,
			AccountID: account.ID,
			Amount:    decimal.NewFromInt(100),
		}))
	}
	statusOf := func(orderID string) models.OrderStatus {
		t.Helper()
		order, err := repo.GetByID(ctx, orderID)
		require.NoError(t, err)
		require.NotNil(t, order)
		return order.Status
	}

	create("order_paid")
	changed, err := repo.UpdateStatus(ctx, "order_paid", models.OrderStatusPaid)
	require.NoError(t, err)
	require.True(t, changed)

	for _, late := range []models.OrderStatus{models.OrderStatusFailed, models.OrderStatusActive, models.OrderStatusExpired} {
		changed, err := repo.UpdateStatus(ctx, "order_paid", late)
		require.NoError(t, err)
		assert.False(t, changed, "paid order moved to %s", late)
	}
	assert.Equal(t, models.OrderStatusPaid, statusOf("order_paid"))

	changed, err = repo.UpdateStatus(ctx, "order_paid", models.OrderStatusRefunded)
	require.NoError(t, err)
	assert.True(t, changed, "a paid order can be refunded")

	for _, late := range []models.OrderStatus{models.OrderStatusPaid, models.OrderStatusFailed} {
		changed, err := repo.UpdateStatus(ctx, "order_paid", late)
		require.NoError(t, err)
		assert.False(t, changed, "refunded order moved to %s", late)
	}
	assert.Equal(t, models.OrderStatusRefunded, statusOf("order_paid"))

	create("order_retry")
	changed, err = repo.UpdateStatus(ctx, "order_retry", models.OrderStatusFailed)
	require.NoError(t, err)
	require.True(t, changed)
	changed, err = repo.UpdateStatus(ctx, "order_retry", models.OrderStatusPaid)
	require.NoError(t, err)
	assert.True(t, changed, "a failed order can still be paid")
	assert.Equal(t, models.OrderStatusPaid, statusOf("order_retry"))
}
