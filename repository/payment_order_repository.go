package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wingo/database"
	"wingo/models"
)

// PaymentOrderRepository implements the PaymentOrderRepository interface
type PaymentOrderRepository struct {
	q queryable
}

// NewPaymentOrderRepository creates a new payment order repository
func NewPaymentOrderRepository(db *database.DB) *PaymentOrderRepository {
	return &PaymentOrderRepository{q: db.Pool}
}

func newPaymentOrderRepositoryWithTx(tx queryable) *PaymentOrderRepository {
	return &PaymentOrderRepository{q: tx}
}

// Create stores a new order
func (r *PaymentOrderRepository) Create(ctx context.Context, order *models.PaymentOrder) error {
	query := `
		INSERT INTO payment_orders (order_id, account_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	if order.Status == "" {
		order.Status = models.OrderStatusActive
	}

	err := r.q.QueryRow(ctx, query, order.OrderID, order.AccountID, order.Amount, order.Status).
		Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment order %s: %w", order.OrderID, err)
	}
	return nil
}

// GetByID retrieves an order
func (r *PaymentOrderRepository) GetByID(ctx context.Context, orderID string) (*models.PaymentOrder, error) {
	query := `
		SELECT order_id, account_id, amount, status, created_at, updated_at
		FROM payment_orders
		WHERE order_id = $1`

	var o models.PaymentOrder
	err := r.q.QueryRow(ctx, query, orderID).Scan(
		&o.OrderID,
		&o.AccountID,
		&o.Amount,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment order %s: %w", orderID, err)
	}
	return &o, nil
}

// UpdateStatus changes the order status. A PAID order only moves on to REFUNDED and a
// REFUNDED order never changes, so late or replayed notifications cannot rewrite it.
func (r *PaymentOrderRepository) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (bool, error) {
	query := `
		UPDATE payment_orders
		SET status = $2, updated_at = NOW()
		WHERE order_id = $1
		  AND status <> $2
		  AND (status NOT IN ($3, $4) OR (status = $3 AND $2 = $4))`

	tag, err := r.q.Exec(ctx, query, orderID, status, models.OrderStatusPaid, models.OrderStatusRefunded)
	if err != nil {
		return false, fmt.Errorf("failed to update payment order %s: %w", orderID, err)
	}
	return tag.RowsAffected() == 1, nil
}
