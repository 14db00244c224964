package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wingo/database"
	"wingo/models"
)

// WithdrawalRepository implements the WithdrawalRepository interface
type WithdrawalRepository struct {
	q queryable
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *database.DB) *WithdrawalRepository {
	return &WithdrawalRepository{q: db.Pool}
}

func newWithdrawalRepositoryWithTx(tx queryable) *WithdrawalRepository {
	return &WithdrawalRepository{q: tx}
}

const withdrawalColumns = `id, account_id, amount, payout_address, status, requested_at, processed_at`

func scanWithdrawal(row pgx.Row) (*models.WithdrawalRequest, error) {
	var w models.WithdrawalRequest
	err := row.Scan(
		&w.ID,
		&w.AccountID,
		&w.Amount,
		&w.PayoutAddress,
		&w.Status,
		&w.RequestedAt,
		&w.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a pending request
func (r *WithdrawalRepository) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawal_requests (account_id, amount, payout_address)
		VALUES ($1, $2, $3)
		RETURNING id, status, requested_at`

	err := r.q.QueryRow(ctx, query,
		request.AccountID,
		request.Amount,
		request.PayoutAddress,
	).Scan(&request.ID, &request.Status, &request.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

// GetForUpdate loads and row-locks a request
func (r *WithdrawalRepository) GetForUpdate(ctx context.Context, id int64) (*models.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1 FOR UPDATE`

	request, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal request %d: %w", id, err)
	}
	return request, nil
}

// Transition moves a request from one status to another
func (r *WithdrawalRepository) Transition(ctx context.Context, id int64, from, to models.WithdrawalStatus) (bool, error) {
	query := `
		UPDATE withdrawal_requests
		SET status = $3, processed_at = NOW()
		WHERE id = $1 AND status = $2`

	tag, err := r.q.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update withdrawal request %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns requests, newest first, optionally filtered by status
func (r *WithdrawalRepository) List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + `
		FROM withdrawal_requests
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY requested_at DESC, id DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.WithdrawalRequest
	for rows.Next() {
		request, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawal requests: %w", err)
	}
	return requests, nil
}
