package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"wingo/database"
	"wingo/models"
	"wingo/service"
)

// LedgerRepository implements the LedgerRepository interface
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Append stores an entry
func (r *LedgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (account_id, delta, balance_after, kind, description, correlation_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		entry.AccountID,
		entry.Delta,
		entry.BalanceAfter,
		entry.Kind,
		entry.Description,
		entry.CorrelationID,
	).Scan(&entry.ID, &entry.CreatedAt)

	if isUniqueViolation(err, "uq_ledger_entries_deposit_correlation") {
		return service.ErrAlreadyProcessed
	}
	if err != nil {
		return fmt.Errorf("failed to append ledger entry for account %d: %w", entry.AccountID, err)
	}
	return nil
}

// DepositExists reports whether a deposit with the correlation id was recorded
func (r *LedgerRepository) DepositExists(ctx context.Context, correlationID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM ledger_entries
			WHERE kind = 'deposit' AND correlation_id = $1
		)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, correlationID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check deposit %s: %w", correlationID, err)
	}
	return exists, nil
}

// ListByAccount returns the newest entries for an account
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.LedgerEntry, error) {
	query := `
		SELECT id, account_id, delta, balance_after, kind, description, correlation_id, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY id DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		err := rows.Scan(
			&e.ID,
			&e.AccountID,
			&e.Delta,
			&e.BalanceAfter,
			&e.Kind,
			&e.Description,
			&e.CorrelationID,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

// SumByAccount returns the sum of all deltas recorded for an account
func (r *LedgerRepository) SumByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(delta), 0) FROM ledger_entries WHERE account_id = $1`

	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger for account %d: %w", accountID, err)
	}
	return sum, nil
}
