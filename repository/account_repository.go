package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"wingo/database"
	"wingo/models"
	"wingo/service"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

const accountColumns = `id, mobile, password_hash, status, is_admin, balance, bonus, created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.Mobile,
		&a.PasswordHash,
		&a.Status,
		&a.IsAdmin,
		&a.Balance,
		&a.Bonus,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an account by id
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return account, nil
}

// GetByMobile retrieves an account by mobile handle
func (r *AccountRepository) GetByMobile(ctx context.Context, mobile string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE mobile = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, mobile))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by mobile: %w", err)
	}
	return account, nil
}

// Create inserts a new active account
func (r *AccountRepository) Create(ctx context.Context, mobile, passwordHash string) (*models.Account, error) {
	query := `
		INSERT INTO accounts (mobile, password_hash)
		VALUES ($1, $2)
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, mobile, passwordHash))
	if isUniqueViolation(err, "accounts_mobile_key") {
		return nil, service.ErrMobileTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// AddBalance increments the balance and returns the new value
func (r *AccountRepository) AddBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING balance`

	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, query, id, amount).Scan(&balance)
	if err == pgx.ErrNoRows {
		return decimal.Zero, service.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to add balance for account %d: %w", id, err)
	}
	return balance, nil
}

// DeductBalance decrements the balance only when it covers amount
func (r *AccountRepository) DeductBalance(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2
		RETURNING balance`

	var balance decimal.Decimal
	err := r.q.QueryRow(ctx, query, id, amount).Scan(&balance)
	if err == pgx.ErrNoRows {
		// either the account is missing or the balance is too low
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
			return decimal.Zero, fmt.Errorf("failed to check account %d: %w", id, err)
		}
		if !exists {
			return decimal.Zero, service.ErrAccountNotFound
		}
		return decimal.Zero, service.ErrInsufficientFunds
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to deduct balance for account %d: %w", id, err)
	}
	return balance, nil
}

// AddBonus increments the bonus wallet and returns the new value
func (r *AccountRepository) AddBonus(ctx context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE accounts
		SET bonus = bonus + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING bonus`

	var bonus decimal.Decimal
	err := r.q.QueryRow(ctx, query, id, amount).Scan(&bonus)
	if err == pgx.ErrNoRows {
		return decimal.Zero, service.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to add bonus for account %d: %w", id, err)
	}
	return bonus, nil
}

// SetStatus changes the account status
func (r *AccountRepository) SetStatus(ctx context.Context, id int64, status models.AccountStatus) error {
	query := `UPDATE accounts SET status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.q.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set status for account %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrAccountNotFound
	}
	return nil
}

// List returns accounts, newest first
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id DESC LIMIT $1 OFFSET $2`

	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}
