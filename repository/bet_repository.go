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

// BetRepository implements the BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

const betColumns = `id, account_id, round_id, game_kind, stake, color, status, cashout_multiplier, payout, created_at, settled_at`

func scanBet(row pgx.Row) (*models.Bet, error) {
	var b models.Bet
	err := row.Scan(
		&b.ID,
		&b.AccountID,
		&b.RoundID,
		&b.GameKind,
		&b.Stake,
		&b.Color,
		&b.Status,
		&b.CashoutMultiplier,
		&b.Payout,
		&b.CreatedAt,
		&b.SettledAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBets(rows pgx.Rows) ([]*models.Bet, error) {
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bets: %w", err)
	}
	return bets, nil
}

// Create inserts an open bet
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (account_id, round_id, game_kind, stake, color)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at`

	err := r.q.QueryRow(ctx, query,
		bet.AccountID,
		bet.RoundID,
		bet.GameKind,
		bet.Stake,
		bet.Color,
	).Scan(&bet.ID, &bet.Status, &bet.CreatedAt)

	if isUniqueViolation(err, "uq_bets_open_crash") {
		return service.ErrDuplicateBet
	}
	if err != nil {
		return fmt.Errorf("failed to create bet: %w", err)
	}
	return nil
}

// GetOpenByAccount returns the newest open bet of an account in a round
func (r *BetRepository) GetOpenByAccount(ctx context.Context, accountID int64, roundID string) (*models.Bet, error) {
	query := `SELECT ` + betColumns + `
		FROM bets
		WHERE account_id = $1 AND round_id = $2 AND status = 'open'
		ORDER BY id DESC
		LIMIT 1`

	bet, err := scanBet(r.q.QueryRow(ctx, query, accountID, roundID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open bet for account %d: %w", accountID, err)
	}
	return bet, nil
}

// ListOpenByRound returns every open bet of a round
func (r *BetRepository) ListOpenByRound(ctx context.Context, roundID string) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE round_id = $1 AND status = 'open' ORDER BY id`

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list open bets of round %s: %w", roundID, err)
	}
	return collectBets(rows)
}

// ListByAccount returns the newest bets of an account
func (r *BetRepository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE account_id = $1 ORDER BY id DESC LIMIT $2`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets for account %d: %w", accountID, err)
	}
	return collectBets(rows)
}

// ListLive returns the non-canceled bets of a round with masked player handles
func (r *BetRepository) ListLive(ctx context.Context, roundID string) ([]*models.LiveBet, error) {
	query := `
		SELECT a.mobile, b.stake, b.color, b.status, b.cashout_multiplier
		FROM bets b
		JOIN accounts a ON a.id = b.account_id
		WHERE b.round_id = $1 AND b.status <> 'canceled'
		ORDER BY b.id`

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list live bets of round %s: %w", roundID, err)
	}
	defer rows.Close()

	bets := []*models.LiveBet{}
	for rows.Next() {
		var (
			mobile string
			bet    models.LiveBet
		)
		if err := rows.Scan(&mobile, &bet.Stake, &bet.Color, &bet.Status, &bet.CashoutMultiplier); err != nil {
			return nil, fmt.Errorf("failed to scan live bet: %w", err)
		}
		bet.Player = models.MaskMobile(mobile)
		bets = append(bets, &bet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating live bets: %w", err)
	}
	return bets, nil
}

// SumOpenStakesByColor totals the open color stakes of a round
func (r *BetRepository) SumOpenStakesByColor(ctx context.Context, roundID string) (map[models.Color]decimal.Decimal, error) {
	query := `
		SELECT color, SUM(stake)
		FROM bets
		WHERE round_id = $1 AND status = 'open' AND color IS NOT NULL
		GROUP BY color`

	rows, err := r.q.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum stakes of round %s: %w", roundID, err)
	}
	defer rows.Close()

	sums := make(map[models.Color]decimal.Decimal, len(models.Colors))
	for rows.Next() {
		var (
			color models.Color
			total decimal.Decimal
		)
		if err := rows.Scan(&color, &total); err != nil {
			return nil, fmt.Errorf("failed to scan stake total: %w", err)
		}
		sums[color] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stake totals: %w", err)
	}
	return sums, nil
}

// CancelOpen marks the caller's open bet canceled
func (r *BetRepository) CancelOpen(ctx context.Context, accountID int64, roundID string) (*models.Bet, error) {
	query := `
		UPDATE bets
		SET status = 'canceled', settled_at = NOW()
		WHERE id = (
			SELECT id FROM bets
			WHERE account_id = $1 AND round_id = $2 AND status = 'open'
			ORDER BY id DESC
			LIMIT 1
			FOR UPDATE
		)
		RETURNING ` + betColumns

	bet, err := scanBet(r.q.QueryRow(ctx, query, accountID, roundID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel bet for account %d: %w", accountID, err)
	}
	return bet, nil
}

// MarkCashedOut settles an open bet at multiplier
func (r *BetRepository) MarkCashedOut(ctx context.Context, betID int64, multiplier, payout decimal.Decimal) (bool, error) {
	query := `
		UPDATE bets
		SET status = 'cashed_out', cashout_multiplier = $2, payout = $3, settled_at = NOW()
		WHERE id = $1 AND status = 'open'`

	tag, err := r.q.Exec(ctx, query, betID, multiplier, payout)
	if err != nil {
		return false, fmt.Errorf("failed to cash out bet %d: %w", betID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkWon settles an open bet as won
func (r *BetRepository) MarkWon(ctx context.Context, betID int64, payout decimal.Decimal) (bool, error) {
	query := `
		UPDATE bets
		SET status = 'won', payout = $2, settled_at = NOW()
		WHERE id = $1 AND status = 'open'`

	tag, err := r.q.Exec(ctx, query, betID, payout)
	if err != nil {
		return false, fmt.Errorf("failed to settle bet %d: %w", betID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkRefunded settles an open bet as refunded, paying back its stake
func (r *BetRepository) MarkRefunded(ctx context.Context, betID int64) (bool, error) {
	query := `
		UPDATE bets
		SET status = 'refunded', payout = stake, settled_at = NOW()
		WHERE id = $1 AND status = 'open'`

	tag, err := r.q.Exec(ctx, query, betID)
	if err != nil {
		return false, fmt.Errorf("failed to refund bet %d: %w", betID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListUnresolvedRoundIDs returns the rounds without a result that still hold open bets,
// oldest first
func (r *BetRepository) ListUnresolvedRoundIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT b.round_id
		FROM bets b
		JOIN rounds r ON r.id = b.round_id
		WHERE b.status = 'open' AND r.result IS NULL
		GROUP BY b.round_id
		ORDER BY MIN(b.id)`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved rounds: %w", err)
	}

	roundIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan unresolved rounds: %w", err)
	}
	return roundIDs, nil
}

// MarkOpenLost settles every remaining open bet of a round as lost
func (r *BetRepository) MarkOpenLost(ctx context.Context, roundID string) (int64, error) {
	query := `
		UPDATE bets
		SET status = 'lost', payout = 0, settled_at = NOW()
		WHERE round_id = $1 AND status = 'open'`

	tag, err := r.q.Exec(ctx, query, roundID)
	if err != nil {
		return 0, fmt.Errorf("failed to settle losing bets of round %s: %w", roundID, err)
	}
	return tag.RowsAffected(), nil
}
