package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wingo/database"
	"wingo/models"
)

// RoundRepository implements the RoundRepository interface
type RoundRepository struct {
	q queryable
}

// NewRoundRepository creates a new round repository
func NewRoundRepository(db *database.DB) *RoundRepository {
	return &RoundRepository{q: db.Pool}
}

func newRoundRepositoryWithTx(tx queryable) *RoundRepository {
	return &RoundRepository{q: tx}
}

// Create inserts a round
func (r *RoundRepository) Create(ctx context.Context, round *models.Round) error {
	query := `
		INSERT INTO rounds (id, game_kind, phase)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.q.QueryRow(ctx, query, round.ID, round.GameKind, round.Phase).Scan(&round.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create round %s: %w", round.ID, err)
	}
	return nil
}

// GetByID retrieves a round
func (r *RoundRepository) GetByID(ctx context.Context, id string) (*models.Round, error) {
	query := `
		SELECT id, game_kind, phase, result, created_at, resolved_at
		FROM rounds
		WHERE id = $1`

	var round models.Round
	err := r.q.QueryRow(ctx, query, id).Scan(
		&round.ID,
		&round.GameKind,
		&round.Phase,
		&round.Result,
		&round.CreatedAt,
		&round.ResolvedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round %s: %w", id, err)
	}
	return &round, nil
}

// UpdatePhase records a phase transition
func (r *RoundRepository) UpdatePhase(ctx context.Context, id string, phase models.Phase) error {
	_, err := r.q.Exec(ctx, `UPDATE rounds SET phase = $2 WHERE id = $1`, id, phase)
	if err != nil {
		return fmt.Errorf("failed to update phase of round %s: %w", id, err)
	}
	return nil
}

// Resolve stores the result once
func (r *RoundRepository) Resolve(ctx context.Context, id string, result string) error {
	query := `
		UPDATE rounds
		SET result = $2, resolved_at = NOW()
		WHERE id = $1 AND result IS NULL`

	if _, err := r.q.Exec(ctx, query, id, result); err != nil {
		return fmt.Errorf("failed to resolve round %s: %w", id, err)
	}
	return nil
}

// ListResolved returns the newest resolved rounds of a game
func (r *RoundRepository) ListResolved(ctx context.Context, gameKind models.GameKind, limit int) ([]*models.Round, error) {
	query := `
		SELECT id, game_kind, phase, result, created_at, resolved_at
		FROM rounds
		WHERE game_kind = $1 AND result IS NOT NULL
		ORDER BY resolved_at DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, gameKind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s rounds: %w", gameKind, err)
	}
	defer rows.Close()

	var rounds []*models.Round
	for rows.Next() {
		var round models.Round
		if err := rows.Scan(
			&round.ID,
			&round.GameKind,
			&round.Phase,
			&round.Result,
			&round.CreatedAt,
			&round.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, &round)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rounds: %w", err)
	}
	return rounds, nil
}
