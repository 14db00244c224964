package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wingo/database"
	"wingo/models"
)

// PresetOutcomeRepository implements the PresetOutcomeRepository interface
type PresetOutcomeRepository struct {
	q queryable
}

// NewPresetOutcomeRepository creates a new preset outcome repository
func NewPresetOutcomeRepository(db *database.DB) *PresetOutcomeRepository {
	return &PresetOutcomeRepository{q: db.Pool}
}

func newPresetOutcomeRepositoryWithTx(tx queryable) *PresetOutcomeRepository {
	return &PresetOutcomeRepository{q: tx}
}

// Enqueue appends a preset to the queue of its game
func (r *PresetOutcomeRepository) Enqueue(ctx context.Context, preset *models.PresetOutcome) error {
	query := `
		INSERT INTO preset_outcomes (game_kind, value)
		VALUES ($1, $2)
		RETURNING id, consumed, created_at`

	err := r.q.QueryRow(ctx, query, preset.GameKind, preset.Value).
		Scan(&preset.ID, &preset.Consumed, &preset.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s preset: %w", preset.GameKind, err)
	}
	return nil
}

// ConsumeNext pops the oldest pending preset. Concurrent consumers skip rows another
// transaction has already claimed.
func (r *PresetOutcomeRepository) ConsumeNext(ctx context.Context, gameKind models.GameKind) (*models.PresetOutcome, error) {
	query := `
		UPDATE preset_outcomes
		SET consumed = TRUE, consumed_at = NOW()
		WHERE id = (
			SELECT id FROM preset_outcomes
			WHERE game_kind = $1 AND NOT consumed
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, game_kind, value, consumed, created_at, consumed_at`

	var p models.PresetOutcome
	err := r.q.QueryRow(ctx, query, gameKind).Scan(
		&p.ID,
		&p.GameKind,
		&p.Value,
		&p.Consumed,
		&p.CreatedAt,
		&p.ConsumedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s preset: %w", gameKind, err)
	}
	return &p, nil
}

// ListPending returns the queue of a game in consumption order
func (r *PresetOutcomeRepository) ListPending(ctx context.Context, gameKind models.GameKind) ([]*models.PresetOutcome, error) {
	query := `
		SELECT id, game_kind, value, consumed, created_at, consumed_at
		FROM preset_outcomes
		WHERE game_kind = $1 AND NOT consumed
		ORDER BY id`

	rows, err := r.q.Query(ctx, query, gameKind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s presets: %w", gameKind, err)
	}
	defer rows.Close()

	var presets []*models.PresetOutcome
	for rows.Next() {
		var p models.PresetOutcome
		if err := rows.Scan(&p.ID, &p.GameKind, &p.Value, &p.Consumed, &p.CreatedAt, &p.ConsumedAt); err != nil {
			return nil, fmt.Errorf("failed to scan preset: %w", err)
		}
		presets = append(presets, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating presets: %w", err)
	}
	return presets, nil
}
