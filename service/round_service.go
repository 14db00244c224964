package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"wingo/models"
)

type roundService struct {
	uowFactory UnitOfWorkFactory
	cache      ResultCache
}

// NewRoundService creates the round history service. cache may be nil, in which case
// results are always read from the database.
func NewRoundService(uowFactory UnitOfWorkFactory, cache ResultCache) RoundService {
	return &roundService{
		uowFactory: uowFactory,
		cache:      cache,
	}
}

// OpenRound persists a freshly minted round
func (s *roundService) OpenRound(ctx context.Context, gameKind models.GameKind, roundID string, phase models.Phase) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	round := &models.Round{ID: roundID, GameKind: gameKind, Phase: phase}
	if err := uow.RoundRepository().Create(ctx, round); err != nil {
		return fmt.Errorf("failed to open round: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AdvancePhase records a phase transition
func (s *roundService) AdvancePhase(ctx context.Context, roundID string, phase models.Phase) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.RoundRepository().UpdatePhase(ctx, roundID, phase); err != nil {
		return fmt.Errorf("failed to advance round: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RecentResults returns the newest resolved rounds, preferring the cache when it holds
// enough of them
func (s *roundService) RecentResults(ctx context.Context, gameKind models.GameKind, limit int) ([]*models.Round, error) {
	if s.cache != nil {
		rounds, err := s.cache.Recent(ctx, gameKind, limit)
		if err != nil {
			log.WithError(err).WithField("game", gameKind).Warn("Result cache unavailable, reading from database")
		} else if len(rounds) >= limit {
			return rounds, nil
		}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rounds, err := uow.RoundRepository().ListResolved(ctx, gameKind, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	if rounds == nil {
		rounds = []*models.Round{}
	}
	return rounds, nil
}
