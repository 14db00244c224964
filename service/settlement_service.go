package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"wingo/events"
	"wingo/game"
	"wingo/models"
	"wingo/observability"
)

type settlementService struct {
	uowFactory UnitOfWorkFactory
}

// NewSettlementService creates the settlement engine
func NewSettlementService(uowFactory UnitOfWorkFactory) SettlementService {
	return &settlementService{
		uowFactory: uowFactory,
	}
}

// SettleColorRound pays every open bet on the drawn color, marks the rest lost and
// stores the result, all in one transaction. It returns the number of winning bets.
// Bets already settled by an earlier attempt are skipped.
func (s *settlementService) SettleColorRound(ctx context.Context, roundID string, result models.Color) (int, error) {
	start := time.Now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListOpenByRound(ctx, roundID)
	if err != nil {
		return 0, fmt.Errorf("failed to list open bets: %w", err)
	}

	winners := 0
	paid := decimal.Zero
	for _, bet := range bets {
		if bet.Color == nil || *bet.Color != result {
			continue
		}

		payout := game.ColorPayout(bet.Stake, result)
		settled, err := uow.BetRepository().MarkWon(ctx, bet.ID, payout)
		if err != nil {
			return 0, fmt.Errorf("failed to settle bet %d: %w", bet.ID, err)
		}
		if !settled {
			continue
		}

		if _, err := CreditAccount(ctx, uow, LedgerRequest{
			AccountID:     bet.AccountID,
			Amount:        payout,
			Kind:          models.EntryKindWin,
			Description:   fmt.Sprintf("color win on %s", result),
			CorrelationID: &roundID,
		}); err != nil {
			return 0, fmt.Errorf("failed to credit bet %d: %w", bet.ID, err)
		}

		winners++
		paid = paid.Add(payout)
	}

	lost, err := uow.BetRepository().MarkOpenLost(ctx, roundID)
	if err != nil {
		return 0, fmt.Errorf("failed to settle losing bets: %w", err)
	}

	if err := s.resolve(ctx, uow, models.GameKindColor, roundID, string(result), winners); err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	observability.GetMetrics().RecordRoundSettled(string(models.GameKindColor), time.Since(start))
	log.WithFields(log.Fields{
		"roundID": roundID,
		"result":  result,
		"winners": winners,
		"losers":  lost,
		"paid":    paid.StringFixed(2),
	}).Info("Color round settled")

	return winners, nil
}

// SettleCrashRound marks every bet still open at the crash as lost and stores the crash
// point. Cashed out bets were already paid. It returns the number of lost bets.
func (s *settlementService) SettleCrashRound(ctx context.Context, roundID string, crashPoint decimal.Decimal) (int64, error) {
	start := time.Now()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	lost, err := uow.BetRepository().MarkOpenLost(ctx, roundID)
	if err != nil {
		return 0, fmt.Errorf("failed to settle losing bets: %w", err)
	}

	if err := s.resolve(ctx, uow, models.GameKindCrash, roundID, crashPoint.StringFixed(2), 0); err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	observability.GetMetrics().RecordRoundSettled(string(models.GameKindCrash), time.Since(start))
	log.WithFields(log.Fields{
		"roundID":    roundID,
		"crashPoint": crashPoint.StringFixed(2),
		"lost":       lost,
	}).Info("Crash round settled")

	return lost, nil
}

// RefundRound returns the stake of every open bet of a round that will not be resolved.
// The round keeps no result. It returns the number of refunded bets.
func (s *settlementService) RefundRound(ctx context.Context, roundID string) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListOpenByRound(ctx, roundID)
	if err != nil {
		return 0, fmt.Errorf("failed to list open bets: %w", err)
	}

	refunded := 0
	returned := decimal.Zero
	for _, bet := range bets {
		settled, err := uow.BetRepository().MarkRefunded(ctx, bet.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to refund bet %d: %w", bet.ID, err)
		}
		if !settled {
			continue
		}

		if _, err := CreditAccount(ctx, uow, LedgerRequest{
			AccountID:     bet.AccountID,
			Amount:        bet.Stake,
			Kind:          models.EntryKindRefund,
			Description:   fmt.Sprintf("refund of unresolved %s round", bet.GameKind),
			CorrelationID: &roundID,
		}); err != nil {
			return 0, fmt.Errorf("failed to credit refund of bet %d: %w", bet.ID, err)
		}

		refunded++
		returned = returned.Add(bet.Stake)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if refunded > 0 {
		log.WithFields(log.Fields{
			"roundID":  roundID,
			"refunded": refunded,
			"returned": returned.StringFixed(2),
		}).Warn("Refunded bets of unresolved round")
	}
	return refunded, nil
}

// RefundStaleRounds refunds every round left unresolved with open bets, such as a round
// interrupted by a shutdown. It must run before the clocks start. A round that fails to
// refund is logged and left for the next sweep.
func (s *settlementService) RefundStaleRounds(ctx context.Context) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	roundIDs, err := uow.BetRepository().ListUnresolvedRoundIDs(ctx)
	uow.Rollback()
	if err != nil {
		return 0, fmt.Errorf("failed to list unresolved rounds: %w", err)
	}

	total := 0
	for _, roundID := range roundIDs {
		refunded, err := s.RefundRound(ctx, roundID)
		if err != nil {
			log.WithError(err).WithField("roundID", roundID).Error("Failed to refund unresolved round")
			continue
		}
		total += refunded
	}
	return total, nil
}

func (s *settlementService) resolve(ctx context.Context, uow UnitOfWork, gameKind models.GameKind, roundID, result string, winners int) error {
	if err := uow.RoundRepository().Resolve(ctx, roundID, result); err != nil {
		return fmt.Errorf("failed to store round result: %w", err)
	}

	uow.EventBus().Publish(events.RoundResolvedEvent{
		GameKind:   gameKind,
		RoundID:    roundID,
		Result:     result,
		Winners:    winners,
		ResolvedAt: time.Now().UTC(),
	})
	return nil
}
