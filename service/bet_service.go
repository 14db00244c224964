package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"wingo/events"
	"wingo/models"
	"wingo/observability"
)

type betService struct {
	uowFactory  UnitOfWorkFactory
	color       ColorGate
	crash       CrashGate
	broadcaster Broadcaster
}

// NewBetService creates the bet registry for both games
func NewBetService(uowFactory UnitOfWorkFactory, color ColorGate, crash CrashGate, broadcaster Broadcaster) BetService {
	return &betService{
		uowFactory:  uowFactory,
		color:       color,
		crash:       crash,
		broadcaster: broadcaster,
	}
}

// validStake accepts positive amounts with at most two decimals
func validStake(stake decimal.Decimal) bool {
	return stake.IsPositive() && stake.Equal(stake.Truncate(2))
}

// PlaceColorBet stakes on a color in the current round. An account may hold any number
// of color bets in one round.
func (s *betService) PlaceColorBet(ctx context.Context, accountID int64, stake decimal.Decimal, color models.Color) (*models.BetReceipt, error) {
	if !validStake(stake) {
		return nil, ErrInvalidStake
	}
	if _, err := models.ParseColor(string(color)); err != nil {
		return nil, ErrInvalidColor
	}

	var receipt *models.BetReceipt
	var roundID string
	open, err := s.color.WithOpenRound(func(id string) error {
		roundID = id
		var err error
		receipt, err = s.placeBet(ctx, accountID, id, models.GameKindColor, stake, &color)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, ErrPhaseClosed
	}

	s.broadcastLiveBets(ctx, models.GameKindColor, roundID)
	return receipt, nil
}

// PlaceCrashBet stakes on the crash round that is waiting to take off
func (s *betService) PlaceCrashBet(ctx context.Context, accountID int64, stake decimal.Decimal) (*models.BetReceipt, error) {
	if !validStake(stake) {
		return nil, ErrInvalidStake
	}

	var receipt *models.BetReceipt
	var roundID string
	open, err := s.crash.WithWaitingRound(func(id string) error {
		roundID = id
		var err error
		receipt, err = s.placeBet(ctx, accountID, id, models.GameKindCrash, stake, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, ErrPhaseClosed
	}

	s.broadcastLiveBets(ctx, models.GameKindCrash, roundID)
	return receipt, nil
}

// placeBet debits the stake and records the bet in one transaction
func (s *betService) placeBet(ctx context.Context, accountID int64, roundID string, gameKind models.GameKind, stake decimal.Decimal, color *models.Color) (*models.BetReceipt, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	if account.IsBlocked() {
		return nil, ErrAccountBlocked
	}

	if gameKind == models.GameKindCrash {
		existing, err := uow.BetRepository().GetOpenByAccount(ctx, accountID, roundID)
		if err != nil {
			return nil, fmt.Errorf("failed to check open bet: %w", err)
		}
		if existing != nil {
			return nil, ErrDuplicateBet
		}
	}

	if account.Balance.LessThan(stake) {
		return nil, ErrInsufficientFunds
	}

	description := fmt.Sprintf("%s bet", gameKind)
	if color != nil {
		description = fmt.Sprintf("color bet on %s", *color)
	}
	entry, err := DebitAccount(ctx, uow, LedgerRequest{
		AccountID:     accountID,
		Amount:        stake,
		Kind:          models.EntryKindBet,
		Description:   description,
		CorrelationID: &roundID,
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to debit stake: %w", err)
	}

	bet := &models.Bet{
		AccountID: accountID,
		RoundID:   roundID,
		GameKind:  gameKind,
		Stake:     stake,
		Color:     color,
	}
	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		if errors.Is(err, ErrDuplicateBet) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record bet: %w", err)
	}

	uow.EventBus().Publish(events.BetPlacedEvent{
		GameKind:  gameKind,
		RoundID:   roundID,
		BetID:     bet.ID,
		AccountID: accountID,
		Stake:     stake,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	observability.GetMetrics().RecordBetPlaced(string(gameKind))
	log.WithFields(log.Fields{
		"accountID": accountID,
		"roundID":   roundID,
		"game":      gameKind,
		"stake":     stake.StringFixed(2),
	}).Debug("Bet placed")

	return &models.BetReceipt{Bet: bet, NewBalance: entry.BalanceAfter}, nil
}

// CancelCrashBet withdraws the caller's open crash bet and refunds the stake while the
// round is still waiting
func (s *betService) CancelCrashBet(ctx context.Context, accountID int64) (*models.BetReceipt, error) {
	var receipt *models.BetReceipt
	var roundID string
	waiting, err := s.crash.WithWaitingRound(func(id string) error {
		roundID = id

		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		bet, err := uow.BetRepository().CancelOpen(ctx, accountID, id)
		if err != nil {
			return fmt.Errorf("failed to cancel bet: %w", err)
		}
		if bet == nil {
			return ErrNoOpenBet
		}

		entry, err := CreditAccount(ctx, uow, LedgerRequest{
			AccountID:     accountID,
			Amount:        bet.Stake,
			Kind:          models.EntryKindRefund,
			Description:   "crash bet canceled",
			CorrelationID: &id,
		})
		if err != nil {
			return fmt.Errorf("failed to refund stake: %w", err)
		}

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		receipt = &models.BetReceipt{Bet: bet, NewBalance: entry.BalanceAfter}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !waiting {
		return nil, ErrPhaseClosed
	}

	s.broadcastLiveBets(ctx, models.GameKindCrash, roundID)
	return receipt, nil
}

// CashOut settles the caller's open crash bet at the multiplier shown right now
func (s *betService) CashOut(ctx context.Context, accountID int64) (*models.BetReceipt, error) {
	var receipt *models.BetReceipt
	var roundID string
	flying, err := s.crash.WithFlyingRound(func(id string, multiplier decimal.Decimal) error {
		roundID = id

		uow := s.uowFactory.Create()
		if err := uow.Begin(ctx); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer uow.Rollback()

		bet, err := uow.BetRepository().GetOpenByAccount(ctx, accountID, id)
		if err != nil {
			return fmt.Errorf("failed to get open bet: %w", err)
		}
		if bet == nil {
			return ErrNoOpenBet
		}

		payout := bet.Stake.Mul(multiplier).Round(2)
		settled, err := uow.BetRepository().MarkCashedOut(ctx, bet.ID, multiplier, payout)
		if err != nil {
			return fmt.Errorf("failed to cash out bet: %w", err)
		}
		if !settled {
			return ErrNoOpenBet
		}

		entry, err := CreditAccount(ctx, uow, LedgerRequest{
			AccountID:     accountID,
			Amount:        payout,
			Kind:          models.EntryKindWin,
			Description:   fmt.Sprintf("crash cashout at %sx", multiplier.StringFixed(2)),
			CorrelationID: &id,
		})
		if err != nil {
			return fmt.Errorf("failed to credit payout: %w", err)
		}

		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}

		bet.Status = models.BetStatusCashedOut
		bet.CashoutMultiplier = &multiplier
		bet.Payout = &payout
		receipt = &models.BetReceipt{Bet: bet, NewBalance: entry.BalanceAfter}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !flying {
		return nil, ErrNotFlying
	}

	observability.GetMetrics().RecordCashout()
	log.WithFields(log.Fields{
		"accountID":  accountID,
		"roundID":    roundID,
		"multiplier": receipt.Bet.CashoutMultiplier.StringFixed(2),
		"payout":     receipt.Bet.Payout.StringFixed(2),
	}).Info("Crash bet cashed out")

	s.broadcastLiveBets(ctx, models.GameKindCrash, roundID)
	return receipt, nil
}

// LiveBets returns the anonymized bets of the current round of a game
func (s *betService) LiveBets(ctx context.Context, gameKind models.GameKind) ([]*models.LiveBet, error) {
	roundID := s.currentRoundID(gameKind)
	if roundID == "" {
		return []*models.LiveBet{}, nil
	}
	return s.listLive(ctx, roundID)
}

func (s *betService) currentRoundID(gameKind models.GameKind) string {
	if gameKind == models.GameKindCrash {
		return s.crash.CurrentRoundID()
	}
	return s.color.CurrentRoundID()
}

func (s *betService) listLive(ctx context.Context, roundID string) ([]*models.LiveBet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListLive(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list live bets: %w", err)
	}
	return bets, nil
}

// broadcastLiveBets announces the bet list after a committed change. Failures only
// cost observers one refresh.
func (s *betService) broadcastLiveBets(ctx context.Context, gameKind models.GameKind, roundID string) {
	bets, err := s.listLive(ctx, roundID)
	if err != nil {
		log.WithError(err).WithField("roundID", roundID).Warn("Failed to load live bets for broadcast")
		return
	}
	s.broadcaster.Broadcast(BetsEventFor(gameKind), LiveBetsUpdate{RoundID: roundID, Bets: bets})
}
