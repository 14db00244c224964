package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"wingo/config"
	"wingo/game"
	"wingo/models"
	"wingo/service"
)

// CrashTimings controls the crash round cycle
type CrashTimings struct {
	Waiting    time.Duration
	Countdown  time.Duration // waiting countdown resolution
	Tick       time.Duration // flight sample interval
	AfterCrash time.Duration
}

// CrashTimingsFromConfig reads the crash round timings
func CrashTimingsFromConfig(cfg *config.Config) CrashTimings {
	return CrashTimings{
		Waiting:    cfg.CrashWaitingDuration,
		Countdown:  time.Second,
		Tick:       cfg.CrashTickInterval,
		AfterCrash: cfg.CrashPauseAfterCrash,
	}
}

// CrashClock drives crash rounds: waiting for bets, flying until the crash point, then
// crashed
type CrashClock struct {
	state       *game.CrashState
	rounds      service.RoundService
	outcomes    service.OutcomeService
	settlement  service.SettlementService
	broadcaster service.Broadcaster
	curve       game.Curve
	timings     CrashTimings
	newRoundID  func() string
	fallback    game.RandomSource
}

// NewCrashClock creates the crash round clock
func NewCrashClock(
	state *game.CrashState,
	rounds service.RoundService,
	outcomes service.OutcomeService,
	settlement service.SettlementService,
	broadcaster service.Broadcaster,
	curve game.Curve,
	timings CrashTimings,
) *CrashClock {
	return &CrashClock{
		state:       state,
		rounds:      rounds,
		outcomes:    outcomes,
		settlement:  settlement,
		broadcaster: broadcaster,
		curve:       curve,
		timings:     timings,
		newRoundID:  NewRoundID,
		fallback:    game.DefaultSource(),
	}
}

// Start runs crash rounds in the background until ctx is canceled or the returned
// function is called
func (c *CrashClock) Start(ctx context.Context) func() {
	return start(ctx, "Crash round", c.runRound)
}

func (c *CrashClock) countdownTicks() int {
	if c.timings.Countdown <= 0 {
		return 0
	}
	return int(c.timings.Waiting / c.timings.Countdown)
}

// runRound plays one full round and reports whether the clock should continue
func (c *CrashClock) runRound(ctx context.Context, stop <-chan struct{}) bool {
	roundID := c.newRoundID()
	ticks := c.countdownTicks()
	logger := log.WithField("roundID", roundID)

	if err := c.rounds.OpenRound(ctx, models.GameKindCrash, roundID, models.PhaseWaiting); err != nil {
		logger.WithError(err).Error("Failed to persist crash round, skipping it")
		return wait(ctx, stop, c.timings.AfterCrash)
	}
	c.state.StartWaiting(roundID, ticks)

	running := countdown(ctx, stop, ticks, c.timings.Countdown, func(remaining int) {
		c.state.SetRemaining(remaining)
		c.broadcaster.Broadcast(service.EventCrashState, c.state.Snapshot())
	})
	if !running {
		return false
	}

	crashPoint := c.drawCrashPoint(ctx, roundID)

	// takes the write lock, so bets already inside the gate finish first
	c.state.TakeOff(crashPoint)
	c.broadcaster.Broadcast(service.EventCrashState, c.state.Snapshot())
	c.persistPhase(ctx, roundID, models.PhaseFlying)

	if !c.fly(ctx, stop, roundID, crashPoint) {
		return false
	}

	point := c.state.Crash()
	c.broadcaster.Broadcast(service.EventCrash, CrashUpdate{RoundID: roundID, CrashPoint: point.StringFixed(2)})
	c.broadcaster.Broadcast(service.EventCrashState, c.state.Snapshot())
	c.persistPhase(ctx, roundID, models.PhaseCrashed)

	if _, err := c.settlement.SettleCrashRound(ctx, roundID, point); err != nil {
		logger.WithError(err).Error("Failed to settle crash round")
		refundRound(ctx, c.settlement, roundID)
	}

	return wait(ctx, stop, c.timings.AfterCrash)
}

// fly samples the curve every tick until the tick that reaches the crash point
func (c *CrashClock) fly(ctx context.Context, stop <-chan struct{}, roundID string, crashPoint decimal.Decimal) bool {
	crashTick := c.curve.CrashTick(crashPoint.InexactFloat64(), c.timings.Tick)
	if crashTick <= 0 || c.timings.Tick <= 0 {
		return true
	}

	ticker := time.NewTicker(c.timings.Tick)
	defer ticker.Stop()

	for tick := 1; tick <= crashTick; tick++ {
		if !waitTick(ctx, stop, ticker.C) {
			return false
		}
		if tick == crashTick {
			return true
		}

		multiplier := game.DisplayMultiplier(c.curve.AtTick(tick, c.timings.Tick))
		c.state.Advance(tick, multiplier)
		c.broadcaster.Broadcast(service.EventCrashMultiplier, MultiplierUpdate{
			RoundID:    roundID,
			Tick:       tick,
			Multiplier: multiplier.StringFixed(2),
		})
	}
	return true
}

// drawCrashPoint falls back to an unweighted draw when the outcome service fails, so
// the round can still fly
func (c *CrashClock) drawCrashPoint(ctx context.Context, roundID string) decimal.Decimal {
	point, err := c.outcomes.NextCrashPoint(ctx)
	if err == nil {
		return point
	}

	point = game.DrawCrashPoint(c.fallback.Float64(), c.fallback.Float64())
	log.WithError(err).WithFields(log.Fields{
		"roundID":    roundID,
		"crashPoint": point.StringFixed(2),
	}).Error("Failed to draw crash point, using fallback draw")
	return point
}

func (c *CrashClock) persistPhase(ctx context.Context, roundID string, phase models.Phase) {
	if err := c.rounds.AdvancePhase(ctx, roundID, phase); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"roundID": roundID,
			"phase":   phase,
		}).Warn("Failed to persist crash round phase")
	}
}
