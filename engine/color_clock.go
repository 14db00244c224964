package engine

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"wingo/config"
	"wingo/game"
	"wingo/models"
	"wingo/service"
)

// ColorTimings controls the color round cycle
type ColorTimings struct {
	Betting  time.Duration
	Cooldown time.Duration
	Tick     time.Duration // countdown resolution
}

// ColorTimingsFromConfig reads the color round timings
func ColorTimingsFromConfig(cfg *config.Config) ColorTimings {
	return ColorTimings{
		Betting:  cfg.ColorBettingDuration,
		Cooldown: cfg.ColorCooldown,
		Tick:     time.Second,
	}
}

// ColorClock drives color rounds: betting with a countdown, resolving, then cooldown
type ColorClock struct {
	state       *game.ColorState
	rounds      service.RoundService
	outcomes    service.OutcomeService
	settlement  service.SettlementService
	broadcaster service.Broadcaster
	timings     ColorTimings
	newRoundID  func() string
}

// NewColorClock creates the color round clock
func NewColorClock(
	state *game.ColorState,
	rounds service.RoundService,
	outcomes service.OutcomeService,
	settlement service.SettlementService,
	broadcaster service.Broadcaster,
	timings ColorTimings,
) *ColorClock {
	return &ColorClock{
		state:       state,
		rounds:      rounds,
		outcomes:    outcomes,
		settlement:  settlement,
		broadcaster: broadcaster,
		timings:     timings,
		newRoundID:  NewRoundID,
	}
}

// Start runs color rounds in the background until ctx is canceled or the returned
// function is called
func (c *ColorClock) Start(ctx context.Context) func() {
	return start(ctx, "Color round", c.runRound)
}

func (c *ColorClock) countdownTicks() int {
	if c.timings.Tick <= 0 {
		return 0
	}
	return int(c.timings.Betting / c.timings.Tick)
}

// runRound plays one full round and reports whether the clock should continue
func (c *ColorClock) runRound(ctx context.Context, stop <-chan struct{}) bool {
	roundID := c.newRoundID()
	ticks := c.countdownTicks()
	logger := log.WithField("roundID", roundID)

	// bets reference the round row, so it must exist before betting opens
	if err := c.rounds.OpenRound(ctx, models.GameKindColor, roundID, models.PhaseBetting); err != nil {
		logger.WithError(err).Error("Failed to persist color round, skipping it")
		return wait(ctx, stop, c.timings.Cooldown)
	}
	c.state.StartBetting(roundID, ticks)
	c.broadcaster.Broadcast(service.EventColorPhase, PhaseUpdate{RoundID: roundID, Phase: string(models.PhaseBetting)})

	running := countdown(ctx, stop, ticks, c.timings.Tick, func(remaining int) {
		c.state.SetRemaining(remaining)
		c.broadcaster.Broadcast(service.EventTimerUpdate, TimerUpdate{RoundID: roundID, Timer: remaining})
	})
	if !running {
		return false
	}

	// takes the write lock, so bets already inside the gate finish first
	c.enterPhase(ctx, roundID, models.PhaseResolving)
	c.resolve(ctx, roundID)
	c.enterPhase(ctx, roundID, models.PhaseCooldown)

	return wait(ctx, stop, c.timings.Cooldown)
}

func (c *ColorClock) enterPhase(ctx context.Context, roundID string, phase models.Phase) {
	c.state.SetPhase(phase)
	c.broadcaster.Broadcast(service.EventColorPhase, PhaseUpdate{RoundID: roundID, Phase: string(phase)})
	if err := c.rounds.AdvancePhase(ctx, roundID, phase); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"roundID": roundID,
			"phase":   phase,
		}).Warn("Failed to persist color round phase")
	}
}

// resolve draws and settles the round. A round that cannot be settled has its stakes
// refunded; the next round starts either way.
func (c *ColorClock) resolve(ctx context.Context, roundID string) {
	logger := log.WithField("roundID", roundID)

	color, err := c.outcomes.NextColor(ctx, roundID)
	if err != nil {
		logger.WithError(err).Error("Failed to draw color outcome")
		refundRound(ctx, c.settlement, roundID)
		return
	}

	winners, err := c.settlement.SettleColorRound(ctx, roundID, color)
	if err != nil {
		logger.WithError(err).WithField("color", color).Error("Failed to settle color round")
		refundRound(ctx, c.settlement, roundID)
		return
	}

	c.state.SetResult(color)
	c.broadcaster.Broadcast(service.EventNewResult, ResultUpdate{
		RoundID: roundID,
		Result:  string(color),
		Winners: winners,
	})
}
