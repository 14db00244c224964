package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wingo/game"
	"wingo/models"
	"wingo/service"
)

// steepCurve climbs 0.01 per millisecond tick
var steepCurve = game.Curve{A: 10, B: 0}

func testCrashTimings() CrashTimings {
	return CrashTimings{
		Waiting:    3 * time.Millisecond,
		Countdown:  time.Millisecond,
		Tick:       time.Millisecond,
		AfterCrash: 5 * time.Millisecond,
	}
}

type crashClockSetup struct {
	State       *game.CrashState
	Rounds      *fakeRounds
	Outcomes    *fakeOutcomes
	Settlement  *fakeSettlement
	Broadcaster *recordingBroadcaster
	Clock       *CrashClock
}

func newCrashClockSetup(crashPoint string) *crashClockSetup {
	s := &crashClockSetup{
		State:       game.NewCrashState(),
		Rounds:      newFakeRounds(),
		Outcomes:    &fakeOutcomes{crashPoint: decimal.RequireFromString(crashPoint)},
		Settlement:  &fakeSettlement{},
		Broadcaster: &recordingBroadcaster{},
	}
	s.Clock = NewCrashClock(s.State, s.Rounds, s.Outcomes, s.Settlement, s.Broadcaster, steepCurve, testCrashTimings())
	return s
}

func TestCrashClock_FliesUntilCrashPoint(t *testing.T) {
	s := newCrashClockSetup("1.20")

	stop := s.Clock.Start(context.Background())
	require.Eventually(t, func() bool { return len(s.Settlement.Settled()) >= 1 }, time.Second, time.Millisecond)
	stop()

	first := s.Rounds.Opened()[0]
	assert.Equal(t, settledRound{RoundID: first, Result: "1.20"}, s.Settlement.Settled()[0])
	assert.Equal(t, []models.Phase{models.PhaseWaiting, models.PhaseFlying, models.PhaseCrashed}, s.Rounds.Phases(first)[:3])

	crashTick := steepCurve.CrashTick(1.20, time.Millisecond)
	var ticks []MultiplierUpdate
	for _, r := range s.Broadcaster.Events(service.EventCrashMultiplier) {
		if p := r.Payload.(MultiplierUpdate); p.RoundID == first {
			ticks = append(ticks, p)
		}
	}
	require.Len(t, ticks, crashTick-1, "every tick before the crash tick is broadcast")
	for i, tick := range ticks {
		assert.Equal(t, i+1, tick.Tick)
		assert.Equal(t, game.DisplayMultiplier(steepCurve.AtTick(i+1, time.Millisecond)).StringFixed(2), tick.Multiplier)
	}

	var crashes []CrashUpdate
	for _, r := range s.Broadcaster.Events(service.EventCrash) {
		if p := r.Payload.(CrashUpdate); p.RoundID == first {
			crashes = append(crashes, p)
		}
	}
	require.Len(t, crashes, 1)
	assert.Equal(t, "1.20", crashes[0].CrashPoint)
}

func TestCrashClock_WaitingCountdownPrecedesFlight(t *testing.T) {
	s := newCrashClockSetup("1.05")

	stop := s.Clock.Start(context.Background())
	require.Eventually(t, func() bool { return len(s.Settlement.Settled()) >= 1 }, time.Second, time.Millisecond)
	stop()

	first := s.Rounds.Opened()[0]
	var phases []models.Phase
	var timers []int
	for _, r := range s.Broadcaster.Events(service.EventCrashState) {
		snap := r.Payload.(game.CrashSnapshot)
		if snap.RoundID != first {
			continue
		}
		if len(phases) == 0 || phases[len(phases)-1] != snap.Phase {
			phases = append(phases, snap.Phase)
		}
		if snap.Phase == models.PhaseWaiting {
			timers = append(timers, snap.Remaining)
		}
	}
	assert.Equal(t, []models.Phase{models.PhaseWaiting, models.PhaseFlying, models.PhaseCrashed}, phases)
	assert.Equal(t, []int{3, 2, 1}, timers)
}

func TestCrashClock_InstantCrash(t *testing.T) {
	s := newCrashClockSetup("1.00")

	stop := s.Clock.Start(context.Background())
	require.Eventually(t, func() bool { return len(s.Settlement.Settled()) >= 1 }, time.Second, time.Millisecond)
	stop()

	first := s.Rounds.Opened()[0]
	for _, r := range s.Broadcaster.Events(service.EventCrashMultiplier) {
		assert.NotEqual(t, first, r.Payload.(MultiplierUpdate).RoundID)
	}
	assert.Equal(t, "1.00", s.Settlement.Settled()[0].Result)
}

func TestCrashClock_CashoutWindow(t *testing.T) {
	s := newCrashClockSetup("1.10")

	var flyingMultipliers []string
	var afterCrash []bool
	s.Broadcaster.onBroadcast = func(event string, payload any) {
		switch event {
		case service.EventCrashMultiplier:
			s.State.WithFlyingRound(func(_ string, m decimal.Decimal) error {
				flyingMultipliers = append(flyingMultipliers, m.StringFixed(2))
				return nil
			})
		case service.EventCrash:
			flying, _ := s.State.WithFlyingRound(func(string, decimal.Decimal) error { return nil })
			afterCrash = append(afterCrash, flying)
		}
	}

	stop := s.Clock.Start(context.Background())
	require.Eventually(t, func() bool { return len(s.Settlement.Settled()) >= 1 }, time.Second, time.Millisecond)
	stop()

	require.NotEmpty(t, flyingMultipliers)
	// the last cashout before the crash is paid at the last broadcast multiplier
	last := flyingMultipliers[len(flyingMultipliers)-1]
	assert.True(t, decimal.RequireFromString(last).LessThan(decimal.RequireFromString("1.10")))
	require.NotEmpty(t, afterCrash)
	assert.False(t, afterCrash[0], "cashout after the crash finds the round no longer flying")
}

func TestCrashClock_OutcomeFailureFallsBack(t *testing.T) {
	s := newCrashClockSetup("1.00")
	s.Outcomes.err = errors.New("database is down")
	s.Clock.fallback = game.NewSeededSource(7)
	s.Clock.curve = game.Curve{A: 1000, B: 0}

	stop := s.Clock.Start(context.Background())
	require.Eventually(t, func() bool { return len(s.Settlement.Settled()) >= 1 }, 2*time.Second, time.Millisecond)
	stop()

	point := decimal.RequireFromString(s.Settlement.Settled()[0].Result)
	assert.True(t, game.ValidCrashPoint(point))
}

func TestCrashClock_StopMidFlight(t *testing.T) {
	s := newCrashClockSetup("30.00")
	s.Clock.curve = game.Curve{A: 1, B: 0}

	stop := s.Clock.Start(context.Background())
	require.Eventually(t, func() bool {
		return s.State.Snapshot().Phase == models.PhaseFlying
	}, time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}
	assert.Empty(t, s.Settlement.Settled())
}

func TestCrashClock_RoundPersistedBeforeWaitingOpens(t *testing.T) {
	s := newCrashClockSetup("1.05")
	var acceptedEarly atomic.Bool
	s.Rounds.onOpen = func() {
		if s.State.Accepting() {
			acceptedEarly.Store(true)
		}
	}

	stop := s.Clock.Start(context.Background())
	require.Eventually(t, func() bool { return len(s.Rounds.Opened()) >= 2 }, time.Second, time.Millisecond)
	stop()

	assert.False(t, acceptedEarly.Load(), "round accepted bets before its row was stored")
}

func TestCrashClock_PersistFailureKeepsBettingClosed(t *testing.T) {
	s := newCrashClockSetup("1.05")
	s.Rounds.openErr = errors.New("database is down")

	stop := s.Clock.Start(context.Background())
	require.Eventually(t, func() bool { return len(s.Rounds.Opened()) >= 3 }, time.Second, time.Millisecond)
	stop()

	assert.False(t, s.State.Accepting())
	assert.Empty(t, s.State.CurrentRoundID())
	assert.Equal(t, models.PhaseCrashed, s.State.Snapshot().Phase)
	assert.Empty(t, s.Broadcaster.Events(service.EventCrashState))
	assert.Empty(t, s.Settlement.Settled())
}

func TestCrashClock_SettlementFailureRefundsRound(t *testing.T) {
	s := newCrashClockSetup("1.05")
	s.Settlement.settleErr = errors.New("commit failed")

	stop := s.Clock.Start(context.Background())
	require.Eventually(t, func() bool { return len(s.Settlement.Refunded()) >= 1 }, time.Second, time.Millisecond)
	stop()

	assert.Equal(t, s.Rounds.Opened()[0], s.Settlement.Refunded()[0])
	assert.Empty(t, s.Settlement.Settled())
}
