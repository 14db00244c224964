package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"wingo/service"
)

// Timeline payloads broadcast by the clocks

// PhaseUpdate announces a color round phase change
type PhaseUpdate struct {
	RoundID string `json:"round_id"`
	Phase   string `json:"phase"`
}

// TimerUpdate carries the betting countdown of a color round
type TimerUpdate struct {
	RoundID string `json:"round_id"`
	Timer   int    `json:"timer"`
}

// ResultUpdate announces the drawn color of a settled round
type ResultUpdate struct {
	RoundID string `json:"round_id"`
	Result  string `json:"result"`
	Winners int    `json:"winners"`
}

// MultiplierUpdate carries one flight tick of a crash round
type MultiplierUpdate struct {
	RoundID    string `json:"round_id"`
	Tick       int    `json:"tick"`
	Multiplier string `json:"multiplier"`
}

// CrashUpdate announces where a crash round ended
type CrashUpdate struct {
	RoundID    string `json:"round_id"`
	CrashPoint string `json:"crash_point"`
}

// refundRound returns the stakes of a round that could not be settled. Bets it misses
// stay open until the startup sweep.
func refundRound(ctx context.Context, settlement service.SettlementService, roundID string) {
	if _, err := settlement.RefundRound(ctx, roundID); err != nil {
		log.WithError(err).WithField("roundID", roundID).Error("Failed to refund unsettled round")
	}
}

// NewRoundID mints a time-ordered round id
func NewRoundID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// runner owns the goroutine of one clock and its stop hook
type runner struct {
	name string
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// start runs round repeatedly until ctx is canceled or the returned hook is called.
// The hook blocks until the current round has returned.
func start(ctx context.Context, name string, round func(ctx context.Context, stop <-chan struct{}) bool) func() {
	r := &runner{
		name: name,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(r.done)
		log.Infof("%s clock started", name)

		for {
			if !r.safeRound(ctx, round) {
				log.Infof("%s clock shutting down...", name)
				return
			}
		}
	}()

	return func() {
		r.once.Do(func() { close(r.stop) })
		<-r.done
	}
}

// safeRound keeps a panicking round from taking the clock down
func (r *runner) safeRound(ctx context.Context, round func(ctx context.Context, stop <-chan struct{}) bool) (keepRunning bool) {
	defer func() {
		if p := recover(); p != nil {
			log.WithFields(log.Fields{
				"clock": r.name,
				"panic": p,
			}).Error("Round panicked, starting the next one")
			keepRunning = wait(ctx, r.stop, time.Second)
		}
	}()
	return round(ctx, r.stop)
}

// wait sleeps for d, returning false if the clock was stopped first
func wait(ctx context.Context, stop <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return false
		case <-stop:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}

// countdown calls onTick with n, n-1, ... 1, one interval apart. It returns false if the
// clock was stopped first.
func countdown(ctx context.Context, stop <-chan struct{}, n int, interval time.Duration, onTick func(remaining int)) bool {
	if n <= 0 || interval <= 0 {
		return true
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for remaining := n; remaining > 0; remaining-- {
		onTick(remaining)
		if !waitTick(ctx, stop, ticker.C) {
			return false
		}
	}
	return true
}

// waitTick blocks until the next ticker fire, returning false if the clock was stopped
func waitTick(ctx context.Context, stop <-chan struct{}, ticks <-chan time.Time) bool {
	select {
	case <-ctx.Done():
		return false
	case <-stop:
		return false
	case <-ticks:
		return true
	}
}
