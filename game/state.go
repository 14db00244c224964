package game

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"wingo/models"
)

// The state objects below are the single owner of a game's current round. The clock is
// the only writer; request handlers read through the accessors. WithOpenRound and its
// siblings hold the read lock while their callback runs, so a phase change waits for
// in-flight bets to finish. Callbacks must not call back into the same state object.

// ColorSnapshot is a point-in-time copy of the color round
type ColorSnapshot struct {
	RoundID    string        `json:"round_id"`
	Phase      models.Phase  `json:"phase"`
	Remaining  int           `json:"timer"`
	LastResult *models.Color `json:"last_result,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// ColorState guards the current color round
type ColorState struct {
	mu     sync.RWMutex
	cutoff int
	snap   ColorSnapshot
}

// NewColorState creates the state; bets are refused once fewer than cutoff countdown
// ticks remain
func NewColorState(cutoff int) *ColorState {
	return &ColorState{
		cutoff: cutoff,
		snap:   ColorSnapshot{Phase: models.PhaseCooldown},
	}
}

// Snapshot returns a copy of the current round
func (s *ColorState) Snapshot() ColorSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// CurrentRoundID returns the id of the current round
func (s *ColorState) CurrentRoundID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.RoundID
}

// StartBetting begins a new round
func (s *ColorState) StartBetting(roundID string, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RoundID = roundID
	s.snap.Phase = models.PhaseBetting
	s.snap.Remaining = remaining
	s.snap.UpdatedAt = time.Now()
}

// SetRemaining updates the countdown
func (s *ColorState) SetRemaining(remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Remaining = remaining
	s.snap.UpdatedAt = time.Now()
}

// SetPhase moves the round to phase
func (s *ColorState) SetPhase(phase models.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Phase = phase
	if phase != models.PhaseBetting {
		s.snap.Remaining = 0
	}
	s.snap.UpdatedAt = time.Now()
}

// SetResult records the drawn color
func (s *ColorState) SetResult(color models.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.LastResult = &color
	s.snap.UpdatedAt = time.Now()
}

// Accepting reports whether a bet placed now would be accepted
func (s *ColorState) Accepting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acceptingLocked()
}

func (s *ColorState) acceptingLocked() bool {
	return s.snap.Phase == models.PhaseBetting && s.snap.Remaining >= s.cutoff
}

// WithOpenRound runs fn while the round accepts bets
func (s *ColorState) WithOpenRound(fn func(roundID string) error) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.acceptingLocked() {
		return false, nil
	}
	return true, fn(s.snap.RoundID)
}

// CrashSnapshot is a point-in-time copy of the crash round. CrashPoint is only set once
// the round has crashed.
type CrashSnapshot struct {
	RoundID    string           `json:"round_id"`
	Phase      models.Phase     `json:"state"`
	Remaining  int              `json:"timer"`
	Tick       int              `json:"tick"`
	Multiplier decimal.Decimal  `json:"multiplier"`
	CrashPoint *decimal.Decimal `json:"crash_point,omitempty"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// CrashState guards the current crash round
type CrashState struct {
	mu         sync.RWMutex
	snap       CrashSnapshot
	crashPoint decimal.Decimal
}

// NewCrashState creates the state in the crashed phase, awaiting the first round
func NewCrashState() *CrashState {
	return &CrashState{
		snap: CrashSnapshot{Phase: models.PhaseCrashed, Multiplier: decimal.NewFromInt(1)},
	}
}

// Snapshot returns a copy of the current round
func (s *CrashState) Snapshot() CrashSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// CurrentRoundID returns the id of the current round
func (s *CrashState) CurrentRoundID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.RoundID
}

// StartWaiting begins a new round
func (s *CrashState) StartWaiting(roundID string, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = CrashSnapshot{
		RoundID:    roundID,
		Phase:      models.PhaseWaiting,
		Remaining:  remaining,
		Multiplier: decimal.NewFromInt(1),
		UpdatedAt:  time.Now(),
	}
	s.crashPoint = decimal.Zero
}

// SetRemaining updates the waiting countdown
func (s *CrashState) SetRemaining(remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Remaining = remaining
	s.snap.UpdatedAt = time.Now()
}

// TakeOff starts the flight with a hidden crash point
func (s *CrashState) TakeOff(crashPoint decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crashPoint = crashPoint
	s.snap.Phase = models.PhaseFlying
	s.snap.Remaining = 0
	s.snap.Tick = 0
	s.snap.Multiplier = decimal.NewFromInt(1)
	s.snap.UpdatedAt = time.Now()
}

// Advance publishes the multiplier of a flight tick
func (s *CrashState) Advance(tick int, multiplier decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Tick = tick
	s.snap.Multiplier = multiplier
	s.snap.UpdatedAt = time.Now()
}

// Crash ends the flight and reveals the crash point
func (s *CrashState) Crash() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	point := s.crashPoint
	s.snap.Phase = models.PhaseCrashed
	s.snap.Multiplier = point
	s.snap.CrashPoint = &point
	s.snap.UpdatedAt = time.Now()
	return point
}

// Accepting reports whether a bet placed now would be accepted
func (s *CrashState) Accepting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acceptingLocked()
}

func (s *CrashState) acceptingLocked() bool {
	return s.snap.Phase == models.PhaseWaiting && s.snap.RoundID != ""
}

// WithWaitingRound runs fn while the round is taking bets
func (s *CrashState) WithWaitingRound(fn func(roundID string) error) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.acceptingLocked() {
		return false, nil
	}
	return true, fn(s.snap.RoundID)
}

// WithFlyingRound runs fn with the multiplier shown right now while the round is flying
func (s *CrashState) WithFlyingRound(fn func(roundID string, multiplier decimal.Decimal) error) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snap.Phase != models.PhaseFlying {
		return false, nil
	}
	return true, fn(s.snap.RoundID, s.snap.Multiplier)
}
