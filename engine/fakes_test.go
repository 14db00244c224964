package engine

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"wingo/models"
)

type broadcastRecord struct {
	Event   string
	Payload any
}

// recordingBroadcaster keeps every broadcast in order
type recordingBroadcaster struct {
	mu      sync.Mutex
	records []broadcastRecord

	// onBroadcast runs on the clock goroutine before the record is stored
	onBroadcast func(event string, payload any)
}

func (b *recordingBroadcaster) Broadcast(event string, payload any) {
	if b.onBroadcast != nil {
		b.onBroadcast(event, payload)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, broadcastRecord{Event: event, Payload: payload})
}

func (b *recordingBroadcaster) SendToAccount(int64, string, any) {}

func (b *recordingBroadcaster) Records() []broadcastRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcastRecord(nil), b.records...)
}

func (b *recordingBroadcaster) Events(name string) []broadcastRecord {
	var out []broadcastRecord
	for _, r := range b.Records() {
		if r.Event == name {
			out = append(out, r)
		}
	}
	return out
}

// fakeRounds records the round lifecycle. onOpen runs inside OpenRound when set, and a
// non-nil openErr fails every OpenRound after it is recorded.
type fakeRounds struct {
	mu      sync.Mutex
	opened  []string
	phases  map[string][]models.Phase
	onOpen  func()
	openErr error
}

func newFakeRounds() *fakeRounds {
	return &fakeRounds{phases: make(map[string][]models.Phase)}
}

func (r *fakeRounds) OpenRound(_ context.Context, _ models.GameKind, roundID string, phase models.Phase) error {
	if r.onOpen != nil {
		r.onOpen()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, roundID)
	if r.openErr != nil {
		return r.openErr
	}
	r.phases[roundID] = append(r.phases[roundID], phase)
	return nil
}

func (r *fakeRounds) AdvancePhase(_ context.Context, roundID string, phase models.Phase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases[roundID] = append(r.phases[roundID], phase)
	return nil
}

func (r *fakeRounds) RecentResults(context.Context, models.GameKind, int) ([]*models.Round, error) {
	return nil, nil
}

func (r *fakeRounds) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opened...)
}

func (r *fakeRounds) Phases(roundID string) []models.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Phase(nil), r.phases[roundID]...)
}

// fakeOutcomes returns fixed outcomes, or err when set
type fakeOutcomes struct {
	color      models.Color
	crashPoint decimal.Decimal
	err        error
}

func (o *fakeOutcomes) NextColor(context.Context, string) (models.Color, error) {
	return o.color, o.err
}

func (o *fakeOutcomes) NextCrashPoint(context.Context) (decimal.Decimal, error) {
	return o.crashPoint, o.err
}

func (o *fakeOutcomes) AddPreset(context.Context, models.GameKind, string) (*models.PresetOutcome, error) {
	return nil, nil
}

func (o *fakeOutcomes) ListPresets(context.Context, models.GameKind) ([]*models.PresetOutcome, error) {
	return nil, nil
}

type settledRound struct {
	RoundID string
	Result  string
}

// fakeSettlement records settled and refunded rounds. onSettle runs inside the call
// when set; a non-nil settleErr fails every settlement without recording it.
type fakeSettlement struct {
	mu        sync.Mutex
	settled   []settledRound
	refunded  []string
	onSettle  func()
	settleErr error
}

func (s *fakeSettlement) SettleColorRound(_ context.Context, roundID string, result models.Color) (int, error) {
	if s.settleErr != nil {
		return 0, s.settleErr
	}
	s.record(roundID, string(result))
	return 1, nil
}

func (s *fakeSettlement) SettleCrashRound(_ context.Context, roundID string, crashPoint decimal.Decimal) (int64, error) {
	if s.settleErr != nil {
		return 0, s.settleErr
	}
	s.record(roundID, crashPoint.StringFixed(2))
	return 0, nil
}

func (s *fakeSettlement) RefundRound(_ context.Context, roundID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refunded = append(s.refunded, roundID)
	return 1, nil
}

func (s *fakeSettlement) RefundStaleRounds(context.Context) (int, error) {
	return 0, nil
}

func (s *fakeSettlement) Refunded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.refunded...)
}

func (s *fakeSettlement) record(roundID, result string) {
	if s.onSettle != nil {
		s.onSettle()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settled = append(s.settled, settledRound{RoundID: roundID, Result: result})
}

func (s *fakeSettlement) Settled() []settledRound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]settledRound(nil), s.settled...)
}
