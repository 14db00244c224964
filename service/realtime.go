package service

import "wingo/models"

// Realtime event names shared with the web client
const (
	EventTimerUpdate     = "timer_update"
	EventColorPhase      = "color_phase"
	EventNewResult       = "new_result"
	EventColorBetsUpdate = "color_bets_update"
	EventCrashState      = "aviator_state_update"
	EventCrashMultiplier = "aviator_multiplier_update"
	EventCrash           = "aviator_crash"
	EventCrashBetsUpdate = "aviator_bets_update"
	EventPersonalUpdate  = "personal_update"
)

// LiveBetsUpdate is the payload of the bet list events
type LiveBetsUpdate struct {
	RoundID string            `json:"round_id"`
	Bets    []*models.LiveBet `json:"bets"`
}

// BetsEventFor returns the bet list event of a game
func BetsEventFor(gameKind models.GameKind) string {
	if gameKind == models.GameKindCrash {
		return EventCrashBetsUpdate
	}
	return EventColorBetsUpdate
}
