package models

import (
	"fmt"
	"time"
)

// GameKind identifies one of the two round-based games
type GameKind string

const (
	GameKindColor GameKind = "color"
	GameKindCrash GameKind = "crash"
)

// ParseGameKind converts user input into a GameKind
func ParseGameKind(s string) (GameKind, error) {
	switch GameKind(s) {
	case GameKindColor, GameKindCrash:
		return GameKind(s), nil
	default:
		return "", fmt.Errorf("unknown game %q", s)
	}
}

// Phase is the lifecycle state of a round
type Phase string

const (
	// Color game
	PhaseBetting   Phase = "betting"
	PhaseResolving Phase = "resolving"
	PhaseCooldown  Phase = "cooldown"

	// Crash game
	PhaseWaiting Phase = "waiting"
	PhaseFlying  Phase = "flying"
	PhaseCrashed Phase = "crashed"
)

// Color is a selectable outcome of the color game
type Color string

const (
	ColorRed    Color = "red"
	ColorGreen  Color = "green"
	ColorViolet Color = "violet"
)

// Colors lists the color outcomes in a stable order
var Colors = []Color{ColorRed, ColorGreen, ColorViolet}

// ParseColor validates a color name
func ParseColor(s string) (Color, error) {
	switch Color(s) {
	case ColorRed, ColorGreen, ColorViolet:
		return Color(s), nil
	default:
		return "", fmt.Errorf("unknown color %q", s)
	}
}

// Round is the persisted record of one betting cycle
type Round struct {
	ID         string     `db:"id" json:"round_id"`
	GameKind   GameKind   `db:"game_kind" json:"game_kind"`
	Phase      Phase      `db:"phase" json:"phase"`
	Result     *string    `db:"result" json:"result,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}
