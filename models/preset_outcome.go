package models

import "time"

// PresetOutcome is an operator-queued result consumed before random generation
type PresetOutcome struct {
	ID         int64      `db:"id" json:"id"`
	GameKind   GameKind   `db:"game_kind" json:"game_kind"`
	Value      string     `db:"value" json:"value"`
	Consumed   bool       `db:"consumed" json:"consumed"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
}
