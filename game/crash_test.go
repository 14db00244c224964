package game

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurve_At(t *testing.T) {
	curve := Curve{A: 0.06, B: 0.02}

	assert.Equal(t, 1.0, curve.At(0))
	assert.Equal(t, 1.0, curve.At(-1))
	assert.InDelta(t, 1.08, curve.At(1), 1e-9)
	// 1 + 0.06*4 + 0.02*8
	assert.InDelta(t, 1.40, curve.At(4), 1e-9)
}

func TestCurve_Monotonic(t *testing.T) {
	curve := Curve{A: 0.06, B: 0.02}
	prev := curve.AtTick(0, 100*time.Millisecond)
	for n := 1; n < 2000; n++ {
		next := curve.AtTick(n, 100*time.Millisecond)
		require.Greater(t, next, prev, "tick %d", n)
		prev = next
	}
}

func TestCurve_CrashTick(t *testing.T) {
	curve := Curve{A: 0.06, B: 0.02}
	interval := 100 * time.Millisecond

	assert.Equal(t, 0, curve.CrashTick(1, interval))

	n := curve.CrashTick(1.4, interval)
	assert.GreaterOrEqual(t, curve.AtTick(n, interval), 1.4)
	assert.Less(t, curve.AtTick(n-1, interval), 1.4)

	assert.Equal(t, -1, Curve{}.CrashTick(2, interval))
}

func TestDisplayMultiplier_Truncates(t *testing.T) {
	assert.Equal(t, "2.49", DisplayMultiplier(2.4999).StringFixed(2))
	assert.Equal(t, "1.00", DisplayMultiplier(1.0).StringFixed(2))
}

func TestDrawCrashPoint_Bands(t *testing.T) {
	tests := []struct {
		name     string
		band     float64
		within   float64
		min, max string
	}{
		{"instant crash", 0.1, 0.5, "1.00", "1.00"},
		{"low band", 0.5, 0.5, "1.01", "2.00"},
		{"mid band", 0.8, 0.5, "2.01", "5.00"},
		{"high band", 0.95, 0.5, "5.01", "10.00"},
		{"top band", 0.99, 0.5, "10.01", "30.00"},
		{"top band upper edge", 0.99, 0, "30.00", "30.00"},
		{"low band lower edge", 0.5, 0.99999, "1.01", "1.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := DrawCrashPoint(tt.band, tt.within)
			assert.True(t, v.GreaterThanOrEqual(decimal.RequireFromString(tt.min)), "got %s", v)
			assert.True(t, v.LessThanOrEqual(decimal.RequireFromString(tt.max)), "got %s", v)
		})
	}
}

func TestDrawCrashPoint_Distribution(t *testing.T) {
	src := NewSeededSource(42)
	const draws = 20000

	instant, upToTwo, aboveTen := 0, 0, 0
	for i := 0; i < draws; i++ {
		v := DrawCrashPoint(src.Float64(), src.Float64())
		require.True(t, ValidCrashPoint(v))
		require.True(t, v.LessThanOrEqual(decimal.NewFromInt(30)))
		switch {
		case v.Equal(decimal.NewFromInt(1)):
			instant++
		case v.LessThanOrEqual(decimal.NewFromInt(2)):
			upToTwo++
		case v.GreaterThan(decimal.NewFromInt(10)):
			aboveTen++
		}
	}

	assert.InDelta(t, 0.40, float64(instant)/draws, 0.02)
	assert.InDelta(t, 0.35, float64(upToTwo)/draws, 0.02)
	assert.InDelta(t, 0.02, float64(aboveTen)/draws, 0.01)
}

func TestValidCrashPoint(t *testing.T) {
	assert.True(t, ValidCrashPoint(decimal.NewFromInt(1)))
	assert.True(t, ValidCrashPoint(decimal.RequireFromString("2.5")))
	assert.False(t, ValidCrashPoint(decimal.RequireFromString("0.99")))
}
