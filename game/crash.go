package game

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Curve is the crash multiplier over flight time: m(t) = 1 + A*t + B*t^1.5
type Curve struct {
	A float64
	B float64
}

// At returns the multiplier after t seconds of flight
func (c Curve) At(t float64) float64 {
	if t <= 0 {
		return 1
	}
	return 1 + c.A*t + c.B*math.Pow(t, 1.5)
}

// AtTick returns the multiplier at the n-th tick of a flight sampled every interval
func (c Curve) AtTick(n int, interval time.Duration) float64 {
	return c.At(float64(n) * interval.Seconds())
}

// CrashTick returns the first tick at which the curve reaches crashPoint
func (c Curve) CrashTick(crashPoint float64, interval time.Duration) int {
	if crashPoint > 1 && c.A <= 0 && c.B <= 0 {
		return -1
	}
	n := 0
	for c.AtTick(n, interval) < crashPoint {
		n++
	}
	return n
}

// DisplayMultiplier truncates a raw multiplier to the two decimals shown to players and
// used for cashouts
func DisplayMultiplier(m float64) decimal.Decimal {
	return decimal.NewFromFloat(m).Truncate(2)
}

// crashBand is one slice of the crash point distribution
type crashBand struct {
	cumulative float64
	low, high  float64
}

var crashBands = []crashBand{
	{cumulative: 0.40, low: 1, high: 1},
	{cumulative: 0.75, low: 1, high: 2},
	{cumulative: 0.90, low: 2, high: 5},
	{cumulative: 0.98, low: 5, high: 10},
	{cumulative: 1.00, low: 10, high: 30},
}

var (
	minCrashPoint = decimal.NewFromInt(1)
	cent          = decimal.New(1, -2)
)

// DrawCrashPoint maps two uniform draws in [0, 1) onto the crash distribution: 40% an
// instant crash at exactly 1.00, then 35% in (1, 2], 15% in (2, 5], 8% in (5, 10] and
// 2% in (10, 30]. band picks the slice, within positions the value inside it.
func DrawCrashPoint(band, within float64) decimal.Decimal {
	for _, b := range crashBands {
		if band >= b.cumulative {
			continue
		}
		if b.high == b.low {
			return minCrashPoint
		}

		// 1-within lies in (0, 1], giving a value in (low, high]
		value := decimal.NewFromFloat(b.low + (b.high-b.low)*(1-within)).Round(2)
		lowest := decimal.NewFromFloat(b.low).Add(cent)
		highest := decimal.NewFromFloat(b.high)
		if value.LessThan(lowest) {
			value = lowest
		}
		if value.GreaterThan(highest) {
			value = highest
		}
		return value
	}
	return decimal.NewFromInt(30)
}

// ValidCrashPoint reports whether v can be used as a crash point
func ValidCrashPoint(v decimal.Decimal) bool {
	return v.GreaterThanOrEqual(minCrashPoint)
}
