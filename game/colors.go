package game

import (
	"github.com/shopspring/decimal"

	"wingo/models"
)

// Damping keeps a color with no money on it from taking all of the probability mass
const (
	RedGreenDamping = 10.0
	VioletDamping   = 5.0

	// VioletFloor is the minimum probability violet is ever given
	VioletFloor = 0.05
)

var (
	violetPayout = decimal.NewFromInt(9)
	basePayout   = decimal.NewFromInt(2)
)

// ColorOdds holds the probability of each color winning a round
type ColorOdds struct {
	Red    float64 `json:"red"`
	Green  float64 `json:"green"`
	Violet float64 `json:"violet"`
}

// ColorProbabilities weights each color inversely to the money staked on it, so the
// color carrying the least money is the most likely to win. Violet never drops below
// VioletFloor; red and green share the remainder in their original ratio.
func ColorProbabilities(stakes map[models.Color]decimal.Decimal) ColorOdds {
	staked := func(c models.Color) float64 {
		if v, ok := stakes[c]; ok && v.IsPositive() {
			return v.InexactFloat64()
		}
		return 0
	}

	wRed := 1 / (staked(models.ColorRed) + RedGreenDamping)
	wGreen := 1 / (staked(models.ColorGreen) + RedGreenDamping)
	wViolet := 1 / (staked(models.ColorViolet) + VioletDamping)
	total := wRed + wGreen + wViolet

	odds := ColorOdds{
		Red:    wRed / total,
		Green:  wGreen / total,
		Violet: wViolet / total,
	}

	if odds.Violet < VioletFloor {
		redGreen := odds.Red + odds.Green
		odds.Red = odds.Red / redGreen * (1 - VioletFloor)
		odds.Green = odds.Green / redGreen * (1 - VioletFloor)
		odds.Violet = VioletFloor
	}

	return odds
}

// Pick maps a uniform draw in [0, 1) onto a color
func (o ColorOdds) Pick(u float64) models.Color {
	switch {
	case u < o.Red:
		return models.ColorRed
	case u < o.Red+o.Green:
		return models.ColorGreen
	default:
		return models.ColorViolet
	}
}

// PayoutMultiplier returns what a winning stake on color is multiplied by
func PayoutMultiplier(color models.Color) decimal.Decimal {
	if color == models.ColorViolet {
		return violetPayout
	}
	return basePayout
}

// ColorPayout returns the amount credited for a winning stake
func ColorPayout(stake decimal.Decimal, color models.Color) decimal.Decimal {
	return stake.Mul(PayoutMultiplier(color)).Round(2)
}
