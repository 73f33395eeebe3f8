package survey

import "math"

// agreementScores maps the canonical 4-option agreement scale onto a signed
// range so that disagreement weighs against the average instead of diluting
// it. Any other option count falls back to a linear 1..N scale.
var agreementScores = [4]float64{-1, -0.75, 0.75, 1}

type ScoreRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ScoreOf converts a zero-based option index into its numeric score. A
// non-positive option count is treated as a single-option scale and an
// out-of-range index clamps to the nearest option; neither blocks a save.
func ScoreOf(optionIndex, optionCount int) float64 {
	if optionCount <= 0 {
		optionCount = 1
	}
	if optionIndex < 0 {
		optionIndex = 0
	}
	if optionIndex >= optionCount {
		optionIndex = optionCount - 1
	}
	if optionCount == len(agreementScores) {
		return agreementScores[optionIndex]
	}
	return float64(optionIndex) + 1
}

// RangeOf returns the score range a scale with the given option count can
// produce.
func RangeOf(optionCount int) ScoreRange {
	if optionCount <= 0 {
		optionCount = 1
	}
	if optionCount == len(agreementScores) {
		return ScoreRange{Min: agreementScores[0], Max: agreementScores[len(agreementScores)-1]}
	}
	return ScoreRange{Min: 1, Max: float64(optionCount)}
}

// PercentageOf rescales a score within [min, max] to 0..100. A degenerate
// range (max <= min) yields 0.
func PercentageOf(score, min, max float64) int {
	if max <= min {
		return 0
	}
	pct := (score - min) / (max - min) * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return int(math.Round(pct))
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
