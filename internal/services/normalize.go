package services

import (
	"gonum.org/v1/gonum/floats"
)

// uniformScore is assigned to every entry when a set has no spread.
const uniformScore = 0.5

// MinMaxNormalize rescales scores onto [0,1] across the whole set. When every
// score is equal the result is uniformly 0.5. Applying it to its own output
// returns the same values.
func MinMaxNormalize(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	values := make([]float64, 0, len(scores))
	for _, v := range scores {
		values = append(values, v)
	}
	lo, hi := floats.Min(values), floats.Max(values)

	span := hi - lo
	for id, v := range scores {
		if span == 0 {
			out[id] = uniformScore
			continue
		}
		out[id] = (v - lo) / span
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
