// Package scoring holds the pure scoring rules of answer evaluation: the copy
// guard, the three sub-scores, their weighted combination and the feedback
// tiers. Every score lives on the single range declared by Range.
package scoring

import "math"

// DefaultRange is the declared score scale of the service (0-100).
const DefaultRange Range = 100

// Range is the upper bound of every sub-score and of the final score. The lower
// bound is always zero.
type Range float64

// Max returns the upper bound as a float.
func (r Range) Max() float64 {
	if r <= 0 {
		return float64(DefaultRange)
	}
	return float64(r)
}

// Scale maps a ratio in [0, 1] onto the range, clamping out-of-range ratios and
// rounding to two decimals.
func (r Range) Scale(ratio float64) float64 {
	return Round2(clamp(ratio, 0, 1) * r.Max())
}

// Clamp bounds v to [0, Max].
func (r Range) Clamp(v float64) float64 {
	return clamp(v, 0, r.Max())
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
