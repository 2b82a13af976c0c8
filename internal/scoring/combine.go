package scoring

import (
	"errors"
	"fmt"
	"math"
)

const weightTolerance = 1e-9

// ErrInvalidWeights is returned by Weights.Validate.
var ErrInvalidWeights = errors.New("invalid score weights")

// SubScores are the three per-dimension scores of an answer.
type SubScores struct {
	Semantic float64 `json:"semantic" yaml:"semantic"`
	Coverage float64 `json:"coverage" yaml:"coverage"`
	Density  float64 `json:"density" yaml:"density"`
}

// Weights blend the sub-scores into the final score.
type Weights struct {
	Semantic float64 `mapstructure:"semantic" json:"semantic"`
	Coverage float64 `mapstructure:"coverage" json:"coverage"`
	Density  float64 `mapstructure:"density" json:"density"`
}

// DefaultWeights favour meaning over vocabulary over fluency.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.6, Coverage: 0.3, Density: 0.1}
}

// Validate checks that every weight is non-negative and that they sum to one.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{"semantic": w.Semantic, "coverage": w.Coverage, "density": w.Density} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s weight %v is negative", ErrInvalidWeights, name, v)
		}
	}

	if sum := w.Semantic + w.Coverage + w.Density; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v, want 1", ErrInvalidWeights, sum)
	}

	return nil
}

// Combine returns the weighted final score clamped to r and rounded to two
// decimals.
func (w Weights) Combine(s SubScores, r Range) float64 {
	total := w.Semantic*s.Semantic + w.Coverage*s.Coverage + w.Density*s.Density
	return Round2(r.Clamp(total))
}
