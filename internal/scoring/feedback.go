package scoring

// Tier is the qualitative outcome of an evaluation.
type Tier string

const (
	TierExcellent        Tier = "excellent"
	TierGood             Tier = "good"
	TierFair             Tier = "fair"
	TierNeedsImprovement Tier = "needs_improvement"
	TierEmpty            Tier = "empty"
	TierCopied           Tier = "copied"
)

var messages = map[Tier]string{
	TierExcellent:        "Great answer! Clear, relevant, and well-aligned.",
	TierGood:             "Good answer, but try adding more key concepts.",
	TierFair:             "Fair answer. Cover the core ideas in more depth.",
	TierNeedsImprovement: "Answer needs improvement. Focus on core concepts.",
	TierEmpty:            "Answer cannot be empty.",
	TierCopied:           "Your answer appears to be copied from the question.",
}

// Message returns the fixed feedback text of the tier.
func (t Tier) Message() string {
	return messages[t]
}

// Thresholds are the lower bounds of each graded tier as fractions of the range.
type Thresholds struct {
	Excellent float64 `mapstructure:"excellent"`
	Good      float64 `mapstructure:"good"`
	Fair      float64 `mapstructure:"fair"`
}

// DefaultThresholds returns the 80/60/40 percent cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{Excellent: 0.8, Good: 0.6, Fair: 0.4}
}

// Classify maps a final score to its tier. Tiers are monotonic in score.
func (t Thresholds) Classify(final float64, r Range) Tier {
	top := r.Max()
	switch {
	case final >= t.Excellent*top:
		return TierExcellent
	case final >= t.Good*top:
		return TierGood
	case final >= t.Fair*top:
		return TierFair
	default:
		return TierNeedsImprovement
	}
}
