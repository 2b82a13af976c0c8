package scoring

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRangeScale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{name: "negative clamps to zero", ratio: -0.3, want: 0},
		{name: "fraction rounds", ratio: 0.12345, want: 12.35},
		{name: "above one clamps", ratio: 1.2, want: 100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DefaultRange.Scale(tt.ratio); got != tt.want {
				t.Fatalf("Scale(%v) = %v, want %v", tt.ratio, got, tt.want)
			}
		})
	}

	if got := Range(0).Max(); got != 100 {
		t.Fatalf("zero range should fall back to default, got %v", got)
	}
}

func TestSemantic(t *testing.T) {
	t.Parallel()

	if got := Semantic(-0.5, DefaultRange); got != 0 {
		t.Fatalf("negative similarity should score 0, got %v", got)
	}
	if got := Semantic(0.756, DefaultRange); got != 75.6 {
		t.Fatalf("expected 75.6, got %v", got)
	}
	if got := Semantic(1, Range(10)); got != 10 {
		t.Fatalf("expected range max 10, got %v", got)
	}
}

func TestCopyDetector(t *testing.T) {
	t.Parallel()

	d := NewCopyDetector()

	if got := LexicalOverlap("", "anything"); got != 0 {
		t.Fatalf("empty question should have no overlap, got %v", got)
	}
	if !d.Lexical("What is polymorphism?", "what is POLYMORPHISM") {
		t.Fatalf("verbatim restatement should be flagged")
	}
	if d.Lexical("What is polymorphism?", "polymorphism is many forms") {
		t.Fatalf("two of three question words must not be flagged")
	}
	if d.Semantic(0.9) {
		t.Fatalf("threshold itself is not a copy")
	}
	if !d.Semantic(0.95) {
		t.Fatalf("similarity above threshold should be a copy")
	}
}

func TestCoverageScore(t *testing.T) {
	t.Parallel()

	ideal := "Object oriented programming: polymorphism and inheritance."
	s := NewCoverageScorer()

	tests := []struct {
		name   string
		answer string
		want   float64
	}{
		{name: "single hit", answer: "Polymorphism is the thing", want: 20},
		{name: "boost above half", answer: "object oriented polymorphism", want: 70},
		{name: "boost capped", answer: "object oriented programming with polymorphism and inheritance", want: 100},
		{name: "whole words only", answer: "objects polymorphisms", want: 0},
		{name: "no answer", answer: "", want: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := s.Score(tt.answer, ideal, DefaultRange); got != tt.want {
				t.Fatalf("Score(%q) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestCoverageKeywords(t *testing.T) {
	t.Parallel()

	s := NewCoverageScorer()

	got := s.Keywords("The cat and the API use Caching, caching twice", "design patterns")
	want := []string{"design patterns", "caching", "twice"}
	if len(got) != len(want) {
		t.Fatalf("expected %d keywords, got %v", len(want), got)
	}
	for i, kw := range got {
		if joined := strings.Join(kw, " "); joined != want[i] {
			t.Fatalf("keyword %d = %q, want %q", i, joined, want[i])
		}
	}

	if kws := s.Keywords("a an the of"); len(kws) != 0 {
		t.Fatalf("stopword-only ideal should have no keywords, got %v", kws)
	}
	if got := s.Score("anything at all", "a an the of", DefaultRange); got != 0 {
		t.Fatalf("empty keyword list must score 0, got %v", got)
	}

	words := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		words = append(words, fmt.Sprintf("keyword%02d", i))
	}
	if kws := s.Keywords(strings.Join(words, " ")); len(kws) != DefaultMaxKeywords {
		t.Fatalf("expected keyword cap %d, got %d", DefaultMaxKeywords, len(kws))
	}
}

func TestCoverageRoleKeywordPhrase(t *testing.T) {
	t.Parallel()

	s := NewCoverageScorer()
	ideal := "Singletons restrict instantiation."

	with := s.Ratio("design patterns like singletons restrict instantiation", ideal, "design patterns")
	without := s.Ratio("patterns of design with singletons restrict instantiation", ideal, "design patterns")
	if with != 1 {
		t.Fatalf("expected full coverage with contiguous phrase, got %v", with)
	}
	if without >= with {
		t.Fatalf("split phrase must not count as a hit: %v >= %v", without, with)
	}
}

func TestDensityScore(t *testing.T) {
	t.Parallel()

	s := NewDensityScorer()

	tests := []struct {
		name   string
		answer string
		want   float64
	}{
		{name: "no words", answer: "  ...  ", want: 0},
		{name: "no fillers", answer: "Interfaces decouple callers", want: 100},
		{name: "single token fillers", answer: "um so I think like this is good", want: 75},
		{name: "phrase filler covers both tokens", answer: "you know it works", want: 50},
		{name: "partial phrase is not a filler", answer: "you should know it", want: 100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := s.Score(tt.answer, DefaultRange); got != tt.want {
				t.Fatalf("Score(%q) = %v, want %v", tt.answer, got, tt.want)
			}
		})
	}
}

func TestWeights(t *testing.T) {
	t.Parallel()

	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights should be valid: %v", err)
	}

	for _, w := range []Weights{
		{Semantic: 0.5, Coverage: 0.3, Density: 0.1},
		{Semantic: 1.2, Coverage: -0.2, Density: 0},
	} {
		if err := w.Validate(); !errors.Is(err, ErrInvalidWeights) {
			t.Fatalf("expected ErrInvalidWeights for %+v, got %v", w, err)
		}
	}

	got := DefaultWeights().Combine(SubScores{Semantic: 80, Coverage: 50, Density: 100}, DefaultRange)
	if got != 73 {
		t.Fatalf("expected 73, got %v", got)
	}

	if got := DefaultWeights().Combine(SubScores{Semantic: 100, Coverage: 100, Density: 100}, DefaultRange); got != 100 {
		t.Fatalf("perfect sub-scores should give the range max, got %v", got)
	}
	if got := DefaultWeights().Combine(SubScores{}, DefaultRange); got != 0 {
		t.Fatalf("zero sub-scores should give 0, got %v", got)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	th := DefaultThresholds()

	tests := []struct {
		score float64
		want  Tier
	}{
		{score: 100, want: TierExcellent},
		{score: 80, want: TierExcellent},
		{score: 79.99, want: TierGood},
		{score: 60, want: TierGood},
		{score: 40, want: TierFair},
		{score: 39.99, want: TierNeedsImprovement},
		{score: 0, want: TierNeedsImprovement},
	}

	for _, tt := range tests {
		if got := th.Classify(tt.score, DefaultRange); got != tt.want {
			t.Fatalf("Classify(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}

	if got := TierCopied.Message(); got != "Your answer appears to be copied from the question." {
		t.Fatalf("unexpected copied message %q", got)
	}
	if got := TierEmpty.Message(); got != "Answer cannot be empty." {
		t.Fatalf("unexpected empty message %q", got)
	}
}

func TestCoveragePolymorphismScenario(t *testing.T) {
	t.Parallel()

	ideal := "object oriented programming polymorphism inheritance"
	answer := "Polymorphism lets objects of different types respond to the same call."

	s := NewCoverageScorer()
	if got := s.Ratio(answer, ideal); got != 0.2 {
		t.Fatalf("Ratio = %v, want 0.2", got)
	}
	if got := s.Score(answer, ideal, DefaultRange); got != 20 {
		t.Fatalf("Score = %v, want 20", got)
	}
}

func FuzzSubScoresWithinRange(f *testing.F) {
	f.Add("Polymorphism lets objects respond to the same call.", "object oriented programming polymorphism inheritance", 0.83)
	f.Add("", "", -1.0)
	f.Add("um uh like you know", "um uh like", 2.0)
	f.Add("```code``` **bold** __x__", "\\\\ \n\n\n", 0.0)
	f.Add("привет мир 123", "мир мир мир", 0.5)

	coverage := NewCoverageScorer()
	density := NewDensityScorer()
	weights := DefaultWeights()

	f.Fuzz(func(t *testing.T, answer, ideal string, similarity float64) {
		for _, r := range []Range{DefaultRange, 10} {
			scores := SubScores{
				Semantic: Semantic(similarity, r),
				Coverage: coverage.Score(answer, ideal, r),
				Density:  density.Score(answer, r),
			}
			final := weights.Combine(scores, r)

			for name, v := range map[string]float64{
				"semantic": scores.Semantic,
				"coverage": scores.Coverage,
				"density":  scores.Density,
				"final":    final,
			} {
				if !(v >= 0 && v <= r.Max()) {
					t.Fatalf("%s score %v outside [0, %v] for answer=%q ideal=%q similarity=%v", name, v, r.Max(), answer, ideal, similarity)
				}
			}
		}
	})
}
