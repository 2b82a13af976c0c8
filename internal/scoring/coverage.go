package scoring

import (
	_ "embed"
	"strings"
	"unicode/utf8"

	"github.com/spigell/answer-grader/internal/text"
)

const (
	DefaultMinKeywordLength = 4
	DefaultMaxKeywords      = 25
	DefaultBoostThreshold   = 0.5
	DefaultBoost            = 0.1
)

//go:embed stopwords.txt
var stopwordsList string

// DefaultStopwords returns a fresh copy of the built-in stopword set.
func DefaultStopwords() map[string]struct{} {
	return wordSet(strings.Fields(stopwordsList))
}

// CoverageScorer measures how many significant ideal-answer words the answer
// reproduces.
type CoverageScorer struct {
	Stopwords map[string]struct{}
	// MinWordLength is the shortest ideal word (in runes) that counts as a keyword.
	MinWordLength int
	// MaxKeywords caps the keyword list so long references stay reachable.
	MaxKeywords    int
	BoostThreshold float64
	Boost          float64
}

// NewCoverageScorer returns a scorer with the default filters and boost.
func NewCoverageScorer() CoverageScorer {
	return CoverageScorer{
		Stopwords:      DefaultStopwords(),
		MinWordLength:  DefaultMinKeywordLength,
		MaxKeywords:    DefaultMaxKeywords,
		BoostThreshold: DefaultBoostThreshold,
		Boost:          DefaultBoost,
	}
}

// Keywords extracts the significant words of ideal in first-appearance order.
// Extra keywords (for example a role's vocabulary) come first and may contain
// several words. The list is capped at MaxKeywords.
func (s CoverageScorer) Keywords(ideal string, extra ...string) [][]string {
	seen := make(map[string]struct{})
	keywords := make([][]string, 0)

	add := func(phrase []string) {
		key := strings.Join(phrase, " ")
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keywords = append(keywords, phrase)
	}

	for _, kw := range extra {
		if phrase := text.FoldedWords(kw); len(phrase) > 0 {
			add(phrase)
		}
	}

	for _, w := range text.FoldedWords(ideal) {
		if !s.significant(w) {
			continue
		}
		add([]string{w})
	}

	if s.MaxKeywords > 0 && len(keywords) > s.MaxKeywords {
		keywords = keywords[:s.MaxKeywords]
	}

	return keywords
}

// Ratio returns the boosted coverage ratio in [0, 1].
func (s CoverageScorer) Ratio(answer, ideal string, extra ...string) float64 {
	keywords := s.Keywords(ideal, extra...)
	if len(keywords) == 0 {
		return 0
	}

	tokens := text.FoldedWords(answer)
	hits := 0
	for _, kw := range keywords {
		if text.ContainsPhrase(tokens, kw) {
			hits++
		}
	}

	ratio := float64(hits) / float64(len(keywords))
	if ratio >= s.BoostThreshold {
		ratio = min(1, ratio+s.Boost)
	}

	return ratio
}

// Score returns the coverage sub-score on r.
func (s CoverageScorer) Score(answer, ideal string, r Range, extra ...string) float64 {
	return r.Scale(s.Ratio(answer, ideal, extra...))
}

func (s CoverageScorer) significant(w string) bool {
	if utf8.RuneCountInString(w) < s.MinWordLength {
		return false
	}
	_, stop := s.Stopwords[w]
	return !stop
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}
