package questions

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spigell/answer-grader/internal/scoring"
	"github.com/spigell/answer-grader/internal/text"
)

// listMarker matches bullets and enumerations such as "-", "•", "3." or "Q2)".
var listMarker = regexp.MustCompile(`^\s*(?:[-•]+|(?:[qQ]|[qQ]uestion\s*)?[0-9]+\s*[.):])\s*`)

// Parse extracts at most limit distinct questions from generator output, one
// per line. Lines holding several questions are split after each "?", and
// preambles ending with a colon are dropped.
func Parse(raw string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	for _, line := range strings.Split(text.Normalize(raw), "\n") {
		for _, item := range splitLine(line) {
			key := strings.ToLower(item)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

func splitLine(line string) []string {
	parts := []string{line}
	if strings.Count(line, "?") > 1 {
		parts = strings.SplitAfter(line, "?")
	}

	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if item := cleanItem(p); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func cleanItem(s string) string {
	s = listMarker.ReplaceAllString(s, "")
	s = strings.Trim(strings.TrimSpace(s), `"“”`)
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, ":") {
		return ""
	}
	return s
}

// Keywords picks the significant words of free text with the same filters
// the coverage scorer applies to ideal answers.
type Keywords struct {
	Stopwords     map[string]struct{}
	MinWordLength int
}

// NewKeywords uses the default stopwords and keyword length floor.
func NewKeywords() Keywords {
	return Keywords{
		Stopwords:     scoring.DefaultStopwords(),
		MinWordLength: scoring.DefaultMinKeywordLength,
	}
}

// Extract returns the distinct significant words of s in first-appearance
// order.
func (k Keywords) Extract(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range text.FoldedWords(s) {
		if utf8.RuneCountInString(w) < k.MinWordLength {
			continue
		}
		if _, stop := k.Stopwords[w]; stop {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// RankByKeywords moves questions mentioning any keyword to the front, keeping
// the relative order within both groups. Nothing is dropped.
func RankByKeywords(questions, keywords []string) []string {
	if len(keywords) == 0 {
		return questions
	}

	matched := make([]string, 0, len(questions))
	rest := make([]string, 0, len(questions))
	for _, q := range questions {
		words := text.WordSet(q)
		hit := false
		for _, kw := range keywords {
			if _, ok := words[kw]; ok {
				hit = true
				break
			}
		}
		if hit {
			matched = append(matched, q)
		} else {
			rest = append(rest, q)
		}
	}
	return append(matched, rest...)
}
