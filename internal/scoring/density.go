package scoring

import (
	"strings"

	"github.com/spigell/answer-grader/internal/text"
)

// DefaultFillers are the verbal hesitation markers excluded from substantive
// speech. Multi-word entries are matched as whole phrases.
var DefaultFillers = []string{"um", "uh", "like", "you know"}

// FillerSet splits filler entries into single tokens and multi-word phrases.
type FillerSet struct {
	Words   map[string]struct{}
	Phrases [][]string
}

// NewFillerSet builds a FillerSet from raw entries such as "um" or "you know".
func NewFillerSet(entries []string) FillerSet {
	set := FillerSet{Words: make(map[string]struct{})}
	for _, entry := range entries {
		words := text.FoldedWords(entry)
		switch len(words) {
		case 0:
			continue
		case 1:
			set.Words[words[0]] = struct{}{}
		default:
			set.Phrases = append(set.Phrases, words)
		}
	}
	return set
}

// Mask marks every folded token covered by a filler word or phrase.
func (f FillerSet) Mask(tokens []string) []bool {
	mask := make([]bool, len(tokens))
	for _, phrase := range f.Phrases {
		for i := 0; i+len(phrase) <= len(tokens); i++ {
			if equalAt(tokens, phrase, i) {
				for j := range phrase {
					mask[i+j] = true
				}
			}
		}
	}
	for i, tok := range tokens {
		if _, ok := f.Words[tok]; ok {
			mask[i] = true
		}
	}
	return mask
}

// IsZero reports whether the set has no entries.
func (f FillerSet) IsZero() bool {
	return len(f.Words) == 0 && len(f.Phrases) == 0
}

// String lists the entries, mainly for logs.
func (f FillerSet) String() string {
	entries := make([]string, 0, len(f.Words)+len(f.Phrases))
	for w := range f.Words {
		entries = append(entries, w)
	}
	for _, p := range f.Phrases {
		entries = append(entries, strings.Join(p, " "))
	}
	return strings.Join(entries, ",")
}

// DensityScorer scores the share of answer words that are not fillers.
type DensityScorer struct {
	Fillers FillerSet
}

// NewDensityScorer returns a scorer over DefaultFillers.
func NewDensityScorer() DensityScorer {
	return DensityScorer{Fillers: NewFillerSet(DefaultFillers)}
}

// Ratio returns non-filler words / total words, or 0 without words.
func (s DensityScorer) Ratio(answer string) float64 {
	tokens := text.FoldedWords(answer)
	if len(tokens) == 0 {
		return 0
	}

	substantive := 0
	for _, filler := range s.Fillers.Mask(tokens) {
		if !filler {
			substantive++
		}
	}

	return float64(substantive) / float64(len(tokens))
}

// Score returns the density sub-score on r.
func (s DensityScorer) Score(answer string, r Range) float64 {
	return r.Scale(s.Ratio(answer))
}

func equalAt(tokens, phrase []string, at int) bool {
	for j, p := range phrase {
		if tokens[at+j] != p {
			return false
		}
	}
	return true
}
