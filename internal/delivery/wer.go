package delivery

import (
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/spigell/answer-grader/internal/scoring"
	"github.com/spigell/answer-grader/internal/text"
)

// firstWordRune is the start of the Unicode private use area; words are mapped
// onto it so the rune based edit distance can operate on whole words.
const firstWordRune = 0xE000

var werOptions = levenshtein.Options{
	InsCost: 1,
	DelCost: 1,
	SubCost: 1,
	Matches: func(a, b rune) bool { return a == b },
}

// WordErrorRate returns (substitutions + insertions + deletions) / reference
// words, compared case-insensitively. An empty reference gives 0 for an empty
// transcript and 1 otherwise.
func WordErrorRate(reference, transcript string) float64 {
	ref := text.FoldedWords(reference)
	hyp := text.FoldedWords(transcript)

	if len(ref) == 0 {
		if len(hyp) == 0 {
			return 0
		}
		return 1
	}

	dict := make(map[string]rune)
	source := encodeWords(ref, dict)
	target := encodeWords(hyp, dict)

	distance := levenshtein.DistanceForStrings(source, target, werOptions)
	return scoring.Round2(float64(distance) / float64(len(ref)))
}

func encodeWords(words []string, dict map[string]rune) []rune {
	out := make([]rune, len(words))
	for i, w := range words {
		r, ok := dict[w]
		if !ok {
			r = rune(firstWordRune + len(dict))
			dict[w] = r
		}
		out[i] = r
	}
	return out
}
