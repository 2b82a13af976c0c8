package text

import (
	"regexp"
	"strings"
)

// wordPattern mirrors a Unicode-aware \w+ so that accented and non-latin words
// tokenize the same way everywhere in the service.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Words returns the word tokens of s in their original case.
func Words(s string) []string {
	return wordPattern.FindAllString(s, -1)
}

// FoldedWords returns the word tokens of s lower-cased.
func FoldedWords(s string) []string {
	return Words(strings.ToLower(s))
}

// WordSet returns the distinct lower-cased word tokens of s.
func WordSet(s string) map[string]struct{} {
	words := FoldedWords(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// ContainsPhrase reports whether phrase occurs in tokens as a contiguous run of
// whole words. Both sides are expected to be folded already.
func ContainsPhrase(tokens, phrase []string) bool {
	return CountPhrase(tokens, phrase) > 0
}

// CountPhrase counts non-overlapping occurrences of phrase in tokens.
func CountPhrase(tokens, phrase []string) int {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return 0
	}

	count := 0
	for i := 0; i+len(phrase) <= len(tokens); {
		if matchAt(tokens, phrase, i) {
			count++
			i += len(phrase)
			continue
		}
		i++
	}
	return count
}

func matchAt(tokens, phrase []string, at int) bool {
	for j, p := range phrase {
		if tokens[at+j] != p {
			return false
		}
	}
	return true
}

// CountSpokenPhrase counts non-overlapping occurrences of the folded phrase in
// s where consecutive words are separated by whitespace only, so punctuation
// such as "you, know" breaks the phrase.
func CountSpokenPhrase(s string, phrase []string) int {
	if len(phrase) == 0 {
		return 0
	}

	lower := strings.ToLower(s)
	spans := wordPattern.FindAllStringIndex(lower, -1)

	count := 0
	for i := 0; i+len(phrase) <= len(spans); {
		if spokenAt(lower, spans, phrase, i) {
			count++
			i += len(phrase)
			continue
		}
		i++
	}
	return count
}

func spokenAt(s string, spans [][]int, phrase []string, at int) bool {
	for j, p := range phrase {
		span := spans[at+j]
		if s[span[0]:span[1]] != p {
			return false
		}
		if j > 0 && strings.TrimSpace(s[spans[at+j-1][1]:span[0]]) != "" {
			return false
		}
	}
	return true
}
