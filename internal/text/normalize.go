package text

import (
	"regexp"
	"strings"
)

var (
	codeFence  = regexp.MustCompile("(?s)```.*?```")
	emphasis   = regexp.MustCompile(`[\\*_]`)
	blankLines = regexp.MustCompile(`\n{2,}`)
)

// Normalize strips fenced code blocks, markdown emphasis and escape characters,
// collapses runs of line breaks and trims the result.
//
// The steps are repeated until the text stops changing: removing a character
// can glue two backtick runs into a new fence, and a second call must not find
// anything left to strip.
func Normalize(s string) string {
	for {
		next := normalizeOnce(s)
		if next == s {
			return next
		}
		s = next
	}
}

func normalizeOnce(s string) string {
	s = codeFence.ReplaceAllString(s, "")
	s = emphasis.ReplaceAllString(s, "")
	s = blankLines.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
