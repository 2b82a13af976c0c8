package scoring

import "github.com/spigell/answer-grader/internal/text"

const (
	DefaultLexicalCopyThreshold  = 0.8
	DefaultSemanticCopyThreshold = 0.9
)

// CopyDetector decides whether an answer merely restates the question. Either
// signal alone is enough.
type CopyDetector struct {
	LexicalThreshold  float64
	SemanticThreshold float64
}

// NewCopyDetector returns a detector with the default thresholds.
func NewCopyDetector() CopyDetector {
	return CopyDetector{
		LexicalThreshold:  DefaultLexicalCopyThreshold,
		SemanticThreshold: DefaultSemanticCopyThreshold,
	}
}

// LexicalOverlap returns the share of distinct question words that also occur
// in the answer. A question without words has no overlap.
func LexicalOverlap(question, answer string) float64 {
	questionWords := text.WordSet(question)
	if len(questionWords) == 0 {
		return 0
	}

	answerWords := text.WordSet(answer)
	shared := 0
	for w := range questionWords {
		if _, ok := answerWords[w]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(questionWords))
}

// Lexical reports whether the word overlap exceeds the lexical threshold.
func (d CopyDetector) Lexical(question, answer string) bool {
	return LexicalOverlap(question, answer) > d.LexicalThreshold
}

// Semantic reports whether the answer/question cosine similarity exceeds the
// semantic threshold.
func (d CopyDetector) Semantic(similarity float64) bool {
	return similarity > d.SemanticThreshold
}
