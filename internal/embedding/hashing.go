package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/spigell/answer-grader/internal/text"
)

const defaultHashingDimension = 512

// Hashing is an offline embedder that projects word unigrams and bigrams into
// a fixed number of buckets and L2-normalizes the result. It needs no corpus
// and is deterministic, which makes it the default backend.
type Hashing struct {
	dimension int
	stopwords map[string]struct{}
}

// NewHashing creates a hashing embedder. Non-positive dimensions use 512.
func NewHashing(dimension int, stopwords map[string]struct{}) *Hashing {
	if dimension <= 0 {
		dimension = defaultHashingDimension
	}
	if stopwords == nil {
		stopwords = map[string]struct{}{}
	}
	return &Hashing{dimension: dimension, stopwords: stopwords}
}

// Name identifies the embedder and its dimension, so cached vectors of
// another dimension are never reused.
func (h *Hashing) Name() string { return fmt.Sprintf("hashing:%d", h.dimension) }

// Dimension returns the length of produced vectors.
func (h *Hashing) Dimension() int { return h.dimension }

// Embed computes the hashed bag-of-words vector of text.
func (h *Hashing) Embed(_ context.Context, s string) ([]float64, error) {
	vec := make([]float64, h.dimension)

	tokens := make([]string, 0)
	for _, tok := range text.FoldedWords(s) {
		if _, stop := h.stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}

	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec, nil
}

func (h *Hashing) add(vec []float64, feature string, weight float64) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()

	idx := int(sum % uint64(h.dimension))
	// The top bit picks a sign so colliding features tend to cancel out.
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
