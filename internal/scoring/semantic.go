package scoring

// Semantic turns the cosine similarity between the answer and the ideal answer
// into a score. Negative alignment counts as no alignment.
func Semantic(similarity float64, r Range) float64 {
	return r.Scale(similarity)
}
