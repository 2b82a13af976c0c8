// Package delivery computes speaking-delivery metrics from a transcript and
// the duration of the recording it came from.
package delivery

import (
	"math"

	"github.com/spigell/answer-grader/internal/scoring"
	"github.com/spigell/answer-grader/internal/text"
)

// Metrics describes how an answer was spoken.
type Metrics struct {
	DurationSeconds float64  `json:"duration_seconds" yaml:"duration_seconds"`
	WordCount       int      `json:"word_count" yaml:"word_count"`
	WPM             float64  `json:"wpm" yaml:"wpm"`
	Fillers         int      `json:"fillers" yaml:"fillers"`
	WordErrorRate   *float64 `json:"word_error_rate,omitempty" yaml:"word_error_rate,omitempty"`
}

// Calculator counts fillers with a configurable filler set.
type Calculator struct {
	Fillers scoring.FillerSet
}

// NewCalculator returns a Calculator over scoring.DefaultFillers.
func NewCalculator() Calculator {
	return Calculator{Fillers: scoring.NewFillerSet(scoring.DefaultFillers)}
}

// Compute returns the delivery metrics of transcript spoken over
// durationSeconds. A non-positive duration yields a zero pace.
func Compute(transcript string, durationSeconds float64) Metrics {
	return NewCalculator().Compute(transcript, durationSeconds)
}

// Compute is the configurable form of the package-level Compute.
func (c Calculator) Compute(transcript string, durationSeconds float64) Metrics {
	tokens := text.FoldedWords(transcript)

	fillers := 0
	for _, tok := range tokens {
		if _, ok := c.Fillers.Words[tok]; ok {
			fillers++
		}
	}
	for _, phrase := range c.Fillers.Phrases {
		fillers += text.CountSpokenPhrase(transcript, phrase)
	}

	wpm := 0.0
	if durationSeconds > 0 && !math.IsInf(durationSeconds, 0) {
		wpm = scoring.Round2(float64(len(tokens)) / durationSeconds * 60)
	}

	return Metrics{
		DurationSeconds: scoring.Round2(math.Max(durationSeconds, 0)),
		WordCount:       len(tokens),
		WPM:             wpm,
		Fillers:         fillers,
	}
}

// WithReference attaches the word error rate of transcript against reference.
// An empty reference leaves the metrics untouched.
func (m Metrics) WithReference(reference, transcript string) Metrics {
	if len(text.Words(reference)) == 0 {
		return m
	}
	wer := WordErrorRate(reference, transcript)
	m.WordErrorRate = &wer
	return m
}
