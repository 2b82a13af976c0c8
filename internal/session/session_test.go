package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/answer-grader/internal/scoring"
)

type stubGenerator struct {
	output  string
	err     error
	block   bool
	prompts []string
}

func (s *stubGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.output, s.err
}

func sampleItems() []Item {
	return []Item{
		{Question: "What is a goroutine?", Answer: "A **lightweight** thread.", Score: 72.5},
		{Question: "What is a channel?", Answer: "  ", Score: 0},
		{Question: "What does defer do?", Answer: "Runs a call when the function returns.", Score: 90},
	}
}

func TestAverageAndAnswered(t *testing.T) {
	t.Parallel()

	items := sampleItems()
	assert.Equal(t, 54.17, AverageScore(items))
	assert.Equal(t, 2, Answered(items))
	assert.Zero(t, AverageScore(nil))
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt("go", scoring.Range(10), sampleItems())

	assert.Contains(t, prompt, "for a go position")
	assert.Contains(t, prompt, "scored from 0 to 10.")
	assert.Contains(t, prompt, "Q1: What is a goroutine?\nA1: A lightweight thread.\nScore: 72.5")
	assert.Contains(t, prompt, "A2: (no answer)\nScore: 0")
	assert.Contains(t, BuildPrompt("", scoring.DefaultRange, sampleItems()), "for a software position")
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{output: "You explained **goroutines** well.\n\n\nNext, practise channels."}
	s := New(gen, nil)

	got, err := s.Summarize(context.Background(), Request{Role: " go ", Items: sampleItems()})
	require.NoError(t, err)

	assert.Equal(t, &Summary{
		Role:         "go",
		Summary:      "You explained goroutines well.\nNext, practise channels.",
		AverageScore: 54.17,
		Answered:     2,
		Total:        3,
	}, got)
	require.Len(t, gen.prompts, 1)
	assert.True(t, strings.Contains(gen.prompts[0], "Q3: What does defer do?"))
}

func TestSummarizeFallsBackToSentinel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{name: "generator error", gen: &stubGenerator{err: errors.New("quota exceeded")}},
		{name: "empty output", gen: &stubGenerator{output: "```\n```"}},
		{name: "timeout", gen: &stubGenerator{block: true}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.WarnLevel)
			s := New(tt.gen, zap.New(core), WithTimeout(20*time.Millisecond))

			got, err := s.Summarize(context.Background(), Request{Items: sampleItems()})
			require.NoError(t, err)
			assert.Equal(t, NoSummary, got.Summary)
			assert.Equal(t, 54.17, got.AverageScore)
			assert.Equal(t, 1, logs.FilterMessage("session summary unavailable, using fallback").Len())
		})
	}

	got, err := New(nil, nil).Summarize(context.Background(), Request{Items: sampleItems()})
	require.NoError(t, err)
	assert.Equal(t, NoSummary, got.Summary)
}

func TestSummarizeRejectsInvalidRequests(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{output: "ok"}
	s := New(gen, nil, WithRange(scoring.Range(10)))

	tooMany := make([]Item, MaxItems+1)
	for i := range tooMany {
		tooMany[i] = Item{Question: "q", Score: 1}
	}

	for name, req := range map[string]Request{
		"no items":       {},
		"too many items": {Items: tooMany},
		"no question":    {Items: []Item{{Question: " ", Answer: "a", Score: 1}}},
		"score above":    {Items: []Item{{Question: "q", Score: 11}}},
		"negative score": {Items: []Item{{Question: "q", Score: -1}}},
	} {
		_, err := s.Summarize(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidRequest, name)
	}
	assert.Empty(t, gen.prompts)
}
