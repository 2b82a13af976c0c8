// Package ideal obtains reference answers for interview questions from a text
// generator.
package ideal

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/ai"
	"github.com/spigell/answer-grader/internal/cache"
	"github.com/spigell/answer-grader/internal/logger"
	"github.com/spigell/answer-grader/internal/metrics"
	"github.com/spigell/answer-grader/internal/text"
)

const (
	DefaultTimeout = 60 * time.Second

	defaultMaxLogLength = 200
	questionPlaceholder = "{{QUESTION}}"
)

//go:embed prompt.md
var promptTemplate string

// Store caches generated answers.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Recorder receives collaborator call outcomes.
type Recorder interface {
	RecordCollaborator(operation, status string, d time.Duration)
}

// Source asks a generator for the ideal answer of a question.
type Source struct {
	generator ai.TextGenerator
	timeout   time.Duration
	store     Store
	recorder  Recorder
	logger    *zap.Logger
	maxLogLen int
}

// Option customizes a Source.
type Option func(*Source)

// WithTimeout bounds every generator call.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithStore caches successful answers.
func WithStore(store Store) Option {
	return func(s *Source) { s.store = store }
}

// WithRecorder reports generator calls.
func WithRecorder(r Recorder) Option {
	return func(s *Source) { s.recorder = r }
}

// New creates a Source over generator.
func New(generator ai.TextGenerator, log *zap.Logger, opts ...Option) *Source {
	provider, model := ai.Describe(generator)
	s := &Source{
		generator: generator,
		timeout:   DefaultTimeout,
		logger:    logger.WithOperation(logger.WithCommonFields(log, provider, model), metrics.OperationGenerate),
		maxLogLen: defaultMaxLogLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch calls the generator once and returns its normalized answer. Empty
// output is reported as ai.ErrEmptyResponse.
func (s *Source) Fetch(ctx context.Context, question string) ai.IdealAnswer {
	key := s.cacheKey(question)
	if s.store != nil {
		var cached string
		found, err := s.store.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("ideal answer cache lookup failed", zap.Error(err))
		}
		if found && cached != "" {
			s.record(metrics.StatusCached, 0)
			return ai.IdealAnswer{Text: cached}
		}
	}

	prompt := BuildPrompt(question)
	s.logger.Debug("generate ideal answer request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, s.maxLogLen)),
	)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	raw, err := s.generator.GenerateContent(callCtx, prompt)
	elapsed := time.Since(started)
	if err != nil {
		s.record(metrics.StatusFailed, elapsed)
		return ai.IdealAnswer{Err: fmt.Errorf("generate ideal answer: %w", err)}
	}

	answer := text.Normalize(raw)
	if answer == "" {
		s.record(metrics.StatusFailed, elapsed)
		return ai.IdealAnswer{Err: ai.ErrEmptyResponse}
	}
	s.record(metrics.StatusOK, elapsed)

	s.logger.Debug("generate ideal answer response",
		zap.Duration("elapsed", elapsed),
		zap.Int("response_length", utf8.RuneCountInString(answer)),
		zap.String("response_preview", logger.TruncateForLog(answer, s.maxLogLen)),
	)

	if s.store != nil {
		if err := s.store.Set(ctx, key, answer); err != nil {
			s.logger.Warn("ideal answer cache store failed", zap.Error(err))
		}
	}

	return ai.IdealAnswer{Text: answer}
}

// IdealAnswer returns the generated answer, or ai.NoIdealAnswer after logging
// the failure.
func (s *Source) IdealAnswer(ctx context.Context, question string) string {
	res := s.Fetch(ctx, question)
	if !res.OK() {
		s.logger.Warn("ideal answer unavailable, using fallback", zap.Error(res.Err))
	}
	return res.TextOrSentinel()
}

// BuildPrompt renders the embedded prompt template for question.
func BuildPrompt(question string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Question:\n" + questionPlaceholder + "\n\nAnswer:"
	}
	return strings.ReplaceAll(template, questionPlaceholder, strings.TrimSpace(question))
}

func (s *Source) cacheKey(question string) string {
	provider, model := ai.Describe(s.generator)
	return cache.Key(provider, model, strings.TrimSpace(question))
}

func (s *Source) record(status string, d time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordCollaborator(metrics.OperationGenerate, status, d)
	}
}
