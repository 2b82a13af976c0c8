// Package session summarizes a finished practice interview from its graded
// answers. Nothing is stored: the caller sends the whole session.
package session

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/ai"
	"github.com/spigell/answer-grader/internal/logger"
	"github.com/spigell/answer-grader/internal/metrics"
	"github.com/spigell/answer-grader/internal/scoring"
	"github.com/spigell/answer-grader/internal/text"
)

const (
	// NoSummary replaces the summary whenever generation fails.
	NoSummary = "No session summary generated."

	DefaultTimeout = 60 * time.Second
	MaxItems       = 50

	defaultRole         = "software"
	maxAnswerLength     = 1500
	defaultMaxLogLength = 200

	rolePlaceholder    = "{{ROLE}}"
	rangePlaceholder   = "{{RANGE}}"
	answersPlaceholder = "{{ANSWERS}}"
)

// ErrInvalidRequest wraps every validation failure of a Request.
var ErrInvalidRequest = errors.New("invalid session request")

//go:embed prompt.md
var promptTemplate string

// Item is one graded answer of the session.
type Item struct {
	Question string  `json:"q" yaml:"q"`
	Answer   string  `json:"a" yaml:"a"`
	Score    float64 `json:"score" yaml:"score"`
}

// Request carries a whole session.
type Request struct {
	Role  string `json:"role" yaml:"role"`
	Items []Item `json:"qa" yaml:"qa"`
}

// Summary is the coaching feedback for a session.
type Summary struct {
	Role         string  `json:"role,omitempty" yaml:"role,omitempty"`
	Summary      string  `json:"summary" yaml:"summary"`
	AverageScore float64 `json:"average_score" yaml:"average_score"`
	Answered     int     `json:"answered" yaml:"answered"`
	Total        int     `json:"total" yaml:"total"`
}

// Recorder receives collaborator call outcomes.
type Recorder interface {
	RecordCollaborator(operation, status string, d time.Duration)
}

// Summarizer asks a text generator for session feedback.
type Summarizer struct {
	generator ai.TextGenerator
	scoreMax  scoring.Range
	timeout   time.Duration
	recorder  Recorder
	logger    *zap.Logger
	maxLogLen int
}

// Option customizes a Summarizer.
type Option func(*Summarizer)

// WithTimeout bounds every generator call.
func WithTimeout(d time.Duration) Option {
	return func(s *Summarizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRange declares the scale the item scores are on.
func WithRange(r scoring.Range) Option {
	return func(s *Summarizer) {
		if r > 0 {
			s.scoreMax = r
		}
	}
}

// WithRecorder reports generator calls.
func WithRecorder(r Recorder) Option {
	return func(s *Summarizer) { s.recorder = r }
}

// New creates a Summarizer. With a nil generator every summary is NoSummary.
func New(generator ai.TextGenerator, log *zap.Logger, opts ...Option) *Summarizer {
	if log == nil {
		log = zap.NewNop()
	}
	provider, model := ai.Describe(generator)
	s := &Summarizer{
		generator: generator,
		scoreMax:  scoring.DefaultRange,
		timeout:   DefaultTimeout,
		logger:    logger.WithOperation(logger.WithCommonFields(log, provider, model), metrics.OperationSummarize),
		maxLogLen: defaultMaxLogLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summarize returns the session statistics and a generated summary. Only an
// invalid request is an error; a failed generator yields NoSummary.
func (s *Summarizer) Summarize(ctx context.Context, req Request) (*Summary, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	role := strings.TrimSpace(req.Role)
	out := &Summary{
		Role:         role,
		AverageScore: AverageScore(req.Items),
		Answered:     Answered(req.Items),
		Total:        len(req.Items),
	}

	summary, err := s.generate(ctx, BuildPrompt(role, s.scoreMax, req.Items))
	if err != nil {
		s.logger.Warn("session summary unavailable, using fallback", zap.Error(err))
		summary = NoSummary
	}
	out.Summary = summary

	return out, nil
}

func (s *Summarizer) validate(req Request) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: at least one answered question is required", ErrInvalidRequest)
	}
	if len(req.Items) > MaxItems {
		return fmt.Errorf("%w: at most %d items are accepted, got %d", ErrInvalidRequest, MaxItems, len(req.Items))
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.Question) == "" {
			return fmt.Errorf("%w: item %d has no question", ErrInvalidRequest, i+1)
		}
		if item.Score < 0 || item.Score > s.scoreMax.Max() {
			return fmt.Errorf("%w: item %d score %v is outside 0-%v", ErrInvalidRequest, i+1, item.Score, s.scoreMax.Max())
		}
	}
	return nil
}

func (s *Summarizer) generate(ctx context.Context, prompt string) (string, error) {
	if s.generator == nil {
		return "", errors.New("no text generator configured")
	}

	s.logger.Debug("summarize session request",
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
		return "", fmt.Errorf("summarize session: %w", err)
	}

	summary := text.Normalize(raw)
	if summary == "" {
		s.record(metrics.StatusFailed, elapsed)
		return "", ai.ErrEmptyResponse
	}
	s.record(metrics.StatusOK, elapsed)

	s.logger.Debug("summarize session response",
		zap.Duration("elapsed", elapsed),
		zap.String("response_preview", logger.TruncateForLog(summary, s.maxLogLen)),
	)
	return summary, nil
}

// AverageScore is the mean item score rounded to two decimals, 0 for none.
func AverageScore(items []Item) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, item := range items {
		sum += item.Score
	}
	return scoring.Round2(sum / float64(len(items)))
}

// Answered counts items whose answer has any text left after normalization.
func Answered(items []Item) int {
	n := 0
	for _, item := range items {
		if text.Normalize(item.Answer) != "" {
			n++
		}
	}
	return n
}

// BuildPrompt renders the embedded prompt template for items.
func BuildPrompt(role string, r scoring.Range, items []Item) string {
	if role == "" {
		role = defaultRole
	}

	blocks := make([]string, 0, len(items))
	for i, item := range items {
		answer := logger.TruncateForLog(text.Normalize(item.Answer), maxAnswerLength)
		if answer == "" {
			answer = "(no answer)"
		}
		n := strconv.Itoa(i + 1)
		blocks = append(blocks, fmt.Sprintf("Q%s: %s\nA%s: %s\nScore: %s",
			n, strings.TrimSpace(item.Question), n, answer, strconv.FormatFloat(item.Score, 'f', -1, 64)))
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = answersPlaceholder + "\n\nProvide a concise, motivational summary with next steps."
	}
	prompt := strings.ReplaceAll(template, rolePlaceholder, role)
	prompt = strings.ReplaceAll(prompt, rangePlaceholder, strconv.FormatFloat(r.Max(), 'f', -1, 64))
	return strings.ReplaceAll(prompt, answersPlaceholder, strings.Join(blocks, "\n\n"))
}

func (s *Summarizer) record(status string, d time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordCollaborator(metrics.OperationSummarize, status, d)
	}
}
