// Package questions drafts interview questions for a role with a text
// generator.
package questions

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
)

const (
	DefaultCount   = 5
	MaxCount       = 20
	DefaultTimeout = 60 * time.Second

	// maxFocusTopics limits how many role and job keywords reach the prompt.
	maxFocusTopics      = 12
	defaultMaxLogLength = 200

	rolePlaceholder  = "{{ROLE}}"
	countPlaceholder = "{{COUNT}}"
	focusPlaceholder = "{{FOCUS}}"
)

var (
	// ErrInvalidRequest wraps every validation failure of a Request.
	ErrInvalidRequest = errors.New("invalid question request")
	// ErrUnavailable is returned when no text generator is configured.
	ErrUnavailable = errors.New("question generation is not configured")
)

//go:embed prompt.md
var promptTemplate string

// Request asks for Count questions for Role. JobDescription, when present,
// steers the prompt and ranks matching questions first.
type Request struct {
	Role           string `json:"role" yaml:"role"`
	Count          int    `json:"count,omitempty" yaml:"count,omitempty"`
	JobDescription string `json:"job_description,omitempty" yaml:"job_description,omitempty"`
}

// Result lists the generated questions.
type Result struct {
	Role      string   `json:"role" yaml:"role"`
	Questions []string `json:"questions" yaml:"questions"`
}

// Vocabulary returns the topics expected from a role.
type Vocabulary interface {
	For(role string) []string
}

// Recorder receives collaborator call outcomes.
type Recorder interface {
	RecordCollaborator(operation, status string, d time.Duration)
}

// Generator asks a text generator for interview questions.
type Generator struct {
	generator  ai.TextGenerator
	vocabulary Vocabulary
	keywords   Keywords
	timeout    time.Duration
	recorder   Recorder
	logger     *zap.Logger
	maxLogLen  int
}

// Option customizes a Generator.
type Option func(*Generator)

// WithTimeout bounds every generator call.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithVocabulary adds role topics to the prompt.
func WithVocabulary(v Vocabulary) Option {
	return func(g *Generator) { g.vocabulary = v }
}

// WithRecorder reports generator calls.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) { g.recorder = r }
}

// New creates a Generator. A nil generator makes every call fail with
// ErrUnavailable.
func New(generator ai.TextGenerator, log *zap.Logger, opts ...Option) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	provider, model := ai.Describe(generator)
	g := &Generator{
		generator: generator,
		keywords:  NewKeywords(),
		timeout:   DefaultTimeout,
		logger:    logger.WithOperation(logger.WithCommonFields(log, provider, model), metrics.OperationQuestions),
		maxLogLen: defaultMaxLogLength,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns up to req.Count questions for req.Role.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	req, err := validate(req)
	if err != nil {
		return nil, err
	}
	if g.generator == nil {
		return nil, ErrUnavailable
	}

	jobKeywords := g.keywords.Extract(req.JobDescription)
	prompt := BuildPrompt(req.Role, req.Count, g.focus(req.Role, jobKeywords))
	g.logger.Debug("generate questions request",
		zap.String("role", req.Role),
		zap.Int("count", req.Count),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, g.maxLogLen)),
	)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	raw, err := g.generator.GenerateContent(callCtx, prompt)
	elapsed := time.Since(started)
	if err != nil {
		g.record(metrics.StatusFailed, elapsed)
		return nil, fmt.Errorf("generate questions: %w", err)
	}

	questions := Parse(raw, req.Count)
	if len(questions) == 0 {
		g.record(metrics.StatusFailed, elapsed)
		return nil, fmt.Errorf("generate questions: %w", ai.ErrEmptyResponse)
	}
	g.record(metrics.StatusOK, elapsed)

	questions = RankByKeywords(questions, jobKeywords)
	g.logger.Debug("generate questions response",
		zap.Duration("elapsed", elapsed),
		zap.Int("questions", len(questions)),
	)

	return &Result{Role: req.Role, Questions: questions}, nil
}

func validate(req Request) (Request, error) {
	req.Role = strings.TrimSpace(req.Role)
	req.JobDescription = strings.TrimSpace(req.JobDescription)

	if req.Role == "" {
		return req, fmt.Errorf("%w: role is required", ErrInvalidRequest)
	}
	switch {
	case req.Count == 0:
		req.Count = DefaultCount
	case req.Count < 0 || req.Count > MaxCount:
		return req, fmt.Errorf("%w: count must be between 1 and %d, got %d", ErrInvalidRequest, MaxCount, req.Count)
	}
	return req, nil
}

// focus merges role topics and job keywords without duplicates.
func (g *Generator) focus(role string, jobKeywords []string) []string {
	var topics []string
	if g.vocabulary != nil {
		topics = append(topics, g.vocabulary.For(role)...)
	}
	topics = append(topics, jobKeywords...)

	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
		if len(out) == maxFocusTopics {
			break
		}
	}
	return out
}

// BuildPrompt renders the embedded prompt template.
func BuildPrompt(role string, count int, focus []string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Generate " + countPlaceholder + " interview questions for a " + rolePlaceholder + " developer.\n" + focusPlaceholder + "\n"
	}

	focusLine := ""
	if len(focus) > 0 {
		focusLine = "Cover topics such as: " + strings.Join(focus, ", ") + "."
	}

	prompt := strings.ReplaceAll(template, rolePlaceholder, role)
	prompt = strings.ReplaceAll(prompt, countPlaceholder, strconv.Itoa(count))
	if focusLine == "" {
		prompt = strings.ReplaceAll(prompt, focusPlaceholder+"\n", "")
	}
	return strings.ReplaceAll(prompt, focusPlaceholder, focusLine)
}

func (g *Generator) record(status string, d time.Duration) {
	if g.recorder != nil {
		g.recorder.RecordCollaborator(metrics.OperationQuestions, status, d)
	}
}
