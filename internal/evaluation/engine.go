// Package evaluation grades a free-text interview answer against an ideal
// answer.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/embedding"
	"github.com/spigell/answer-grader/internal/metrics"
	"github.com/spigell/answer-grader/internal/scoring"
)

// Request is a single answer to grade.
type Request struct {
	Question        string `json:"question" yaml:"question"`
	Answer          string `json:"answer" yaml:"answer"`
	Role            string `json:"role,omitempty" yaml:"role,omitempty"`
	ReferenceAnswer string `json:"reference_answer,omitempty" yaml:"reference_answer,omitempty"`
}

// Scores are the sub-scores and the final score on the configured range.
type Scores struct {
	Semantic float64 `json:"semantic" yaml:"semantic"`
	Coverage float64 `json:"coverage" yaml:"coverage"`
	Density  float64 `json:"density" yaml:"density"`
	Final    float64 `json:"final" yaml:"final"`
}

// Result is the graded answer.
type Result struct {
	Question    string       `json:"question" yaml:"question"`
	UserAnswer  string       `json:"user_answer" yaml:"user_answer"`
	IdealAnswer string       `json:"ideal_answer" yaml:"ideal_answer"`
	Scores      Scores       `json:"scores" yaml:"scores"`
	Tier        scoring.Tier `json:"tier" yaml:"tier"`
	Feedback    string       `json:"feedback" yaml:"feedback"`
}

// IdealAnswers supplies reference answers. Implementations never fail; they
// fall back to a sentinel text instead.
type IdealAnswers interface {
	IdealAnswer(ctx context.Context, question string) string
}

// Recorder receives evaluation and collaborator outcomes.
type Recorder interface {
	RecordEvaluation(tier string, final float64, graded bool)
	RecordCollaborator(operation, status string, d time.Duration)
}

// Config holds the scoring rules.
type Config struct {
	Range      scoring.Range
	Weights    scoring.Weights
	Thresholds scoring.Thresholds
	Copy       scoring.CopyDetector
	Coverage   scoring.CoverageScorer
	Density    scoring.DensityScorer
	Roles      RoleKeywords
}

// DefaultConfig returns the service defaults.
func DefaultConfig() Config {
	roles, err := DefaultRoleKeywords()
	if err != nil {
		// The table is embedded, so this only happens with a broken build.
		panic(err)
	}
	return Config{
		Range:      scoring.DefaultRange,
		Weights:    scoring.DefaultWeights(),
		Thresholds: scoring.DefaultThresholds(),
		Copy:       scoring.NewCopyDetector(),
		Coverage:   scoring.NewCoverageScorer(),
		Density:    scoring.NewDensityScorer(),
		Roles:      roles,
	}
}

// Validate checks the configuration before an engine is built.
func (c Config) Validate() error {
	if c.Range <= 0 {
		return fmt.Errorf("score range must be positive, got %v", c.Range)
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	t := c.Thresholds
	if !(0 <= t.Fair && t.Fair <= t.Good && t.Good <= t.Excellent && t.Excellent <= 1) {
		return fmt.Errorf("tier thresholds must satisfy 0 <= fair <= good <= excellent <= 1, got %+v", t)
	}
	return nil
}

// Engine runs the evaluation stages. It keeps no per-request state and is safe
// for concurrent use.
type Engine struct {
	cfg      Config
	embedder embedding.Embedder
	ideals   IdealAnswers
	recorder Recorder
	logger   *zap.Logger
	stages   []Stage
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine validates cfg and builds an Engine.
func NewEngine(cfg Config, embedder embedding.Embedder, ideals IdealAnswers, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if ideals == nil {
		return nil, errors.New("ideal answer source is required")
	}

	e := &Engine{
		cfg:      cfg,
		embedder: embedder,
		ideals:   ideals,
		logger:   zap.NewNop(),
		stages:   DefaultStages(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate grades req. The only error source is the embedder; every other
// failure degrades into a valid result.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*Result, error) {
	s := &state{req: req}

	for _, stage := range e.stages {
		info, err := stage.Apply(ctx, e, s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", stage.Name(), err)
		}

		e.logger.Info("evaluation step", append([]zap.Field{zap.String("name", stage.Name())}, info.Fields...)...)

		if s.done {
			break
		}
	}

	if s.result == nil {
		return nil, errors.New("evaluation pipeline produced no result")
	}

	graded := s.result.Tier != scoring.TierEmpty && s.result.Tier != scoring.TierCopied
	if e.recorder != nil {
		e.recorder.RecordEvaluation(string(s.result.Tier), s.result.Scores.Final, graded)
	}

	e.logger.Info("answer evaluated",
		zap.String("tier", string(s.result.Tier)),
		zap.Float64("final", s.result.Scores.Final),
		zap.String("role", req.Role),
	)

	return s.result, nil
}

func (e *Engine) embed(ctx context.Context, text string) ([]float64, error) {
	started := time.Now()
	vec, err := e.embedder.Embed(ctx, text)
	if e.recorder != nil {
		status := metrics.StatusOK
		if err != nil {
			status = metrics.StatusFailed
		}
		e.recorder.RecordCollaborator(metrics.OperationEmbed, status, time.Since(started))
	}
	return vec, err
}
