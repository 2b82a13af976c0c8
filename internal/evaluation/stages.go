package evaluation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/embedding"
	"github.com/spigell/answer-grader/internal/scoring"
	"github.com/spigell/answer-grader/internal/text"
)

// Stage is a single step of the evaluation pipeline.
type Stage interface {
	Name() string
	Apply(ctx context.Context, e *Engine, s *state) (Step, error)
}

// Step summarizes a stage for the log.
type Step struct {
	Fields []zap.Field
}

// state carries one evaluation through the stages. Once done is set the
// remaining stages are skipped and result is final.
type state struct {
	req Request

	question string
	answer   string
	ideal    string

	answerVec []float64

	scores scoring.SubScores
	result *Result
	done   bool
}

func (s *state) finish(tier scoring.Tier) {
	s.done = true
	s.result = &Result{
		Question:   s.question,
		UserAnswer: s.answer,
		Tier:       tier,
		Feedback:   tier.Message(),
	}
}

// DefaultStages returns the pipeline in execution order.
func DefaultStages() []Stage {
	return []Stage{
		normalizeStage{},
		emptyStage{},
		lexicalCopyStage{},
		semanticCopyStage{},
		idealStage{},
		subScoresStage{},
		combineStage{},
	}
}

type normalizeStage struct{}

func (normalizeStage) Name() string { return "normalize" }

func (normalizeStage) Apply(_ context.Context, _ *Engine, s *state) (Step, error) {
	s.question = text.Normalize(s.req.Question)
	s.answer = text.Normalize(s.req.Answer)
	return Step{Fields: []zap.Field{
		zap.Int("question_length", len(s.question)),
		zap.Int("answer_length", len(s.answer)),
	}}, nil
}

type emptyStage struct{}

func (emptyStage) Name() string { return "empty_check" }

func (emptyStage) Apply(_ context.Context, _ *Engine, s *state) (Step, error) {
	if s.answer == "" {
		s.finish(scoring.TierEmpty)
	}
	return Step{Fields: []zap.Field{zap.Bool("empty", s.done)}}, nil
}

type lexicalCopyStage struct{}

func (lexicalCopyStage) Name() string { return "lexical_copy_check" }

func (lexicalCopyStage) Apply(_ context.Context, e *Engine, s *state) (Step, error) {
	overlap := scoring.LexicalOverlap(s.question, s.answer)
	if e.cfg.Copy.Lexical(s.question, s.answer) {
		s.finish(scoring.TierCopied)
	}
	return Step{Fields: []zap.Field{
		zap.Float64("overlap", overlap),
		zap.Bool("copied", s.done),
	}}, nil
}

type semanticCopyStage struct{}

func (semanticCopyStage) Name() string { return "semantic_copy_check" }

func (semanticCopyStage) Apply(ctx context.Context, e *Engine, s *state) (Step, error) {
	questionVec, err := e.embed(ctx, s.question)
	if err != nil {
		return Step{}, fmt.Errorf("embed question: %w", err)
	}
	s.answerVec, err = e.embed(ctx, s.answer)
	if err != nil {
		return Step{}, fmt.Errorf("embed answer: %w", err)
	}

	similarity := embedding.Cosine(questionVec, s.answerVec)
	if e.cfg.Copy.Semantic(similarity) {
		s.finish(scoring.TierCopied)
	}
	return Step{Fields: []zap.Field{
		zap.Float64("similarity", similarity),
		zap.Bool("copied", s.done),
	}}, nil
}

type idealStage struct{}

func (idealStage) Name() string { return "ideal_answer" }

func (idealStage) Apply(ctx context.Context, e *Engine, s *state) (Step, error) {
	source := "generator"
	if ref := text.Normalize(s.req.ReferenceAnswer); ref != "" {
		s.ideal = ref
		source = "reference"
	} else {
		s.ideal = e.ideals.IdealAnswer(ctx, s.question)
	}
	return Step{Fields: []zap.Field{
		zap.String("source", source),
		zap.Int("ideal_length", len(s.ideal)),
	}}, nil
}

type subScoresStage struct{}

func (subScoresStage) Name() string { return "sub_scores" }

func (subScoresStage) Apply(ctx context.Context, e *Engine, s *state) (Step, error) {
	idealVec, err := e.embed(ctx, s.ideal)
	if err != nil {
		return Step{}, fmt.Errorf("embed ideal answer: %w", err)
	}

	roleKeywords := e.cfg.Roles.For(s.req.Role)
	s.scores = scoring.SubScores{
		Semantic: scoring.Semantic(embedding.Cosine(s.answerVec, idealVec), e.cfg.Range),
		Coverage: e.cfg.Coverage.Score(s.answer, s.ideal, e.cfg.Range, roleKeywords...),
		Density:  e.cfg.Density.Score(s.answer, e.cfg.Range),
	}

	return Step{Fields: []zap.Field{
		zap.Float64("semantic", s.scores.Semantic),
		zap.Float64("coverage", s.scores.Coverage),
		zap.Float64("density", s.scores.Density),
		zap.Int("role_keywords", len(roleKeywords)),
	}}, nil
}

type combineStage struct{}

func (combineStage) Name() string { return "combine" }

func (combineStage) Apply(_ context.Context, e *Engine, s *state) (Step, error) {
	final := e.cfg.Weights.Combine(s.scores, e.cfg.Range)
	tier := e.cfg.Thresholds.Classify(final, e.cfg.Range)

	s.done = true
	s.result = &Result{
		Question:    s.question,
		UserAnswer:  s.answer,
		IdealAnswer: s.ideal,
		Scores: Scores{
			Semantic: s.scores.Semantic,
			Coverage: s.scores.Coverage,
			Density:  s.scores.Density,
			Final:    final,
		},
		Tier:     tier,
		Feedback: tier.Message(),
	}

	return Step{Fields: []zap.Field{
		zap.Float64("final", final),
		zap.String("tier", string(tier)),
	}}, nil
}
