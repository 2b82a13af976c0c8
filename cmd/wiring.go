package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/answer-grader/internal/ai"
	"github.com/spigell/answer-grader/internal/ai/gemini"
	"github.com/spigell/answer-grader/internal/ai/openai"
	"github.com/spigell/answer-grader/internal/audio"
	"github.com/spigell/answer-grader/internal/cache"
	"github.com/spigell/answer-grader/internal/embedding"
	"github.com/spigell/answer-grader/internal/evaluation"
	"github.com/spigell/answer-grader/internal/ideal"
	"github.com/spigell/answer-grader/internal/metrics"
	"github.com/spigell/answer-grader/internal/questions"
	"github.com/spigell/answer-grader/internal/scoring"
	"github.com/spigell/answer-grader/internal/secrets"
	"github.com/spigell/answer-grader/internal/session"
	"github.com/spigell/answer-grader/internal/speech"
)

const (
	providerHashing = "hashing"
	providerOpenAI  = "openai"
	providerGemini  = "gemini"
	providerGoogle  = "google"
	providerNone    = "none"
)

var (
	geminiKeyEnv = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	openaiKeyEnv = []string{"GROQ_API_KEY", "OPENAI_API_KEY"}
)

// components are the long-lived collaborators shared by all commands.
type components struct {
	engine    *evaluation.Engine
	speech    *speech.Service
	questions *questions.Generator
	sessions  *session.Summarizer
	metrics   *metrics.Metrics
	closers   []func() error
}

func (c *components) Close(logger *zap.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.Warn("closing a component", zap.Error(err))
		}
	}
}

// clients lazily creates the provider clients so that an unused provider
// needs no credentials.
type clients struct {
	cfg    *Config
	logger *zap.Logger
	gemini *genai.Models
	openai *openai.Client
}

func (c *clients) geminiModels(ctx context.Context) (*genai.Models, error) {
	if c.gemini != nil {
		return c.gemini, nil
	}
	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: c.cfg.Gemini.APIKey,
		File:  c.cfg.Gemini.APIKeyFile,
		Env:   geminiKeyEnv,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set gemini.api-key-file or GEMINI_API_KEY)", err)
	}
	models, err := gemini.NewModels(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	c.gemini = models
	return models, nil
}

func (c *clients) openaiClient() (*openai.Client, error) {
	if c.openai != nil {
		return c.openai, nil
	}
	cfg := c.cfg.OpenAI
	// Local OpenAI-compatible servers run without a key.
	apiKey, err := secrets.Optional(secrets.Source{
		Name:  "openai api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   openaiKeyEnv,
	})
	if err != nil {
		return nil, err
	}
	c.openai = openai.New(openai.Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     apiKey,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}, c.logger)
	return c.openai, nil
}

func buildComponents(ctx context.Context, cfg *Config, logger *zap.Logger) (*components, error) {
	evalCfg, err := evaluationConfig(cfg.Scoring)
	if err != nil {
		return nil, err
	}

	comps := &components{metrics: metrics.New()}
	cl := &clients{cfg: cfg, logger: logger}

	store := buildCache(ctx, cfg.Cache, logger)
	if store != nil {
		comps.closers = append(comps.closers, store.Close)
	}

	embedder, err := buildEmbedder(ctx, cl, cfg.Embedding, cfg.Gemini, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	if store != nil {
		embedder = embedding.NewCached(embedder, store.Namespace("embedding"), logger)
	}
	logger.Info("embedder ready", zap.String("name", embedder.Name()))

	// The generator is optional: without it ideal answers fall back to the
	// sentinel and question generation answers 503.
	generator, err := buildGenerator(ctx, cl, cfg, logger)
	if err != nil {
		logger.Warn("text generation disabled", zap.Error(err))
		generator = nil
	}

	ideals := buildIdealAnswers(generator, cfg.Generator, store, comps.metrics, logger)
	comps.questions = questions.New(generator, logger,
		questions.WithTimeout(cfg.Generator.Timeout),
		questions.WithVocabulary(evalCfg.Roles),
		questions.WithRecorder(comps.metrics),
	)
	comps.sessions = session.New(generator, logger,
		session.WithTimeout(cfg.Generator.Timeout),
		session.WithRange(evalCfg.Range),
		session.WithRecorder(comps.metrics),
	)

	comps.engine, err = evaluation.NewEngine(evalCfg, embedder, ideals,
		evaluation.WithRecorder(comps.metrics),
		evaluation.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("evaluation engine: %w", err)
	}

	transcriber, closer := buildTranscriber(ctx, cl, cfg.Speech, logger)
	if closer != nil {
		comps.closers = append(comps.closers, closer)
	}
	comps.speech = speech.NewService(audio.NewConverter(cfg.Speech.FFmpeg, logger, audio.WithMaxDuration(cfg.Speech.MaxDuration)), transcriber, comps.metrics, logger)

	return comps, nil
}

func evaluationConfig(sc ScoringConfig) (evaluation.Config, error) {
	cfg := evaluation.DefaultConfig()

	cfg.Range = scoring.Range(sc.Range)
	cfg.Weights = sc.Weights
	cfg.Thresholds = sc.Thresholds
	cfg.Copy = scoring.CopyDetector{
		LexicalThreshold:  sc.CopyLexicalThreshold,
		SemanticThreshold: sc.CopySemanticThreshold,
	}
	if sc.MaxKeywords > 0 {
		cfg.Coverage.MaxKeywords = sc.MaxKeywords
	}
	if len(sc.Fillers) > 0 {
		cfg.Density = scoring.DensityScorer{Fillers: scoring.NewFillerSet(sc.Fillers)}
	}

	if path := strings.TrimSpace(sc.RolesFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading roles file %q: %w", path, err)
		}
		roles, err := evaluation.ParseRoleKeywords(data)
		if err != nil {
			return cfg, err
		}
		cfg.Roles = cfg.Roles.Merge(roles)
	}
	cfg.Roles = cfg.Roles.Merge(sc.Roles)

	return cfg, cfg.Validate()
}

func buildCache(ctx context.Context, cfg CacheConfig, logger *zap.Logger) *cache.Store {
	if !cfg.Enabled {
		return nil
	}
	store, err := cache.New(ctx, cfg.Config, logger)
	if err != nil {
		logger.Warn("continuing without cache", zap.Error(err))
		return nil
	}
	return store
}

func buildEmbedder(ctx context.Context, cl *clients, cfg EmbeddingConfig, gcfg GeminiConfig, logger *zap.Logger) (embedding.Embedder, error) {
	switch provider(cfg.Provider, providerHashing) {
	case providerHashing:
		return embedding.NewHashing(cfg.Dimension, scoring.DefaultStopwords()), nil
	case providerOpenAI:
		client, err := cl.openaiClient()
		if err != nil {
			return nil, err
		}
		return openai.NewEmbedder(client, cfg.Model), nil
	case providerGemini:
		models, err := cl.geminiModels(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewEmbedder(models, cfg.Model, gcfg.MaxRetries, logger), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

func buildGenerator(ctx context.Context, cl *clients, cfg *Config, logger *zap.Logger) (ai.TextGenerator, error) {
	switch provider(cfg.Generator.Provider, providerOpenAI) {
	case providerNone:
		return nil, nil
	case providerOpenAI:
		client, err := cl.openaiClient()
		if err != nil {
			return nil, err
		}
		return openai.NewGenerator(client, cfg.Generator.Model), nil
	case providerGemini:
		models, err := cl.geminiModels(ctx)
		if err != nil {
			return nil, err
		}
		return gemini.NewGenerator(models, cfg.Generator.Model, cfg.Gemini.MaxRetries, logger), nil
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", cfg.Generator.Provider)
	}
}

// buildIdealAnswers never fails: without a generator every question gets the
// sentinel and only reference answers can be graded meaningfully.
func buildIdealAnswers(generator ai.TextGenerator, cfg GeneratorConfig, store *cache.Store, rec *metrics.Metrics, logger *zap.Logger) evaluation.IdealAnswers {
	if generator == nil {
		return noIdealAnswers{}
	}

	opts := []ideal.Option{ideal.WithTimeout(cfg.Timeout), ideal.WithRecorder(rec)}
	if store != nil {
		opts = append(opts, ideal.WithStore(store.Namespace("ideal")))
	}
	return ideal.New(generator, logger, opts...)
}

type noIdealAnswers struct{}

func (noIdealAnswers) IdealAnswer(context.Context, string) string { return ai.NoIdealAnswer }

func buildTranscriber(ctx context.Context, cl *clients, cfg SpeechConfig, logger *zap.Logger) (speech.Transcriber, func() error) {
	var (
		transcriber speech.Transcriber
		closer      func() error
		err         error
	)

	switch provider(cfg.Provider, providerOpenAI) {
	case providerNone:
		return nil, nil
	case providerOpenAI:
		var client *openai.Client
		client, err = cl.openaiClient()
		if err == nil {
			transcriber = openai.NewTranscriber(client, cfg.Model, cfg.Language)
		}
	case providerGoogle:
		var g *speech.Google
		g, err = speech.NewGoogle(ctx, cfg.Google)
		if err == nil {
			transcriber, closer = g, g.Close
		}
	default:
		err = fmt.Errorf("unsupported speech provider: %s", cfg.Provider)
	}

	if err != nil {
		logger.Warn("transcription disabled", zap.Error(err))
		return nil, nil
	}
	return transcriber, closer
}

func provider(name, fallback string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fallback
	}
	return name
}
