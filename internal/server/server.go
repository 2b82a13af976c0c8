// Package server exposes evaluation and transcription over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/evaluation"
	"github.com/spigell/answer-grader/internal/metrics"
	"github.com/spigell/answer-grader/internal/questions"
	"github.com/spigell/answer-grader/internal/session"
	"github.com/spigell/answer-grader/internal/speech"
)

const (
	defaultAddr            = ":8000"
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 2 * time.Minute
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second
	defaultMaxUploadBytes  = 25 << 20
	defaultMaxBodyBytes    = 1 << 20
)

// Config controls the HTTP listener.
type Config struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	CORSOrigins     []string      `mapstructure:"cors-origins"`
	MaxUploadBytes  int64         `mapstructure:"max-upload-bytes"`
	MaxBodyBytes    int64         `mapstructure:"max-body-bytes"`
}

// DefaultConfig listens on :8000 and allows the local web front-end.
func DefaultConfig() Config {
	return Config{
		Addr:            defaultAddr,
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		IdleTimeout:     defaultIdleTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
		CORSOrigins:     []string{"http://localhost:5173"},
		MaxUploadBytes:  defaultMaxUploadBytes,
		MaxBodyBytes:    defaultMaxBodyBytes,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.CORSOrigins == nil {
		c.CORSOrigins = d.CORSOrigins
	}
	return c
}

// Evaluator grades one answer.
type Evaluator interface {
	Evaluate(ctx context.Context, req evaluation.Request) (*evaluation.Result, error)
}

// Transcriber turns an uploaded recording into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, input []byte, reference string) (*speech.Result, error)
}

// QuestionGenerator drafts interview questions for a role.
type QuestionGenerator interface {
	Generate(ctx context.Context, req questions.Request) (*questions.Result, error)
}

// SessionSummarizer writes feedback for a finished practice session.
type SessionSummarizer interface {
	Summarize(ctx context.Context, req session.Request) (*session.Summary, error)
}

// Option enables optional endpoints.
type Option func(*Server)

// WithQuestions serves POST /questions.
func WithQuestions(q QuestionGenerator) Option {
	return func(s *Server) { s.questions = q }
}

// WithSessions serves POST /session/feedback.
func WithSessions(summarizer SessionSummarizer) Option {
	return func(s *Server) { s.sessions = summarizer }
}

// Server is the gin HTTP front-end.
type Server struct {
	cfg         Config
	evaluator   Evaluator
	transcriber Transcriber
	questions   QuestionGenerator
	sessions    SessionSummarizer
	metrics     *metrics.Metrics
	logger      *zap.Logger
	router      *gin.Engine
	srv         *http.Server
}

// New builds the router. m may be nil, which disables request metrics and
// serves the default registry on /metrics. Endpoints whose collaborator is not
// set through an Option answer 503.
func New(cfg Config, evaluator Evaluator, transcriber Transcriber, m *metrics.Metrics, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()

	s := &Server{
		cfg:         cfg,
		evaluator:   evaluator,
		transcriber: transcriber,
		metrics:     m,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), s.accessLog(), s.instrument(), s.cors())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	router.POST("/metrics/evaluate", s.evaluate)
	router.POST("/transcribe", s.transcribe)
	router.POST("/questions", s.generateQuestions)
	router.POST("/session/feedback", s.sessionFeedback)

	return router
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests within the shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}
