package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/answer-grader/internal/embedding"
	"github.com/spigell/answer-grader/internal/logger"
)

const (
	defaultEmbeddingModel = "text-embedding-004"
	semanticTaskType      = "SEMANTIC_SIMILARITY"
)

// Embedder computes text embeddings with Gemini.
type Embedder struct {
	models     models
	model      string
	maxRetries int
	logger     *zap.Logger
}

var _ embedding.Embedder = (*Embedder)(nil)

// NewEmbedder creates an Embedder with the given model or the default one.
func NewEmbedder(m models, model string, maxRetries int, log *zap.Logger) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultEmbeddingModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Embedder{
		models:     m,
		model:      model,
		maxRetries: maxRetries,
		logger:     logger.WithCommonFields(log, providerName, model),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return providerName + ":" + e.model }

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if e == nil || e.models == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}

	cfg := &genai.EmbedContentConfig{TaskType: semanticTaskType}

	var resp *genai.EmbedContentResponse
	err := withRetry(ctx, e.logger, e.maxRetries, func() error {
		var err error
		resp, err = e.models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini api returned no embedding")
	}

	return embedding.FromFloat32(resp.Embeddings[0].Values), nil
}
