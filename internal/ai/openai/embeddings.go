package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/answer-grader/internal/embedding"
)

const DefaultEmbeddingModel = "text-embedding-3-small"

type embeddingsRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	// Ollama native shape.
	Embedding []float64 `json:"embedding"`
}

// Embedder computes embeddings through the /embeddings endpoint.
type Embedder struct {
	client *Client
	model  string
}

var _ embedding.Embedder = (*Embedder)(nil)

// NewEmbedder creates an Embedder for model, or the default model when empty.
func NewEmbedder(client *Client, model string) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{client: client, model: model}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return providerName + ":" + e.model }

// Embed returns an embedding vector for the given text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	var out embeddingsResponse
	if err := e.client.postJSON(ctx, "/embeddings", embeddingsRequest{Model: e.model, Input: text}, &out); err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}

	if len(out.Data) > 0 && len(out.Data[0].Embedding) > 0 {
		return out.Data[0].Embedding, nil
	}
	if len(out.Embedding) > 0 {
		return out.Embedding, nil
	}

	return nil, errors.New("no embedding returned")
}
