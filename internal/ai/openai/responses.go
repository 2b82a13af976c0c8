package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/ai"
	"github.com/spigell/answer-grader/internal/logger"
)

const (
	DefaultResponsesModel = "openai/gpt-oss-20b"

	outputTextType = "output_text"
)

type responsesRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type outputItem struct {
	Type    string        `json:"type"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Generator produces text through the /responses endpoint.
type Generator struct {
	client *Client
	model  string
	logger *zap.Logger
}

var _ ai.TextGenerator = (*Generator)(nil)

// NewGenerator creates a Generator for model, or the default model when empty.
func NewGenerator(client *Client, model string) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultResponsesModel
	}
	return &Generator{
		client: client,
		model:  model,
		logger: logger.WithCommonFields(client.logger, providerName, model),
	}
}

// Provider returns the backend name.
func (g *Generator) Provider() string { return providerName }

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

// GenerateContent sends prompt as the response input and joins every
// output_text part of the reply.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	var raw map[string]any
	if err := g.client.postJSON(ctx, "/responses", responsesRequest{Model: g.model, Input: prompt}, &raw); err != nil {
		return "", fmt.Errorf("create response: %w", err)
	}

	text, err := outputText(raw)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%s: %w", g.model, ai.ErrEmptyResponse)
	}

	g.logger.Debug("response received", zap.Int("response_length", len(text)))
	return text, nil
}

// outputText decodes the loosely typed output array. Providers add item types
// (reasoning, tool calls) with unrelated fields, so decoding is lenient.
func outputText(raw map[string]any) (string, error) {
	var items []outputItem
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &items,
	})
	if err != nil {
		return "", err
	}
	if err := decoder.Decode(raw["output"]); err != nil {
		return "", fmt.Errorf("decode response output: %w", err)
	}

	texts := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range item.Content {
			if part.Type != outputTextType {
				continue
			}
			if t := strings.TrimSpace(part.Text); t != "" {
				texts = append(texts, t)
			}
		}
	}

	if len(texts) == 0 {
		if s, ok := raw["output_text"].(string); ok {
			return strings.TrimSpace(s), nil
		}
	}

	return strings.Join(texts, " "), nil
}
