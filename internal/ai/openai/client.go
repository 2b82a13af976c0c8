// Package openai talks to OpenAI-compatible HTTP APIs (OpenAI, Groq, Ollama)
// for text generation, embeddings and speech transcription.
package openai

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/utils"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	providerName      = "openai"
	contentType       = "application/json"
	contentEncoding   = "gzip"
	userAgent         = "answer-grader"
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	baseRetryDelay    = 200 * time.Millisecond
	maxRetryDelay     = 5 * time.Second
	// maxRequestedDelay is the longest Retry-After worth blocking a request for.
	maxRequestedDelay = 30 * time.Second
)

var waitFor = utils.WaitFor

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bad status: %s", e.Status)
	}
	return fmt.Sprintf("bad status: %s: %s", e.Status, e.Body)
}

// Temporary reports whether the request may succeed when retried.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Client is a minimal OpenAI-compatible HTTP client shared by the generator,
// embedder and transcriber.
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
}

// New creates a Client. The API key may be empty for local servers.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		maxRetries: retries,
		logger:     logger,
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  userAgent,
	}
}

// postJSON sends body as JSON to path and decodes the response into target.
func (c *Client) postJSON(ctx context.Context, path string, body, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	}, target)
}

// do executes the request built by build, retrying temporary failures, and
// decodes a successful JSON response into target.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error), target any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := build()
		if err != nil {
			return err
		}

		data, retryAfter, err := c.request(c.setHeaders(req))
		if err == nil {
			if target == nil {
				return nil
			}
			if err := json.Unmarshal(data, target); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Temporary() {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == c.maxRetries-1 {
			break
		}

		delay := retryAfter
		if delay > maxRequestedDelay {
			c.logger.Warn("requested retry delay too long, giving up",
				zap.String("url", req.URL.String()),
				zap.Duration("retry_after", delay),
				zap.Error(err),
			)
			return err
		}
		if delay <= 0 {
			delay = min(baseRetryDelay<<attempt, maxRetryDelay)
		}
		c.logger.Warn("request failed, retrying",
			zap.String("url", req.URL.String()),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := waitFor(ctx, delay); err != nil {
			return fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
	}

	return lastErr
}

func (c *Client) request(req *http.Request) ([]byte, time.Duration, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, 0, err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, 0, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), &StatusError{
			Code:   resp.StatusCode,
			Status: resp.Status,
			Body:   strings.TrimSpace(string(data)),
		}
	}

	return data, 0, nil
}

func (c *Client) setHeaders(req *http.Request) *http.Request {
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)

	return req
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
