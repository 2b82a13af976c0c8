package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/answer-grader/internal/ai"
)

type fakeResult struct {
	generate *genai.GenerateContentResponse
	embed    *genai.EmbedContentResponse
	err      error
}

type fakeModels struct {
	mu      sync.Mutex
	queue   []fakeResult
	models  []string
	prompts []string
	configs []*genai.EmbedContentConfig
}

func (f *fakeModels) enqueue(r fakeResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, r)
}

func (f *fakeModels) next(model string, contents []*genai.Content) (fakeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return fakeResult{}, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	f.models = append(f.models, model)
	for _, c := range contents {
		for _, p := range c.Parts {
			f.prompts = append(f.prompts, p.Text)
		}
	}
	return res, nil
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	res, err := f.next(model, contents)
	if err != nil {
		return nil, err
	}
	return res.generate, res.err
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	res, err := f.next(model, contents)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.configs = append(f.configs, cfg)
	f.mu.Unlock()
	return res.embed, res.err
}

func (f *fakeModels) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.models)
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func stubWait(t *testing.T) {
	t.Helper()
	original := waitFor
	waitFor = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	t.Cleanup(func() { waitFor = original })
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	stubWait(t)

	fake := &fakeModels{}
	fake.enqueue(fakeResult{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}})
	fake.enqueue(fakeResult{generate: textResponse(" retry ", "ok")})

	g := NewGenerator(fake, "gemini-pro", 2, zap.NewNop())

	output, err := g.GenerateContent(context.Background(), "  question  ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry\nok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if fake.calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", fake.calls())
	}
	for _, p := range fake.prompts {
		if p != "question" {
			t.Fatalf("expected trimmed prompt, got %q", p)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	stubWait(t)

	fake := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	fake.enqueue(fakeResult{err: tempErr})
	fake.enqueue(fakeResult{err: tempErr})

	g := NewGenerator(fake, "gemini-pro", 2, zap.NewNop())

	_, err := g.GenerateContent(context.Background(), "msg")
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected wrapped API error, got %v", err)
	}
	if fake.calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", fake.calls())
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	fake := &fakeModels{}
	fake.enqueue(fakeResult{err: genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}})

	g := NewGenerator(fake, "gemini-pro", 3, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "msg"); err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if fake.calls() != 1 {
		t.Fatalf("expected single call, got %d", fake.calls())
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	fake := &fakeModels{}
	fake.enqueue(fakeResult{err: genai.APIError{Code: http.StatusBadRequest}})

	g := NewGenerator(fake, "", 3, nil)
	if g.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", g.Model())
	}

	if _, err := g.GenerateContent(context.Background(), "msg"); err == nil {
		t.Fatal("expected error")
	}
	if fake.calls() != 1 {
		t.Fatalf("expected single call, got %d", fake.calls())
	}
}

func TestGeneratorEmptyResponse(t *testing.T) {
	fake := &fakeModels{}
	fake.enqueue(fakeResult{generate: textResponse("   ")})

	g := NewGenerator(fake, "m", 1, nil)

	if _, err := g.GenerateContent(context.Background(), "msg"); !errors.Is(err, ai.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
	if _, err := g.GenerateContent(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestRetryDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		want  time.Duration
		retry bool
	}{
		{name: "plain error", err: errors.New("boom"), retry: false},
		{name: "server error backoff", err: genai.APIError{Code: 500}, want: baseRetryDelay, retry: true},
		{name: "short quota delay", err: genai.APIError{Code: 429, Message: "Please retry in 2.5s"}, want: 2500 * time.Millisecond, retry: true},
		{name: "quota without hint", err: genai.APIError{Code: 429}, want: baseRetryDelay, retry: true},
		{name: "not found", err: genai.APIError{Code: 404}, retry: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, retry := retryDelay(tt.err, 0)
			if retry != tt.retry || got != tt.want {
				t.Fatalf("retryDelay = (%v, %v), want (%v, %v)", got, retry, tt.want, tt.retry)
			}
		})
	}
}

func TestEmbedder(t *testing.T) {
	fake := &fakeModels{}
	fake.enqueue(fakeResult{embed: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.5, -1}}},
	}})
	fake.enqueue(fakeResult{embed: &genai.EmbedContentResponse{}})

	e := NewEmbedder(fake, "", 1, nil)
	if e.Name() != "gemini:"+defaultEmbeddingModel {
		t.Fatalf("unexpected name %q", e.Name())
	}

	vec, err := e.Embed(context.Background(), "goroutines")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 || vec[1] != -1 {
		t.Fatalf("unexpected vector %v", vec)
	}
	if fake.configs[0].TaskType != semanticTaskType {
		t.Fatalf("expected task type %q", semanticTaskType)
	}

	if _, err := e.Embed(context.Background(), "goroutines"); err == nil {
		t.Fatal("expected error on empty embedding response")
	}
}
