package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/answer-grader/internal/ai"
	"github.com/spigell/answer-grader/internal/audio"
	"github.com/spigell/answer-grader/internal/ideal"
)

func stubWait(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	original := waitFor
	waitFor = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	t.Cleanup(func() { waitFor = original })
	return &waits
}

func TestGeneratorCollectsOutputText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body responsesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultResponsesModel, body.Model)
		assert.Equal(t, "What is a mutex?", body.Input)

		_, _ = io.WriteString(w, `{
			"output": [
				{"type": "reasoning", "summary": [], "content": [{"type": "reasoning_text", "text": "thinking"}]},
				{"type": "message", "content": [
					{"type": "output_text", "text": " A mutex serializes access. ", "annotations": []},
					{"type": "output_text", "text": "Only one holder at a time."}
				]}
			]
		}`)
	}))
	defer srv.Close()

	g := NewGenerator(New(Config{BaseURL: srv.URL + "/", APIKey: " secret "}, nil), "")
	assert.Equal(t, DefaultResponsesModel, g.Model())

	got, err := g.GenerateContent(context.Background(), "What is a mutex?")
	require.NoError(t, err)
	assert.Equal(t, "A mutex serializes access. Only one holder at a time.", got)
}

func TestGeneratorEmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"output": []}`)
	}))
	defer srv.Close()

	g := NewGenerator(New(Config{BaseURL: srv.URL}, nil), "m")
	_, err := g.GenerateContent(context.Background(), "q")
	assert.True(t, errors.Is(err, ai.ErrEmptyResponse))

	_, err = g.GenerateContent(context.Background(), "  ")
	assert.Error(t, err)
}

func TestOutputTextFallback(t *testing.T) {
	got, err := outputText(map[string]any{"output_text": " direct "})
	require.NoError(t, err)
	assert.Equal(t, "direct", got)

	_, err = outputText(map[string]any{"output": "not a list"})
	assert.Error(t, err)
}

func TestClientRetriesTemporaryStatus(t *testing.T) {
	waits := stubWait(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"data": [{"embedding": [0.1, 0.2]}]}`)
	}))
	defer srv.Close()

	e := NewEmbedder(New(Config{BaseURL: srv.URL}, nil), "")
	vec, err := e.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, vec)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{2 * time.Second}, *waits)
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	stubWait(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewEmbedder(New(Config{BaseURL: srv.URL}, nil), "m").Embed(context.Background(), "text")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Contains(t, statusErr.Error(), "bad key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	waits := stubWait(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewEmbedder(New(Config{BaseURL: srv.URL, MaxRetries: 2}, nil), "m").Embed(context.Background(), "text")
	assert.Error(t, err)
	assert.Equal(t, []time.Duration{baseRetryDelay}, *waits)
}

func TestClientDoesNotWaitForLongRetryAfter(t *testing.T) {
	waits := stubWait(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Retry-After", "3600")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewEmbedder(New(Config{BaseURL: srv.URL}, nil), "m").Embed(context.Background(), "text")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, *waits)
}

func TestIdealAnswerTimeoutBoundsRetryWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	source := ideal.New(NewGenerator(New(Config{BaseURL: srv.URL}, nil), ""), nil, ideal.WithTimeout(200*time.Millisecond))

	started := time.Now()
	answer := source.IdealAnswer(context.Background(), "What is a goroutine?")
	elapsed := time.Since(started)

	assert.Equal(t, ai.NoIdealAnswer, answer)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestEmbedderOllamaShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"embedding": [1, 2, 3]}`)
	}))
	defer srv.Close()

	e := NewEmbedder(New(Config{BaseURL: srv.URL}, nil), "nomic-embed-text")
	assert.Equal(t, "openai:nomic-embed-text", e.Name())

	vec, err := e.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, vec)
}

func TestTranscriberUploadsWAV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, DefaultTranscriptionModel, r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "audio.wav", header.Filename)

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "RIFF"))

		_, _ = io.WriteString(w, `{"text": " um hello world "}`)
	}))
	defer srv.Close()

	tr := NewTranscriber(New(Config{BaseURL: srv.URL}, nil), "", "en")
	got, err := tr.Transcribe(context.Background(), audio.PCM(make([]byte, 64)))
	require.NoError(t, err)
	assert.Equal(t, "um hello world", got)
}
