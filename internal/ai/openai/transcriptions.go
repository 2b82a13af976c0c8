package openai

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/spigell/answer-grader/internal/audio"
)

const DefaultTranscriptionModel = "whisper-large-v3-turbo"

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcriber sends audio to the /audio/transcriptions endpoint.
type Transcriber struct {
	client   *Client
	model    string
	language string
}

// NewTranscriber creates a Transcriber. language is an optional ISO-639-1 hint.
func NewTranscriber(client *Client, model, language string) *Transcriber {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultTranscriptionModel
	}
	return &Transcriber{client: client, model: model, language: strings.TrimSpace(language)}
}

// Name returns the backend identifier.
func (t *Transcriber) Name() string { return providerName + ":" + t.model }

// Transcribe uploads pcm as a WAV file and returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, pcm audio.PCM) (string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fields := map[string]string{"model": t.model, "response_format": "json"}
	if t.language != "" {
		fields["language"] = t.language
	}
	for key, val := range fields {
		if err := w.WriteField(key, val); err != nil {
			return "", err
		}
	}

	file, err := w.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := file.Write(pcm.WAV()); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	payload := b.Bytes()
	var out transcriptionResponse
	err = t.client.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.client.baseURL+"/audio/transcriptions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}, &out)
	if err != nil {
		return "", fmt.Errorf("create transcription: %w", err)
	}

	return strings.TrimSpace(out.Text), nil
}
