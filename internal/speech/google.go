package speech

import (
	"context"
	"fmt"
	"strings"

	speechapi "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/spigell/answer-grader/internal/audio"
)

const (
	defaultLanguage = "en-US"
	// syncLimitSeconds is the longest audio the synchronous Recognize call accepts.
	syncLimitSeconds = 60
)

// GoogleConfig configures the Google Cloud Speech backend.
type GoogleConfig struct {
	CredentialsFile string `mapstructure:"credentials-file"`
	Language        string `mapstructure:"language"`
	Model           string `mapstructure:"model"`
}

// Google transcribes with Google Cloud Speech-to-Text.
type Google struct {
	recognize     func(context.Context, *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
	longRecognize func(context.Context, *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)
	close         func() error
	language      string
	model         string
}

// NewGoogle creates a client. Without a credentials file the library falls
// back to GOOGLE_APPLICATION_CREDENTIALS.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	var opts []option.ClientOption
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	client, err := speechapi.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create google speech client: %w", err)
	}

	g := newGoogle(cfg)
	g.recognize = func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return client.Recognize(ctx, req)
	}
	g.longRecognize = func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := client.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	}
	g.close = client.Close

	return g, nil
}

func newGoogle(cfg GoogleConfig) *Google {
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultLanguage
	}
	return &Google{language: language, model: strings.TrimSpace(cfg.Model)}
}

// Name returns the backend identifier.
func (g *Google) Name() string { return "google" }

// Transcribe recognizes pcm, switching to the long-running API for audio
// longer than a minute.
func (g *Google) Transcribe(ctx context.Context, pcm audio.PCM) (string, error) {
	config := &speechpb.RecognitionConfig{
		Encoding:                   speechpb.RecognitionConfig_LINEAR16,
		SampleRateHertz:            audio.SampleRate,
		AudioChannelCount:          audio.Channels,
		LanguageCode:               g.language,
		Model:                      g.model,
		EnableAutomaticPunctuation: true,
	}
	content := &speechpb.RecognitionAudio{
		AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
	}

	var results []*speechpb.SpeechRecognitionResult
	if pcm.Duration() <= syncLimitSeconds {
		resp, err := g.recognize(ctx, &speechpb.RecognizeRequest{Config: config, Audio: content})
		if err != nil {
			return "", fmt.Errorf("recognize: %w", err)
		}
		results = resp.GetResults()
	} else {
		resp, err := g.longRecognize(ctx, &speechpb.LongRunningRecognizeRequest{Config: config, Audio: content})
		if err != nil {
			return "", fmt.Errorf("long running recognize: %w", err)
		}
		results = resp.GetResults()
	}

	return joinTranscripts(results), nil
}

// Close releases the gRPC connection.
func (g *Google) Close() error {
	if g.close == nil {
		return nil
	}
	return g.close()
}

func joinTranscripts(results []*speechpb.SpeechRecognitionResult) string {
	parts := make([]string, 0, len(results))
	for _, result := range results {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
