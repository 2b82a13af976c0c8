// Package audio converts uploaded recordings into the raw PCM format every
// transcriber accepts: mono, 16 kHz, signed 16-bit little-endian samples.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	SampleRate     = 16000
	Channels       = 1
	BytesPerSample = 2

	// DefaultMaxDuration bounds decoded audio to about 29 MB of PCM.
	DefaultMaxDuration = 15 * time.Minute

	defaultFFmpeg = "ffmpeg"
)

var (
	// ErrNoAudio is returned when conversion produced no samples.
	ErrNoAudio = errors.New("no audio samples decoded")
	// ErrTooLong is returned when the decoded audio exceeds the maximum duration.
	ErrTooLong = errors.New("audio is longer than allowed")
)

// PCM is mono 16 kHz signed 16-bit little-endian audio.
type PCM []byte

// Duration returns the playback length in seconds.
func (p PCM) Duration() float64 {
	return float64(len(p)) / float64(SampleRate*Channels*BytesPerSample)
}

// Converter shells out to ffmpeg.
type Converter struct {
	binary      string
	maxDuration time.Duration
	logger      *zap.Logger
}

// Option customizes a Converter.
type Option func(*Converter)

// WithMaxDuration rejects recordings longer than d.
func WithMaxDuration(d time.Duration) Option {
	return func(c *Converter) {
		if d > 0 {
			c.maxDuration = d
		}
	}
}

// NewConverter returns a Converter using binary, or "ffmpeg" from PATH when
// empty.
func NewConverter(binary string, logger *zap.Logger, opts ...Option) *Converter {
	if strings.TrimSpace(binary) == "" {
		binary = defaultFFmpeg
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Converter{binary: binary, maxDuration: DefaultMaxDuration, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convert decodes any container ffmpeg understands into PCM. The input is
// spooled to a temporary file because several containers need seeking.
func (c *Converter) Convert(ctx context.Context, input []byte) (PCM, error) {
	if len(input) == 0 {
		return nil, errors.New("empty audio input")
	}

	tmp, err := os.CreateTemp("", "answer-grader-*.audio")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(input); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	// ffmpeg stops one second past the limit so that an over-long input
	// overflows stdout instead of being silently cut.
	stdout := &limitedBuffer{limit: maxPCMBytes(c.maxDuration)}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary,
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-i", tmp.Name(),
		"-t", strconv.FormatFloat((c.maxDuration + time.Second).Seconds(), 'f', -1, 64),
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	)
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	c.logger.Debug("converting audio", zap.Int("input_bytes", len(input)), zap.String("ffmpeg", c.binary))

	err = cmd.Run()
	if stdout.exceeded {
		return nil, fmt.Errorf("%w: limit is %s", ErrTooLong, c.maxDuration)
	}
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	pcm := PCM(stdout.buf.Bytes())
	if len(pcm) == 0 {
		return nil, ErrNoAudio
	}

	c.logger.Debug("audio converted", zap.Int("pcm_bytes", len(pcm)), zap.Float64("duration_seconds", pcm.Duration()))
	return pcm, nil
}

func maxPCMBytes(d time.Duration) int {
	samples := int(d.Seconds() * SampleRate)
	return samples * Channels * BytesPerSample
}

// limitedBuffer fails writes that would grow it past limit bytes.
type limitedBuffer struct {
	buf      bytes.Buffer
	limit    int
	exceeded bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.buf.Len()+len(p) > b.limit {
		b.exceeded = true
		return 0, ErrTooLong
	}
	return b.buf.Write(p)
}
