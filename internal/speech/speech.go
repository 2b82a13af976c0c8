// Package speech turns recorded answers into transcripts with delivery
// metrics.
package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/audio"
	"github.com/spigell/answer-grader/internal/delivery"
	"github.com/spigell/answer-grader/internal/logger"
	"github.com/spigell/answer-grader/internal/metrics"
)

// ErrNoTranscriber is returned when the service was built without a backend.
var ErrNoTranscriber = errors.New("no transcriber configured")

// Transcriber recognizes speech in mono 16 kHz PCM.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, pcm audio.PCM) (string, error)
}

// Converter decodes arbitrary audio containers into PCM.
type Converter interface {
	Convert(ctx context.Context, input []byte) (audio.PCM, error)
}

// Recorder receives collaborator and transcription outcomes.
type Recorder interface {
	RecordCollaborator(operation, status string, d time.Duration)
	RecordTranscription(status string)
}

// Result is a transcript and how it was delivered.
type Result struct {
	Transcript string           `json:"transcript" yaml:"transcript"`
	Metrics    delivery.Metrics `json:"metrics" yaml:"metrics"`
}

// Service runs conversion, recognition and metric computation.
type Service struct {
	converter   Converter
	transcriber Transcriber
	calculator  delivery.Calculator
	recorder    Recorder
	logger      *zap.Logger
}

// NewService wires a Service. recorder may be nil.
func NewService(converter Converter, transcriber Transcriber, recorder Recorder, log *zap.Logger) *Service {
	return &Service{
		converter:   converter,
		transcriber: transcriber,
		calculator:  delivery.NewCalculator(),
		recorder:    recorder,
		logger:      logger.WithOperation(log, metrics.OperationTranscribe),
	}
}

// Transcribe converts input, recognizes it and computes delivery metrics. A
// non-empty reference script adds the word error rate.
func (s *Service) Transcribe(ctx context.Context, input []byte, reference string) (*Result, error) {
	res, err := s.transcribe(ctx, input, reference)
	if err != nil {
		s.recordTranscription(metrics.StatusFailed)
		s.logger.Warn("transcription failed", zap.Error(err))
		return nil, err
	}
	s.recordTranscription(metrics.StatusOK)
	return res, nil
}

func (s *Service) transcribe(ctx context.Context, input []byte, reference string) (*Result, error) {
	if s.transcriber == nil {
		return nil, ErrNoTranscriber
	}

	started := time.Now()
	pcm, err := s.converter.Convert(ctx, input)
	s.recordCall(metrics.OperationConvert, err, time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("convert audio: %w", err)
	}

	started = time.Now()
	transcript, err := s.transcriber.Transcribe(ctx, pcm)
	s.recordCall(metrics.OperationTranscribe, err, time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("transcribe with %s: %w", s.transcriber.Name(), err)
	}

	m := s.calculator.Compute(transcript, pcm.Duration()).WithReference(reference, transcript)

	s.logger.Info("transcribed",
		zap.String("transcriber", s.transcriber.Name()),
		zap.Float64("duration_seconds", m.DurationSeconds),
		zap.Int("word_count", m.WordCount),
		zap.Float64("wpm", m.WPM),
		zap.Int("fillers", m.Fillers),
	)

	return &Result{Transcript: transcript, Metrics: m}, nil
}

func (s *Service) recordCall(operation string, err error, d time.Duration) {
	if s.recorder == nil {
		return
	}
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusFailed
	}
	s.recorder.RecordCollaborator(operation, status, d)
}

func (s *Service) recordTranscription(status string) {
	if s.recorder != nil {
		s.recorder.RecordTranscription(status)
	}
}
