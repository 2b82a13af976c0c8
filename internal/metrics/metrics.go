// Package metrics exposes the service's Prometheus instruments. A nil
// *Metrics is valid and records nothing, so components can be built without
// metrics in tests and one-shot CLI runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "answer_grader"

// Collaborator operations.
const (
	OperationEmbed      = "embed"
	OperationGenerate   = "generate"
	OperationTranscribe = "transcribe"
	OperationConvert    = "convert"
	OperationQuestions  = "questions"
	OperationSummarize  = "summarize"
)

// Call outcomes.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
	StatusCached = "cached"
)

var (
	httpDurationBuckets         = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	collaboratorDurationBuckets = []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30, 60, 120}
)

// Metrics holds every instrument of the service on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	evaluationsTotal     *prometheus.CounterVec
	finalScore           prometheus.Histogram
	collaboratorTotal    *prometheus.CounterVec
	collaboratorDuration *prometheus.HistogramVec
	transcriptionsTotal  *prometheus.CounterVec
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
}

// New creates and registers all instruments, plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Answer evaluations by outcome tier.",
		}, []string{"tier"}),
		finalScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "final_score",
			Help:      "Distribution of final scores of graded answers.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		collaboratorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_calls_total",
			Help:      "Calls to external collaborators by operation and status.",
		}, []string{"operation", "status"}),
		collaboratorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collaborator_call_duration_seconds",
			Help:      "Duration of calls to external collaborators.",
			Buckets:   collaboratorDurationBuckets,
		}, []string{"operation"}),
		transcriptionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Transcription requests by status.",
		}, []string{"status"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration.",
			Buckets:   httpDurationBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.evaluationsTotal,
		m.finalScore,
		m.collaboratorTotal,
		m.collaboratorDuration,
		m.transcriptionsTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordEvaluation counts an evaluation outcome. Graded outcomes also feed the
// score histogram.
func (m *Metrics) RecordEvaluation(tier string, final float64, graded bool) {
	if m == nil {
		return
	}
	m.evaluationsTotal.WithLabelValues(tier).Inc()
	if graded {
		m.finalScore.Observe(final)
	}
}

// RecordCollaborator counts one collaborator call and its latency.
func (m *Metrics) RecordCollaborator(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.collaboratorTotal.WithLabelValues(operation, status).Inc()
	if status != StatusCached {
		m.collaboratorDuration.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// RecordTranscription counts a transcription request.
func (m *Metrics) RecordTranscription(status string) {
	if m == nil {
		return
	}
	m.transcriptionsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest counts a served request.
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
