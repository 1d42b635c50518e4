package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	intentsResolvedTotal  *prometheus.CounterVec
	guardianVerdictsTotal *prometheus.CounterVec
	previewBuildDuration  *prometheus.HistogramVec
	collaboratorFailures  *prometheus.CounterVec
	backendCallsTotal     *prometheus.CounterVec
	eventsPublishedTotal  *prometheus.CounterVec
}

// NewMetrics registers every collector on registry. A nil registry uses a
// fresh one so tests never collide on the global default.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)

	return &Metrics{
		gatherer: registry,
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nova_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"handler", "method"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nova_http_requests_total",
				Help: "Total number of HTTP requests by handler, method and status code",
			},
			[]string{"handler", "method", "code"},
		),
		intentsResolvedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nova_intents_resolved_total",
				Help: "Conversations resolved by final intent",
			},
			[]string{"intent"},
		),
		guardianVerdictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nova_guardian_verdicts_total",
				Help: "Guardian verdicts by severity and validity",
			},
			[]string{"severity", "valid"},
		),
		previewBuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nova_preview_build_duration_seconds",
				Help:    "Time spent building transfer previews, including balance and gas lookups",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),
		collaboratorFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nova_collaborator_failures_total",
				Help: "Failed calls to external collaborators by name and error code",
			},
			[]string{"collaborator", "code"},
		),
		backendCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nova_backend_calls_total",
				Help: "Calls to the conversational backend by status",
			},
			[]string{"status"},
		),
		eventsPublishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nova_events_published_total",
				Help: "Preview events published by status",
			},
			[]string{"status"},
		),
	}
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(handler, method string, status int, duration float64) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(handler, method).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
}

// RecordIntent counts a resolved conversation.
func (m *Metrics) RecordIntent(intent string) {
	if m == nil {
		return
	}
	m.intentsResolvedTotal.WithLabelValues(intent).Inc()
}

// RecordVerdict counts a guardian verdict.
func (m *Metrics) RecordVerdict(severity string, valid bool) {
	if m == nil {
		return
	}
	m.guardianVerdictsTotal.WithLabelValues(severity, strconv.FormatBool(valid)).Inc()
}

// RecordPreviewBuild observes preview construction time.
func (m *Metrics) RecordPreviewBuild(outcome string, duration float64) {
	if m == nil {
		return
	}
	m.previewBuildDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordCollaboratorFailure counts a failed balance, gas, oracle or backend call.
func (m *Metrics) RecordCollaboratorFailure(collaborator, code string) {
	if m == nil {
		return
	}
	m.collaboratorFailures.WithLabelValues(collaborator, code).Inc()
}

// RecordBackendCall counts a conversational backend call.
func (m *Metrics) RecordBackendCall(status string) {
	if m == nil {
		return
	}
	m.backendCallsTotal.WithLabelValues(status).Inc()
}

// RecordEventPublished counts a publish attempt.
func (m *Metrics) RecordEventPublished(status string) {
	if m == nil {
		return
	}
	m.eventsPublishedTotal.WithLabelValues(status).Inc()
}
