package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	flowsProcessed    *prometheus.CounterVec
	flowDuration      prometheus.Histogram
	flowCache         *prometheus.CounterVec
	codeValidations   *prometheus.CounterVec
	promptValidations prometheus.Counter
	promptVariables   prometheus.Histogram
	authFailures      *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheus creates a recorder with its own registry, including Go and
// process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &PrometheusRecorder{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowlet_http_requests_total",
			Help: "Total HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowlet_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		flowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowlet_flows_processed_total",
			Help: "Flow runs by outcome.",
		}, []string{"status"}),
		flowDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowlet_flow_duration_seconds",
			Help:    "Time spent in the execution engine per run.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		flowCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowlet_flow_cache_lookups_total",
			Help: "Flow cache lookups by result.",
		}, []string{"result"}),
		codeValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowlet_code_validations_total",
			Help: "Code validations by outcome.",
		}, []string{"status"}),
		promptValidations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowlet_prompt_validations_total",
			Help: "Prompt template validations.",
		}),
		promptVariables: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowlet_prompt_variables",
			Help:    "Input variables found per prompt template.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowlet_auth_failures_total",
			Help: "Rejected authentication attempts by reason.",
		}, []string{"reason"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowlet_events_published_total",
			Help: "Flow events by publish outcome.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.flowsProcessed,
		m.flowDuration,
		m.flowCache,
		m.codeValidations,
		m.promptValidations,
		m.promptVariables,
		m.authFailures,
		m.eventsPublished,
	)

	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *PrometheusRecorder) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records one served request.
func (m *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncFlowProcessed increments the flow run counter.
func (m *PrometheusRecorder) IncFlowProcessed(status string) {
	m.flowsProcessed.WithLabelValues(status).Inc()
}

// ObserveFlowDuration records engine time for one run.
func (m *PrometheusRecorder) ObserveFlowDuration(duration time.Duration) {
	m.flowDuration.Observe(duration.Seconds())
}

// IncFlowCacheHit increments the flow cache hit counter.
func (m *PrometheusRecorder) IncFlowCacheHit() {
	m.flowCache.WithLabelValues("hit").Inc()
}

// IncFlowCacheMiss increments the flow cache miss counter.
func (m *PrometheusRecorder) IncFlowCacheMiss() {
	m.flowCache.WithLabelValues("miss").Inc()
}

// IncCodeValidation increments the code validation counter.
func (m *PrometheusRecorder) IncCodeValidation(status string) {
	m.codeValidations.WithLabelValues(status).Inc()
}

// IncPromptValidation records one prompt validation.
func (m *PrometheusRecorder) IncPromptValidation(variables int) {
	m.promptValidations.Inc()
	m.promptVariables.Observe(float64(variables))
}

// IncAuthFailure increments the auth failure counter.
func (m *PrometheusRecorder) IncAuthFailure(reason string) {
	m.authFailures.WithLabelValues(reason).Inc()
}

// IncEventPublished increments the event publish counter.
func (m *PrometheusRecorder) IncEventPublished(status string) {
	m.eventsPublished.WithLabelValues(status).Inc()
}
