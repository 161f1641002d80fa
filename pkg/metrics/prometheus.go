// Package metrics provides Prometheus metrics for the calmate service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the calmate service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Assistant
	toolInvocations *prometheus.CounterVec
	toolLatency     *prometheus.HistogramVec
	chatTurns       *prometheus.CounterVec
	chatToolRounds  prometheus.Histogram
	modelRequests   *prometheus.CounterVec
	modelLatency    prometheus.Histogram

	// Calendar provider
	upstreamCalls   *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	tokenRefreshes  *prometheus.CounterVec

	// Repository
	repositoryQueryLatency *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// latencyBuckets are milliseconds, covering a fast local call up to a slow
// model completion.
var latencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000} //nolint:gochecknoglobals // bucket layout

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "calmate",
		subsystem:        "assistant",
		histogramBuckets: latencyBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.toolInvocations = m.counterVec("tool_invocations_total", "Assistant tool invocations by tool and outcome", "tool", "outcome")
	m.toolLatency = m.histogramVec("tool_latency_milliseconds", "Assistant tool latency in milliseconds", "tool")
	m.chatTurns = m.counterVec("chat_turns_total", "Chat turns by outcome", "outcome")
	m.chatToolRounds = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "chat_tool_rounds",
		Help:        "Tool rounds used per chat turn",
		Buckets:     []float64{0, 1, 2, 3, 4, 5},
		ConstLabels: m.customLabels,
	})
	m.modelRequests = m.counterVec("model_requests_total", "Language model requests by outcome", "outcome")
	m.modelLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "model_latency_milliseconds",
		Help:        "Language model request latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})

	m.upstreamCalls = m.counterVec("calendar_calls_total", "Calendar provider calls by operation and outcome", "op", "outcome")
	m.upstreamLatency = m.histogramVec("calendar_latency_milliseconds", "Calendar provider call latency in milliseconds", "op")
	m.tokenRefreshes = m.counterVec("token_refreshes_total", "OAuth token refreshes by outcome", "outcome")

	m.repositoryQueryLatency = m.histogramVec("repository_query_latency_milliseconds", "Credential store query latency in milliseconds", "op")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "System memory usage in bytes",
		ConstLabels: m.customLabels,
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: m.customLabels,
	})
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.customLabels,
	})
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordToolInvocation counts one dispatched tool call.
func RecordToolInvocation(tool, outcome string) {
	globalManager.toolInvocations.WithLabelValues(tool, outcome).Inc()
}

// RecordToolLatency records a tool's latency in milliseconds.
func RecordToolLatency(tool string, latencyMs float64) {
	globalManager.toolLatency.WithLabelValues(tool).Observe(latencyMs)
}

// RecordChatTurn counts a chat turn and the tool rounds it used.
func RecordChatTurn(outcome string, rounds int) {
	globalManager.chatTurns.WithLabelValues(outcome).Inc()
	globalManager.chatToolRounds.Observe(float64(rounds))
}

// RecordModelRequest counts a language model request and its latency.
func RecordModelRequest(outcome string, latencyMs float64) {
	globalManager.modelRequests.WithLabelValues(outcome).Inc()
	globalManager.modelLatency.Observe(latencyMs)
}

// RecordUpstreamCall counts a calendar provider call.
func RecordUpstreamCall(op, outcome string) {
	globalManager.upstreamCalls.WithLabelValues(op, outcome).Inc()
}

// RecordUpstreamLatency records calendar provider latency in milliseconds.
func RecordUpstreamLatency(op string, latencyMs float64) {
	globalManager.upstreamLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordTokenRefresh counts a token refresh attempt.
func RecordTokenRefresh(outcome string) {
	globalManager.tokenRefreshes.WithLabelValues(outcome).Inc()
}

// RecordRepositoryQueryLatency records a credential store query latency.
func RecordRepositoryQueryLatency(op string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// ToolInvocationTotals sums the recorded tool invocations per tool across
// outcomes. Tools never invoked are absent.
func ToolInvocationTotals() map[string]float64 {
	totals := make(map[string]float64)
	families, err := customRegistry.Gather()
	if err != nil {
		return totals
	}
	name := prometheus.BuildFQName(globalManager.namespace, globalManager.subsystem, "tool_invocations_total")
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "tool" {
					totals[lp.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	return totals
}
