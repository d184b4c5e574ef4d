package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "advisorhub"

// Metrics manages the Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPLatency       *prometheus.HistogramVec
	LLMCalls          *prometheus.CounterVec
	LLMLatency        *prometheus.HistogramVec
	LLMTokens         *prometheus.CounterVec
	BBASteps          *prometheus.CounterVec
	BBAStepLatency    *prometheus.HistogramVec
	DocumentsUploaded *prometheus.CounterVec
	UploadBytes       prometheus.Counter
	Exports           *prometheus.CounterVec
	RateLimitHits     *prometheus.CounterVec
	CacheAccess       *prometheus.CounterVec
}

// NewMetrics creates the metrics on a dedicated registry that also carries the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Latency of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LLMCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_calls_total",
				Help:      "Total number of model calls.",
			},
			[]string{"operation", "model", "result"},
		),
		LLMLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_call_duration_seconds",
				Help:      "Latency of model calls.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"operation"},
		),
		LLMTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_tokens_total",
				Help:      "Model tokens consumed.",
			},
			[]string{"model", "kind"},
		),
		BBASteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bba_steps_total",
				Help:      "BBA pipeline step executions.",
			},
			[]string{"step", "result"},
		),
		BBAStepLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "bba_step_duration_seconds",
				Help:      "Duration of BBA pipeline steps.",
				Buckets:   []float64{0.01, 0.1, 1, 5, 15, 30, 60, 120},
			},
			[]string{"step"},
		),
		DocumentsUploaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_uploaded_total",
				Help:      "Accepted document uploads.",
			},
			[]string{"content_type"},
		),
		UploadBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "document_upload_bytes_total",
				Help:      "Bytes of accepted document uploads.",
			},
		),
		Exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Generated spreadsheet exports.",
			},
			[]string{"kind"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of rate limit hits.",
			},
			[]string{"scope"},
		),
		CacheAccess: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_access_total",
				Help:      "Cache lookups by cache and result.",
			},
			[]string{"cache", "result"},
		),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records metrics for a served request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLLMCall records a model call and its token usage.
func (m *Metrics) RecordLLMCall(operation, model string, success bool, duration time.Duration, promptTokens, completionTokens int) {
	m.LLMCalls.WithLabelValues(operation, model, result(success)).Inc()
	m.LLMLatency.WithLabelValues(operation).Observe(duration.Seconds())
	m.LLMTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	m.LLMTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
}

// RecordBBAStep records the outcome of a BBA step.
func (m *Metrics) RecordBBAStep(step string, success bool, duration time.Duration) {
	m.BBASteps.WithLabelValues(step, result(success)).Inc()
	m.BBAStepLatency.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordDocumentUploaded records an accepted upload.
func (m *Metrics) RecordDocumentUploaded(contentType string, sizeBytes int64) {
	m.DocumentsUploaded.WithLabelValues(contentType).Inc()
	m.UploadBytes.Add(float64(sizeBytes))
}

// RecordExport records a generated spreadsheet.
func (m *Metrics) RecordExport(kind string) {
	m.Exports.WithLabelValues(kind).Inc()
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(scope string) {
	m.RateLimitHits.WithLabelValues(scope).Inc()
}

// RecordCacheAccess records a cache hit or miss.
func (m *Metrics) RecordCacheAccess(cacheType string, hit bool) {
	r := "miss"
	if hit {
		r = "hit"
	}
	m.CacheAccess.WithLabelValues(cacheType, r).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

//Personal.AI order the ending
