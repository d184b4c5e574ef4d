// Package service defines the domain services and the interfaces the domain needs from infrastructure.
package service

import (
	"time"
)

// Metrics defines the interface for collecting business metrics.
// This abstraction allows the application layer to remain independent of the specific monitoring implementation (e.g., Prometheus).
// Metrics 定义了收集业务指标的接口。
type Metrics interface {
	// RecordHTTPRequest records one served HTTP request.
	RecordHTTPRequest(method, route string, status int, duration time.Duration)

	// RecordLLMCall records a model call and its token usage.
	RecordLLMCall(operation, model string, success bool, duration time.Duration, promptTokens, completionTokens int)

	// RecordBBAStep records the outcome of a BBA pipeline step.
	RecordBBAStep(step string, success bool, duration time.Duration)

	// RecordDocumentUploaded records an accepted upload.
	RecordDocumentUploaded(contentType string, sizeBytes int64)

	// RecordExport records a generated spreadsheet.
	RecordExport(kind string)

	// RecordRateLimitHit records an event when a rate limit is triggered.
	RecordRateLimitHit(scope string)

	// RecordCacheAccess records a cache hit or miss.
	RecordCacheAccess(cacheType string, hit bool)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) RecordHTTPRequest(string, string, int, time.Duration) {}
func (NoopMetrics) RecordLLMCall(string, string, bool, time.Duration, int, int) {}
func (NoopMetrics) RecordBBAStep(string, bool, time.Duration) {}
func (NoopMetrics) RecordDocumentUploaded(string, int64) {}
func (NoopMetrics) RecordExport(string) {}
func (NoopMetrics) RecordRateLimitHit(string) {}
func (NoopMetrics) RecordCacheAccess(string, bool) {}
