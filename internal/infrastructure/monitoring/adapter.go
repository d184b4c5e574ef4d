// Package monitoring provides logging, metrics and tracing for the service and
// adapts them to the domain's metrics interface.
package monitoring

import (
	"github.com/turtacn/advisorhub/internal/domain/service"
)

// NewMetricsAdapter exposes the Prometheus metrics through the domain's Metrics interface.
// A nil metrics value yields a no-op implementation.
// NewMetricsAdapter 通过域的 Metrics 接口暴露 Prometheus 指标。
func NewMetricsAdapter(metrics *Metrics) service.Metrics {
	if metrics == nil {
		return service.NoopMetrics{}
	}
	return metrics
}

var _ service.Metrics = (*Metrics)(nil)

//Personal.AI order the ending
