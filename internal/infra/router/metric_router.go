package router

import (
	"context"
	"time"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// MetricRouter records one tool call metric per routed call.
type MetricRouter struct {
	inner   domain.ToolRouter
	metrics domain.Metrics
}

func NewMetricRouter(inner domain.ToolRouter, metrics domain.Metrics) *MetricRouter {
	return &MetricRouter{
		inner:   inner,
		metrics: metrics,
	}
}

func (r *MetricRouter) Call(ctx context.Context, servers []domain.ServerRecord, serverName, toolName string, arguments map[string]any) domain.CallOutcome {
	start := time.Now()
	outcome := r.inner.Call(ctx, servers, serverName, toolName, arguments)
	r.observe(serverName, outcome, time.Since(start))
	return outcome
}

func (r *MetricRouter) observe(serverName string, outcome domain.CallOutcome, duration time.Duration) {
	if r.metrics == nil {
		return
	}
	r.metrics.ObserveToolCall(domain.ToolCallMetric{
		Server:   serverName,
		Outcome:  outcome.Kind,
		Duration: duration,
	})
}

var _ domain.ToolRouter = (*MetricRouter)(nil)
