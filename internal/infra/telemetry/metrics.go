package telemetry

import (
	"time"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveCacheLookup(_ domain.CacheResult) {}

func (n *NoopMetrics) ObserveCatalogLoad(_ time.Duration, _ error) {}

func (n *NoopMetrics) ObserveToolCall(_ domain.ToolCallMetric) {}

func (n *NoopMetrics) SetActiveSessions(_ int) {}

func (n *NoopMetrics) ObserveMailboxOverwrite() {}

func (n *NoopMetrics) AddInflightRequests(_ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
