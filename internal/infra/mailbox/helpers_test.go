package mailbox

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

type countingMetrics struct {
	mu         sync.Mutex
	overwrites int
	active     int
}

func (m *countingMetrics) ObserveCacheLookup(domain.CacheResult)   {}
func (m *countingMetrics) ObserveCatalogLoad(time.Duration, error) {}
func (m *countingMetrics) ObserveToolCall(domain.ToolCallMetric)   {}
func (m *countingMetrics) AddInflightRequests(int)                 {}
func (m *countingMetrics) SetActiveSessions(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = count
}
func (m *countingMetrics) ObserveMailboxOverwrite() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overwrites++
}

func zapNop() *zap.Logger {
	return zap.NewNop()
}
