package domain

import "time"

// CacheResult labels a catalog cache lookup.
type CacheResult string

const (
	// CacheHit indicates a fresh entry was served.
	CacheHit CacheResult = "hit"
	// CacheMiss indicates the loader had to run or be joined.
	CacheMiss CacheResult = "miss"
)

// ToolCallMetric captures metrics for a routed tool call.
type ToolCallMetric struct {
	Server   string
	Outcome  OutcomeKind
	Duration time.Duration
}

// Metrics records operational metrics for the gateway.
type Metrics interface {
	ObserveCacheLookup(result CacheResult)
	ObserveCatalogLoad(duration time.Duration, err error)
	ObserveToolCall(metric ToolCallMetric)
	SetActiveSessions(count int)
	ObserveMailboxOverwrite()
	AddInflightRequests(delta int)
}
