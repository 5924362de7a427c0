package frontend

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
)

// Pool bounds how many catalog or tool requests run at once.
// A request holds one slot for its whole duration; the rest wait in line.
type Pool struct {
	sem     *semaphore.Weighted
	size    int64
	metrics domain.Metrics
}

func NewPool(size int, metrics domain.Metrics) *Pool {
	if size <= 0 {
		size = domain.DefaultWorkers
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Pool{
		sem:     semaphore.NewWeighted(int64(size)),
		size:    int64(size),
		metrics: metrics,
	}
}

// Do runs fn once a slot is free. It gives up when ctx ends first.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return domain.E(domain.CodeUnavailable, "frontend.pool", "worker pool wait aborted", err)
	}
	p.metrics.AddInflightRequests(1)
	defer func() {
		p.metrics.AddInflightRequests(-1)
		p.sem.Release(1)
	}()
	return fn(ctx)
}

// Size returns the pool capacity.
func (p *Pool) Size() int {
	return int(p.size)
}
