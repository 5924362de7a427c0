package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/transport"
)

const defaultDiscoveryConcurrency = 4

// discoverAll fills in tool catalogs for the given servers with a bounded worker pool.
func (a *Aggregator) discoverAll(ctx context.Context, servers []domain.ServerRecord, indexes []int, toolRe *regexp.Regexp) {
	workers := discoveryWorkerCount(a.discoveryLimit, len(indexes))
	if workers == 0 {
		return
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				tools, ok := a.discover(ctx, servers[i])
				if !ok {
					continue
				}
				filtered := filterDiscoveredTools(tools, toolRe)
				if len(filtered) == 0 {
					continue
				}
				servers[i].ToolSpec = &domain.ToolSpec{
					Tools:     filtered,
					ToolsMeta: map[string]json.RawMessage{},
				}
			}
		}()
	}
	for _, i := range indexes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// discover lists a server's tools over a live session. Failures are logged and reported as !ok.
func (a *Aggregator) discover(ctx context.Context, server domain.ServerRecord) ([]domain.ToolRecord, bool) {
	logger := a.logger.With(telemetry.ServerField(server.Name))

	url, err := transport.ResolveURL(server, a.pick)
	if err != nil {
		logger.Debug("skipping discovery", zap.Error(err))
		return nil, false
	}
	logger.Debug("discovering tools", telemetry.URLField(url), zap.String("protocol", string(server.Protocol)))

	ctx, cancel := context.WithTimeout(ctx, a.discoveryWait)
	defer cancel()

	session, err := a.dialer.Dial(ctx, server.Protocol, url)
	if err != nil {
		a.logDiscoveryFailure(logger, url, err)
		return nil, false
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logger.Warn("close discovery session failed", telemetry.URLField(url), zap.Error(closeErr))
		}
	}()

	tools, err := session.ListTools(ctx)
	if err != nil {
		a.logDiscoveryFailure(logger, url, err)
		return nil, false
	}
	if len(tools) == 0 {
		return nil, false
	}
	return tools, true
}

func (a *Aggregator) logDiscoveryFailure(logger *zap.Logger, url string, err error) {
	fields := []zap.Field{
		telemetry.EventField(telemetry.EventDiscoveryFailure),
		telemetry.URLField(url),
		zap.Error(err),
	}
	if errors.Is(err, domain.ErrUnsupportedProtocol) {
		logger.Warn("tool discovery skipped for unsupported protocol", fields...)
		return
	}
	logger.Error("tool discovery failed", fields...)
}

func discoveryWorkerCount(limit, total int) int {
	if total <= 0 {
		return 0
	}
	if limit <= 0 {
		limit = defaultDiscoveryConcurrency
	}
	if limit > total {
		return total
	}
	return limit
}
