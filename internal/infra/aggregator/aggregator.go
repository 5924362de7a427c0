package aggregator

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/transport"
)

// Aggregator builds the merged server catalog for a query.
//
// Detail fetches are fail-fast: one failure aborts the listing.
// Live tool discovery for servers without an embedded catalog is best effort:
// a failure is logged and that server contributes no tools.
type Aggregator struct {
	registries     domain.RegistryFactory
	dialer         domain.BackendDialer
	pick           transport.EndpointPicker
	discoveryLimit int
	discoveryWait  time.Duration
	logger         *zap.Logger
}

type Options struct {
	Registries domain.RegistryFactory
	Dialer     domain.BackendDialer
	// Picker chooses the endpoint used for live discovery. Defaults to a uniform random pick.
	Picker transport.EndpointPicker
	// DiscoveryConcurrency bounds concurrent live discovery sessions.
	DiscoveryConcurrency int
	// DiscoveryTimeout bounds a single backend's dial and tools/list.
	DiscoveryTimeout time.Duration
	Logger           *zap.Logger
}

func New(opts Options) *Aggregator {
	if opts.Registries == nil {
		panic("aggregator requires a registry factory")
	}
	if opts.Dialer == nil {
		panic("aggregator requires a backend dialer")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pick := opts.Picker
	if pick == nil {
		pick = transport.RandomEndpoint
	}
	wait := opts.DiscoveryTimeout
	if wait <= 0 {
		wait = domain.DefaultDiscoveryTimeoutSeconds * time.Second
	}
	return &Aggregator{
		registries:     opts.Registries,
		dialer:         opts.Dialer,
		pick:           pick,
		discoveryLimit: opts.DiscoveryConcurrency,
		discoveryWait:  wait,
		logger:         logger.Named("aggregator"),
	}
}

// List queries the registry and returns the filtered servers in registry order.
func (a *Aggregator) List(ctx context.Context, query domain.CatalogQuery) ([]domain.ServerRecord, error) {
	serverRe, err := compilePattern("serverPattern", query.ServerPattern)
	if err != nil {
		return nil, err
	}
	toolRe, err := compilePattern("toolPattern", query.ToolPattern)
	if err != nil {
		return nil, err
	}

	registry, err := a.registries.Registry(query.RegistryAddress, query.Credentials)
	if err != nil {
		return nil, err
	}
	page, err := registry.ListServers(ctx, query.Namespace, 1, domain.DefaultRegistryPageSize)
	if err != nil {
		return nil, err
	}

	selected := selectServers(page.Servers, serverRe)
	a.logger.Debug("fetching server details",
		zap.String("namespace", query.Namespace),
		zap.Int("listed", len(page.Servers)),
		zap.Int("selected", len(selected)),
	)

	servers, err := a.fetchDetails(ctx, registry, query.Namespace, selected)
	if err != nil {
		return nil, err
	}

	var withoutCatalog []int
	for i := range servers {
		if servers[i].HasEmbeddedTools() {
			filterEmbeddedTools(&servers[i], toolRe)
			continue
		}
		withoutCatalog = append(withoutCatalog, i)
	}
	a.discoverAll(ctx, servers, withoutCatalog, toolRe)
	return servers, nil
}

func (a *Aggregator) fetchDetails(ctx context.Context, registry domain.Registry, namespace string, selected []domain.ServerSummary) ([]domain.ServerRecord, error) {
	servers := make([]domain.ServerRecord, len(selected))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, summary := range selected {
		group.Go(func() error {
			detail, err := registry.GetServerDetail(groupCtx, namespace, summary.Name, "")
			if err != nil {
				return fmt.Errorf("fetch detail for %q: %w", summary.Name, err)
			}
			servers[i] = detail
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		a.logger.Warn("catalog aggregation aborted", telemetry.EventField(telemetry.EventCatalogLoad), zap.Error(err))
		return nil, err
	}
	return servers, nil
}

func compilePattern(name, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, domain.E(domain.CodeInvalidArgument, "aggregator."+name, fmt.Sprintf("invalid %s %q", name, pattern), err)
	}
	return re, nil
}
