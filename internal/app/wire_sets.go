//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/aggregator"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/catalogcache"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/registry"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/transport"
)

var CoreInfraSet = wire.NewSet(
	NewLogging,
	NewLogger,
	NewMetricsRegistry,
	NewMetrics,
	NewHealthTracker,
	NewConfigLoader,
	NewConfigHolder,
	NewConfigWatcher,
)

var CatalogSet = wire.NewSet(
	NewBackendDialer,
	wire.Bind(new(domain.BackendDialer), new(*transport.CompositeTransport)),
	NewRegistryFactory,
	wire.Bind(new(domain.RegistryFactory), new(*registry.Factory)),
	NewAggregator,
	wire.Bind(new(domain.CatalogLister), new(*aggregator.Aggregator)),
	NewCatalogCache,
	NewCatalog,
	wire.Bind(new(domain.CatalogSource), new(*catalogcache.Catalog)),
)

var FrontendSet = wire.NewSet(
	NewToolRouter,
	NewMailboxStore,
	NewMailbox,
	NewWorkerPool,
	NewDispatcher,
	NewFrontendServer,
)

var AppSet = wire.NewSet(
	CoreInfraSet,
	CatalogSet,
	FrontendSet,
	wire.Struct(new(ApplicationOptions), "*"),
	NewApplication,
)
