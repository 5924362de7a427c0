package app

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/aggregator"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/catalogcache"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/config"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/frontend"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/mailbox"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/registry"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/router"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/transport"
)

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())
	return registry
}

func NewMetrics(registry *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(registry)
}

func NewHealthTracker() *telemetry.HealthTracker {
	return telemetry.NewHealthTracker()
}

func NewConfigLoader(logger *zap.Logger) *config.Loader {
	return config.NewLoader(logger)
}

// NewConfigHolder publishes the loaded configuration and keeps the log level in step with its debug flag.
func NewConfigHolder(cfg ServeConfig, logging Logging) *config.Holder {
	holder := config.NewHolder(cfg.Config)
	applyDebug(logging.Level, cfg.Config.Debug)
	holder.Subscribe(func(next domain.GatewayConfig) {
		applyDebug(logging.Level, next.Debug)
	})
	return holder
}

func NewConfigWatcher(cfg ServeConfig, loader *config.Loader, holder *config.Holder, logger *zap.Logger) *config.Watcher {
	return config.NewWatcher(cfg.ConfigPath, loader, holder, logger).WithOverrides(cfg.Overrides...)
}

func NewBackendDialer(logger *zap.Logger) *transport.CompositeTransport {
	return transport.NewCompositeTransport(transport.CompositeTransportOptions{
		SSE:            transport.NewSSETransport(transport.SSETransportOptions{Logger: logger}),
		StreamableHTTP: transport.NewStreamableHTTPTransport(transport.StreamableHTTPTransportOptions{Logger: logger}),
	})
}

func NewRegistryFactory(holder *config.Holder, logger *zap.Logger) *registry.Factory {
	return registry.NewFactory(registry.FactoryOptions{
		Timeout: holder.Current().RegistryTimeout(),
		Logger:  logger,
	})
}

func NewAggregator(registries domain.RegistryFactory, dialer domain.BackendDialer, holder *config.Holder, logger *zap.Logger) *aggregator.Aggregator {
	return aggregator.New(aggregator.Options{
		Registries:       registries,
		Dialer:           dialer,
		DiscoveryTimeout: holder.Current().DiscoveryTimeout(),
		Logger:           logger,
	})
}

func NewCatalogCache(metrics domain.Metrics, logger *zap.Logger) *catalogcache.Cache {
	return catalogcache.New(catalogcache.Options{
		Metrics: metrics,
		Logger:  logger,
	})
}

// NewCatalog reads the query and TTL from the live configuration on every request.
func NewCatalog(cache *catalogcache.Cache, lister domain.CatalogLister, holder *config.Holder) *catalogcache.Catalog {
	return catalogcache.NewCatalog(cache, lister, func() (domain.CatalogQuery, time.Duration) {
		current := holder.Current()
		return current.CatalogQuery(), current.CacheTTL()
	})
}

func NewToolRouter(dialer domain.BackendDialer, holder *config.Holder, metrics domain.Metrics, logger *zap.Logger) domain.ToolRouter {
	basic := router.NewBasicRouter(dialer, router.Options{
		Timeout: holder.Current().CommandTimeout(),
		Logger:  logger,
	})
	return router.NewMetricRouter(basic, metrics)
}

func NewMailboxStore(holder *config.Holder) (domain.MailboxStore, error) {
	current := holder.Current()
	return mailbox.OpenStore(mailbox.StoreConfig{
		Backend:      current.Mailbox.Backend,
		Path:         current.Mailbox.Path,
		RedisAddress: current.Mailbox.RedisAddress,
		TTL:          current.SessionIdle(),
	})
}

func NewMailbox(store domain.MailboxStore, holder *config.Holder, metrics domain.Metrics, health *telemetry.HealthTracker, logger *zap.Logger) *mailbox.Mailbox {
	current := holder.Current()
	return mailbox.New(mailbox.Options{
		Store:        store,
		PollInterval: current.PollInterval(),
		IdleTimeout:  current.SessionIdle(),
		Metrics:      metrics,
		Health:       health,
		Logger:       logger,
	})
}

func NewWorkerPool(holder *config.Holder, metrics domain.Metrics) *frontend.Pool {
	return frontend.NewPool(holder.Current().Server.Workers, metrics)
}

func NewDispatcher(catalog domain.CatalogSource, router domain.ToolRouter, pool *frontend.Pool, logger *zap.Logger) *frontend.Dispatcher {
	return frontend.NewDispatcher(frontend.DispatcherOptions{
		Catalog: catalog,
		Router:  router,
		Pool:    pool,
		Logger:  logger,
	})
}

// NewFrontendServer reads bearer tokens from the live configuration so token rotation needs no restart.
func NewFrontendServer(dispatcher *frontend.Dispatcher, box *mailbox.Mailbox, holder *config.Holder, logger *zap.Logger) *frontend.Server {
	return frontend.NewServer(frontend.ServerOptions{
		Dispatcher: dispatcher,
		Mailbox:    box,
		Tokens: func() []string {
			return holder.Current().Auth.Tokens
		},
		Logger: logger,
	})
}
