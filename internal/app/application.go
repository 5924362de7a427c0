package app

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/config"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/frontend"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/mailbox"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
)

// Application wires the gateway runtime and its background loops.
type Application struct {
	ctx        context.Context
	configPath string

	logger   *zap.Logger
	registry *prometheus.Registry
	health   *telemetry.HealthTracker
	holder   *config.Holder
	watcher  *config.Watcher
	mailbox  *mailbox.Mailbox
	server   *frontend.Server
}

// ApplicationOptions captures dependencies and settings for Application.
type ApplicationOptions struct {
	Context     context.Context
	ServeConfig ServeConfig
	Logger      *zap.Logger
	Registry    *prometheus.Registry
	Health      *telemetry.HealthTracker
	Holder      *config.Holder
	Watcher     *config.Watcher
	Mailbox     *mailbox.Mailbox
	Server      *frontend.Server
}

// NewApplication constructs the gateway runtime.
func NewApplication(opts ApplicationOptions) *Application {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Application{
		ctx:        ctx,
		configPath: opts.ServeConfig.ConfigPath,
		logger:     opts.Logger,
		registry:   opts.Registry,
		health:     opts.Health,
		holder:     opts.Holder,
		watcher:    opts.Watcher,
		mailbox:    opts.Mailbox,
		server:     opts.Server,
	}
}

// Run serves until the context ends or a listener fails, then releases the mailbox store.
func (a *Application) Run() error {
	cfg := a.holder.Current()
	a.logger.Info("configuration loaded",
		zap.String("config", a.configPath),
		zap.String("registry", cfg.Registry.Address),
		zap.String("namespace", cfg.Registry.Namespace),
		zap.String("mailbox", cfg.Mailbox.Backend),
		zap.Int("workers", cfg.Server.Workers),
	)

	group, ctx := errgroup.WithContext(a.ctx)
	group.Go(func() error {
		return a.server.ListenAndServe(ctx, cfg.Server.ListenAddress)
	})
	group.Go(func() error {
		return telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
			Addr:          cfg.Observability.ListenAddress,
			EnableMetrics: cfg.Observability.Metrics,
			EnableHealthz: cfg.Observability.Healthz,
			Health:        a.health,
			Registry:      a.registry,
		}, a.logger)
	})
	group.Go(func() error {
		a.mailbox.RunJanitor(ctx)
		return nil
	})
	group.Go(func() error {
		a.watcher.Run(ctx)
		return nil
	})

	err := group.Wait()
	if closeErr := a.mailbox.Close(); closeErr != nil {
		a.logger.Warn("mailbox close failed", zap.Error(closeErr))
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
