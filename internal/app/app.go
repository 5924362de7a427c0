package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/config"
)

type App struct {
	logger *zap.Logger
	level  *zap.AtomicLevel
}

// ServeConfig selects the configuration file and the flag overrides applied on top of it.
// Config is filled in by Serve once the file is loaded.
type ServeConfig struct {
	ConfigPath string
	Overrides  []config.Override
	Config     domain.GatewayConfig
}

type ValidateConfig struct {
	ConfigPath string
	Overrides  []config.Override
}

// New returns an App logging through logger. level, when non-nil, follows the debug setting.
func New(logger *zap.Logger, level *zap.AtomicLevel) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		logger: logger,
		level:  level,
	}
}

// Serve loads the configuration and runs the gateway until ctx ends.
func (a *App) Serve(ctx context.Context, cfg ServeConfig) error {
	loaded, err := a.LoadConfig(ctx, cfg.ConfigPath, cfg.Overrides...)
	if err != nil {
		return err
	}
	cfg.Config = loaded

	application, err := InitializeApplication(ctx, cfg, LoggingConfig{
		Logger: a.logger,
		Level:  a.level,
	})
	if err != nil {
		return fmt.Errorf("initialize gateway: %w", err)
	}
	return application.Run()
}

// LoadConfig reads the file at path, or the defaults when path is empty, and applies overrides.
func (a *App) LoadConfig(ctx context.Context, path string, overrides ...config.Override) (domain.GatewayConfig, error) {
	loader := config.NewLoader(a.logger)
	cfg, err := loader.Load(ctx, path)
	if err != nil {
		return domain.GatewayConfig{}, err
	}
	return config.ApplyOverrides(cfg, overrides...)
}

// ValidateConfig validates the configuration at the provided path.
func (a *App) ValidateConfig(ctx context.Context, cfg ValidateConfig) error {
	loaded, err := a.LoadConfig(ctx, cfg.ConfigPath, cfg.Overrides...)
	if err != nil {
		return err
	}
	a.logger.Info("configuration validated",
		zap.String("config", cfg.ConfigPath),
		zap.String("registry", loaded.Registry.Address),
		zap.String("namespace", loaded.Registry.Namespace),
		zap.String("mailbox", loaded.Mailbox.Backend),
	)
	return nil
}
