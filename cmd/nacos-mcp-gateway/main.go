package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/app"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/config"
)

type rootOptions struct {
	configPath string
	listen     string
	nacosAddr  string
	namespace  string
	debug      bool
}

func main() {
	zapConfig := zap.NewProductionConfig()
	level := zapConfig.Level
	logger, err := zapConfig.Build()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	root := newRootCmd(logger, &level)
	if err := root.Execute(); err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

func newRootCmd(logger *zap.Logger, level *zap.AtomicLevel) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "nacos-mcp-gateway",
		Short:         "MCP gateway aggregating the tools of servers registered in Nacos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to gateway config file (defaults apply when empty)")
	flags.StringVar(&opts.listen, "listen", domain.DefaultListenAddress, "gateway listen address")
	flags.StringVar(&opts.nacosAddr, "nacos-addr", domain.DefaultRegistryAddress, "Nacos server address")
	flags.StringVar(&opts.namespace, "namespace", domain.DefaultNamespace, "Nacos namespace id")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(logger, level, opts),
		newValidateCmd(logger, opts),
		newConfigCmd(logger, opts),
	)

	return root
}

func newServeCmd(logger *zap.Logger, level *zap.AtomicLevel, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			application := app.New(logger, level)
			return application.Serve(ctx, app.ServeConfig{
				ConfigPath: opts.configPath,
				Overrides:  flagOverrides(cmd.Flags(), opts),
			})
		},
	}

	return cmd
}

func newValidateCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the gateway configuration without serving",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.New(logger, nil)
			return application.ValidateConfig(cmd.Context(), app.ValidateConfig{
				ConfigPath: opts.configPath,
				Overrides:  flagOverrides(cmd.Flags(), opts),
			})
		},
	}

	return cmd
}

func newConfigCmd(logger *zap.Logger, opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.New(logger, nil)
			cfg, err := application.LoadConfig(cmd.Context(), opts.configPath, flagOverrides(cmd.Flags(), opts)...)
			if err != nil {
				return err
			}
			data, err := app.RenderConfig(cfg, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", app.FormatYAML, "output format: yaml, toml or json")
	return cmd
}

// flagOverrides turns explicitly set flags into config overrides so file values win otherwise.
func flagOverrides(flags *pflag.FlagSet, opts *rootOptions) []config.Override {
	var overrides []config.Override
	flags.Visit(func(flag *pflag.Flag) {
		switch flag.Name {
		case "listen":
			listen := opts.listen
			overrides = append(overrides, func(cfg *domain.GatewayConfig) { cfg.Server.ListenAddress = listen })
		case "nacos-addr":
			addr := opts.nacosAddr
			overrides = append(overrides, func(cfg *domain.GatewayConfig) { cfg.Registry.Address = addr })
		case "namespace":
			namespace := opts.namespace
			overrides = append(overrides, func(cfg *domain.GatewayConfig) { cfg.Registry.Namespace = namespace })
		case "debug":
			debug := opts.debug
			overrides = append(overrides, func(cfg *domain.GatewayConfig) { cfg.Debug = debug })
		}
	})
	return overrides
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
