package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
)

const defaultReloadDebounce = 200 * time.Millisecond

// Watcher reloads the config file into a Holder whenever it changes.
// An invalid file is logged and the previous configuration stays in effect.
type Watcher struct {
	path      string
	loader    *Loader
	holder    *Holder
	overrides []Override
	debounce  time.Duration
	logger    *zap.Logger
}

func NewWatcher(path string, loader *Loader, holder *Holder, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		path:     path,
		loader:   loader,
		holder:   holder,
		debounce: defaultReloadDebounce,
		logger:   logger.Named("config_watcher"),
	}
}

// WithOverrides keeps flag overrides in force across reloads.
func (w *Watcher) WithOverrides(overrides ...Override) *Watcher {
	w.overrides = append(w.overrides, overrides...)
	return w
}

// Run blocks until ctx ends. Without a config path it returns at once.
func (w *Watcher) Run(ctx context.Context) {
	if w.path == "" {
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("config watcher failed", zap.Error(err))
		return
	}
	defer watcher.Close()

	// Watch the directory so atomic replace-by-rename is seen too.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		w.logger.Warn("config watcher add failed", zap.String("path", dir), zap.Error(err))
		return
	}
	target := filepath.Clean(w.path)

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				continue
			}
			timer.Reset(w.debounce)
		case <-timerChan(timer):
			timer = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	cfg, err := w.loader.Load(ctx, w.path)
	if err == nil {
		cfg, err = ApplyOverrides(cfg, w.overrides...)
	}
	if err != nil {
		w.logger.Warn("config reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}
	previous := w.holder.Current()
	w.holder.Update(cfg)
	w.logger.Info("config reloaded",
		telemetry.EventField(telemetry.EventConfigReload),
		zap.String("path", w.path),
		zap.Strings("restartRequired", restartRequired(previous, cfg)),
	)
}

// restartRequired lists changed settings that only take effect after a restart.
func restartRequired(previous, next domain.GatewayConfig) []string {
	var keys []string
	if previous.Server.ListenAddress != next.Server.ListenAddress {
		keys = append(keys, "server.listenAddress")
	}
	if previous.Server.Workers != next.Server.Workers {
		keys = append(keys, "server.workers")
	}
	if previous.Server.CommandTimeoutSeconds != next.Server.CommandTimeoutSeconds {
		keys = append(keys, "server.commandTimeoutSeconds")
	}
	if previous.Server.DiscoveryTimeoutSeconds != next.Server.DiscoveryTimeoutSeconds {
		keys = append(keys, "server.discoveryTimeoutSeconds")
	}
	if previous.Registry.RequestTimeoutSeconds != next.Registry.RequestTimeoutSeconds {
		keys = append(keys, "registry.requestTimeoutSeconds")
	}
	if previous.Mailbox != next.Mailbox {
		keys = append(keys, "mailbox")
	}
	if previous.Observability != next.Observability {
		keys = append(keys, "observability")
	}
	return keys
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
