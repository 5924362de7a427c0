package config

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeConfig(t, "registry:\n  namespace: first\n")
	loader := NewLoader(nil)
	initial, err := loader.Load(context.Background(), path)
	require.NoError(t, err)

	holder := NewHolder(initial)
	var notified atomic.Int32
	holder.Subscribe(func(domain.GatewayConfig) { notified.Add(1) })

	watcher := NewWatcher(path, loader, holder, nil)
	watcher.debounce = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watcher.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("registry:\n  namespace: second\n"), 0o600)
		return holder.Current().Registry.Namespace == "second"
	}, 5*time.Second, 50*time.Millisecond)
	require.GreaterOrEqual(t, notified.Load(), int32(1))

	require.NoError(t, os.WriteFile(path, []byte("server:\n  workers: -1\n"), 0o600))
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, "second", holder.Current().Registry.Namespace)
}

func TestRestartRequired(t *testing.T) {
	previous := Defaults()
	next := previous
	next.Server.ListenAddress = "127.0.0.1:1"
	next.Mailbox.Backend = "redis"
	next.Filters.ToolPattern = "x"
	require.Equal(t, []string{"server.listenAddress", "mailbox"}, restartRequired(previous, next))
}

func TestWatcher_KeepsOverridesAcrossReloads(t *testing.T) {
	path := writeConfig(t, "registry:\n  namespace: first\n")
	loader := NewLoader(nil)
	initial, err := loader.Load(context.Background(), path)
	require.NoError(t, err)

	pinNamespace := func(cfg *domain.GatewayConfig) { cfg.Registry.Namespace = "pinned" }
	initial, err = ApplyOverrides(initial, pinNamespace)
	require.NoError(t, err)
	holder := NewHolder(initial)

	watcher := NewWatcher(path, loader, holder, nil).WithOverrides(pinNamespace)
	watcher.debounce = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		watcher.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("registry:\n  namespace: second\nfilters:\n  toolPattern: get\n"), 0o600)
		return holder.Current().Filters.ToolPattern == "get"
	}, 5*time.Second, 50*time.Millisecond)
	require.Equal(t, "pinned", holder.Current().Registry.Namespace)
}

func TestApplyOverrides_Validates(t *testing.T) {
	_, err := ApplyOverrides(Defaults(), func(cfg *domain.GatewayConfig) { cfg.Server.ListenAddress = "" })
	require.ErrorContains(t, err, "server.listenAddress is required")

	cfg, err := ApplyOverrides(Defaults())
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}
