package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

const observabilityShutdownTimeout = 5 * time.Second

// HTTPServerOptions configures the observability listener that runs beside the gateway.
type HTTPServerOptions struct {
	Addr          string
	EnableMetrics bool
	EnableHealthz bool
	Health        *HealthTracker
	Registry      prometheus.Gatherer
}

// Handler mounts /metrics and /healthz as enabled.
func Handler(opts HTTPServerOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if opts.EnableMetrics {
		gatherer := opts.Registry
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	if opts.EnableHealthz {
		r.Get("/healthz", healthHandler(opts.Health))
	}
	return r
}

// StartHTTPServer serves the observability endpoints until ctx ends.
// It returns at once when both endpoints are disabled, and fails fast when the address is taken.
func StartHTTPServer(ctx context.Context, opts HTTPServerOptions, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !opts.EnableMetrics && !opts.EnableHealthz {
		return nil
	}
	addr := opts.Addr
	if addr == "" {
		addr = domain.DefaultObservabilityListenAddress
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("observability listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           Handler(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("observability server listening",
			zap.String("addr", listener.Addr().String()),
			zap.Bool("metrics", opts.EnableMetrics),
			zap.Bool("healthz", opts.EnableHealthz),
		)
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("observability server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), observabilityShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("observability server shutdown error", zap.Error(err))
		return err
	}
	logger.Info("observability server stopped")
	return nil
}

func healthHandler(tracker *HealthTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		report := HealthReport{Status: "ok"}
		if tracker != nil {
			report = tracker.Report()
		}
		status := http.StatusOK
		if report.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	}
}
