package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/transport"
)

// BasicRouter resolves a server in a catalog snapshot and proxies one tool call to it.
// Every session it opens is closed before Call returns.
type BasicRouter struct {
	dialer  domain.BackendDialer
	pick    transport.EndpointPicker
	timeout time.Duration
	logger  *zap.Logger
}

type Options struct {
	// Picker chooses one backend endpoint. Defaults to a uniform random pick.
	Picker  transport.EndpointPicker
	Timeout time.Duration
	Logger  *zap.Logger
}

func NewBasicRouter(dialer domain.BackendDialer, opts Options) *BasicRouter {
	if dialer == nil {
		panic("router requires a backend dialer")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Duration(domain.DefaultCommandTimeoutSeconds) * time.Second
	}
	pick := opts.Picker
	if pick == nil {
		pick = transport.RandomEndpoint
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BasicRouter{
		dialer:  dialer,
		pick:    pick,
		timeout: timeout,
		logger:  logger.Named("router"),
	}
}

func (r *BasicRouter) Call(ctx context.Context, servers []domain.ServerRecord, serverName, toolName string, arguments map[string]any) domain.CallOutcome {
	start := time.Now()
	logger := r.logger.With(telemetry.ServerField(serverName), telemetry.ToolField(toolName))

	server, ok := findServer(servers, serverName)
	if !ok {
		err := domain.E(domain.CodeNotFound, "router.resolve", fmt.Sprintf("server %q not found", serverName), domain.ErrServerNotFound)
		r.logRouteError(logger, start, domain.OutcomeServerNotFound, err)
		return domain.Failed(domain.OutcomeServerNotFound, err)
	}
	if !server.Protocol.Supported() {
		err := domain.E(domain.CodeFailedPrecond, "router.dispatch", fmt.Sprintf("server %q uses protocol %q", serverName, server.Protocol), domain.ErrUnsupportedProtocol)
		r.logRouteError(logger, start, domain.OutcomeUnsupportedProtocol, err)
		return domain.Failed(domain.OutcomeUnsupportedProtocol, err)
	}

	url, err := transport.ResolveURL(server, r.pick)
	if err != nil {
		r.logRouteError(logger, start, domain.OutcomeBackendUnavailable, err)
		return domain.Failed(domain.OutcomeBackendUnavailable, err)
	}
	logger = logger.With(telemetry.URLField(url))

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	session, err := r.dialer.Dial(callCtx, server.Protocol, url)
	if err != nil {
		kind := domain.OutcomeTransportFailure
		if errors.Is(err, domain.ErrUnsupportedProtocol) {
			kind = domain.OutcomeUnsupportedProtocol
		}
		r.logRouteError(logger, start, kind, err)
		return domain.Failed(kind, domain.Wrap(domain.CodeUnavailable, "router.dial", err))
	}

	result, callErr := session.CallTool(callCtx, toolName, arguments)
	closeErr := session.Close()

	if callErr != nil {
		var group *multierror.Error
		group = multierror.Append(group, fmt.Errorf("call tool: %w", callErr))
		if closeErr != nil {
			group = multierror.Append(group, fmt.Errorf("close session: %w", closeErr))
		}
		for _, member := range group.Errors {
			r.logRouteError(logger, start, domain.OutcomeTransportFailure, member)
		}
		return domain.Failed(domain.OutcomeTransportFailure, domain.E(domain.CodeUnavailable, "router.call", "", group.ErrorOrNil()))
	}
	if closeErr != nil {
		logger.Warn("close backend session failed", zap.Error(closeErr))
	}

	logger.Debug("tool call routed",
		telemetry.DurationField(time.Since(start)),
		zap.Int("textParts", len(result.Text)),
		zap.Bool("isError", result.IsError),
	)
	return domain.Succeeded(result)
}

// findServer returns the first record with a matching name.
func findServer(servers []domain.ServerRecord, name string) (domain.ServerRecord, bool) {
	for _, server := range servers {
		if server.Name == name {
			return server, true
		}
	}
	return domain.ServerRecord{}, false
}

func (r *BasicRouter) logRouteError(logger *zap.Logger, start time.Time, kind domain.OutcomeKind, err error) {
	logger.Warn("route failed",
		telemetry.EventField(telemetry.EventRouteError),
		telemetry.OutcomeField(string(kind)),
		telemetry.DurationField(time.Since(start)),
		zap.Error(err),
	)
}

var _ domain.ToolRouter = (*BasicRouter)(nil)
