package frontend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/mcpcodec"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
)

// Variant selects the wire flavour a response is shaped for.
type Variant int

const (
	// VariantStreamable answers inline on the POST that carried the request.
	VariantStreamable Variant = iota
	// VariantChannelPair answers through the session mailbox and the push channel.
	VariantChannelPair
)

func (v Variant) String() string {
	if v == VariantChannelPair {
		return "channel_pair"
	}
	return "streamable"
}

const (
	methodInitialize  = "initialize"
	methodInitialized = "notifications/initialized"
	methodToolsList   = "tools/list"
	methodToolsCall   = "tools/call"
)

// Dispatcher answers JSON-RPC methods against the aggregated catalog.
type Dispatcher struct {
	catalog domain.CatalogSource
	router  domain.ToolRouter
	pool    *Pool
	logger  *zap.Logger
}

type DispatcherOptions struct {
	Catalog domain.CatalogSource
	Router  domain.ToolRouter
	Pool    *Pool
	Logger  *zap.Logger
}

func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	if opts.Catalog == nil || opts.Router == nil {
		panic("dispatcher requires a catalog and a router")
	}
	pool := opts.Pool
	if pool == nil {
		pool = NewPool(domain.DefaultWorkers, nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		catalog: opts.Catalog,
		router:  opts.Router,
		pool:    pool,
		logger:  logger.Named("dispatcher"),
	}
}

// Dispatch answers one request. It returns false for notifications, which get no response.
func (d *Dispatcher) Dispatch(ctx context.Context, variant Variant, req Request) (Response, bool) {
	id := req.responseID()
	switch req.Method {
	case methodInitialized:
		return Response{}, false
	case methodInitialize:
		return rpcOK(id, initializePayload(variant)), true
	case methodToolsList:
		result, err := d.pooled(ctx, func(ctx context.Context) (any, error) {
			return d.listTools(ctx)
		})
		return d.reply(id, req.Method, result, err), true
	case methodToolsCall:
		result, err := d.pooled(ctx, func(ctx context.Context) (any, error) {
			return d.callTool(ctx, variant, req.Params)
		})
		return d.reply(id, req.Method, result, err), true
	default:
		if req.IsNotification() {
			return Response{}, false
		}
		d.logger.Debug("unhandled method answered with empty result", telemetry.MethodField(req.Method))
		return rpcOK(id, emptyResult{}), true
	}
}

func (d *Dispatcher) pooled(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	var result any
	err := d.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

func (d *Dispatcher) reply(id json.RawMessage, method string, result any, err error) Response {
	if err != nil {
		protoErr := domain.ProtocolErrorFrom(err)
		d.logger.Warn("request failed",
			telemetry.MethodField(method),
			zap.Int64("code", protoErr.Code),
			zap.Error(err),
		)
		return rpcError(id, protoErr)
	}
	return rpcOK(id, result)
}

func (d *Dispatcher) listTools(ctx context.Context) (toolsListResult, error) {
	servers, err := d.catalog.Servers(ctx)
	if err != nil {
		return toolsListResult{}, err
	}
	tools, skipped := mcpcodec.VirtualTools(servers)
	for _, skip := range skipped {
		d.logger.Warn("tool name cannot be namespaced",
			telemetry.EventField(telemetry.EventToolSkipped),
			telemetry.ServerField(skip.Server),
			telemetry.ToolField(skip.Tool),
		)
	}
	return toolsListResult{Tools: tools}, nil
}

func (d *Dispatcher) callTool(ctx context.Context, variant Variant, raw json.RawMessage) (toolsCallResult, error) {
	var params toolsCallParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return toolsCallResult{}, domain.E(domain.CodeInvalidArgument, "frontend.tools_call", "invalid tools/call params", errors.Join(domain.ErrInvalidRequest, err))
		}
	}
	serverName, toolName, err := domain.SplitVirtualToolName(params.Name)
	if err != nil {
		return toolsCallResult{}, err
	}
	arguments := params.Arguments
	if arguments == nil {
		arguments = map[string]any{}
	}

	servers, err := d.catalog.Servers(ctx)
	if err != nil {
		return toolsCallResult{}, err
	}
	outcome := d.router.Call(ctx, servers, serverName, toolName, arguments)
	if !outcome.OK() {
		return toolsCallResult{}, fmt.Errorf("%s: %w", outcome.Kind, outcome.Error())
	}

	content := mcpcodec.TextContents(outcome.Result)
	if variant == VariantStreamable {
		content = mcpcodec.JoinedTextContent(outcome.Result)
	}
	return toolsCallResult{Content: content, IsError: outcome.Result.IsError}, nil
}

func initializePayload(variant Variant) initializeResult {
	var capabilities any = streamableCapabilities{Tools: map[string]any{}}
	if variant == VariantChannelPair {
		capabilities = channelPairCapabilities{
			Experimental: map[string]any{},
		}
	}
	return initializeResult{
		ProtocolVersion: domain.DefaultProtocolVersion,
		Capabilities:    capabilities,
		ServerInfo: serverInfo{
			Name:    domain.DefaultServerName,
			Version: domain.DefaultServerVersion,
		},
	}
}
