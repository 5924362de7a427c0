package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/mcpcodec"
)

const clientName = "nacos-mcp-gateway"

// clientSession adapts an initialized go-sdk client session to domain.BackendSession.
type clientSession struct {
	session *mcp.ClientSession
	url     string
	logger  *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// connect runs the MCP initialize handshake over the given transport.
func connect(ctx context.Context, kind string, url string, transport mcp.Transport, logger *zap.Logger) (*clientSession, error) {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    clientName,
		Version: domain.DefaultServerVersion,
	}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s %s: %w", domain.ErrTransport, kind, url, err)
	}
	logger.Debug("backend session initialized", zap.String("url", url), zap.String("transport", kind))
	return &clientSession{
		session: session,
		url:     url,
		logger:  logger,
	}, nil
}

func (s *clientSession) ListTools(ctx context.Context) ([]domain.ToolRecord, error) {
	var tools []domain.ToolRecord
	params := &mcp.ListToolsParams{}
	for {
		result, err := s.session.ListTools(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("%w: list tools at %s: %w", domain.ErrTransport, s.url, err)
		}
		for _, tool := range result.Tools {
			record, err := mcpcodec.ToolFromMCP(tool)
			if err != nil {
				return nil, err
			}
			tools = append(tools, record)
		}
		if result.NextCursor == "" {
			return tools, nil
		}
		params = &mcp.ListToolsParams{Cursor: result.NextCursor}
	}
}

func (s *clientSession) CallTool(ctx context.Context, name string, arguments map[string]any) (domain.CallResult, error) {
	if arguments == nil {
		arguments = map[string]any{}
	}
	result, err := s.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: arguments,
	})
	if err != nil {
		return domain.CallResult{}, fmt.Errorf("%w: call tool %q at %s: %w", domain.ErrTransport, name, s.url, err)
	}
	return mcpcodec.ResultFromMCP(result), nil
}

func (s *clientSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.session.Close()
	})
	return s.closeErr
}

func buildHTTPClient(base *http.Client, headers map[string]string) (*http.Client, error) {
	if base == nil {
		base = &http.Client{}
	}
	if len(headers) == 0 {
		return base, nil
	}
	wire := http.Header{}
	for key, value := range headers {
		name := http.CanonicalHeaderKey(strings.TrimSpace(key))
		if name == "" {
			return nil, fmt.Errorf("http headers contain empty key")
		}
		wire.Set(name, value)
	}
	next := base.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	client := *base
	client.Transport = &headerRoundTripper{base: next, headers: wire}
	return &client, nil
}

type headerRoundTripper struct {
	base    http.RoundTripper
	headers http.Header
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for key, values := range h.headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return h.base.RoundTrip(req)
}
