package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// SSETransport dials backends registered as mcp-sse.
type SSETransport struct {
	logger     *zap.Logger
	httpClient *http.Client
	headers    map[string]string
}

type SSETransportOptions struct {
	Logger     *zap.Logger
	HTTPClient *http.Client
	Headers    map[string]string
}

func NewSSETransport(opts SSETransportOptions) *SSETransport {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SSETransport{
		logger:     logger.Named("sse"),
		httpClient: opts.HTTPClient,
		headers:    opts.Headers,
	}
}

func (t *SSETransport) Dial(ctx context.Context, url string) (domain.BackendSession, error) {
	endpoint := strings.TrimSpace(url)
	if endpoint == "" {
		return nil, errors.New("sse endpoint is required")
	}
	client, err := buildHTTPClient(t.httpClient, t.headers)
	if err != nil {
		return nil, err
	}
	transport := &mcp.SSEClientTransport{
		Endpoint:   endpoint,
		HTTPClient: client,
	}
	return connect(ctx, "sse", endpoint, transport, t.logger)
}

var _ domain.Dialer = (*SSETransport)(nil)
