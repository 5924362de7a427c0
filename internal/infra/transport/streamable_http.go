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

// StreamableHTTPTransport dials backends registered as mcp-streamable.
type StreamableHTTPTransport struct {
	logger     *zap.Logger
	httpClient *http.Client
	headers    map[string]string
	maxRetries int
}

type StreamableHTTPTransportOptions struct {
	Logger     *zap.Logger
	HTTPClient *http.Client
	Headers    map[string]string
	MaxRetries int
}

func NewStreamableHTTPTransport(opts StreamableHTTPTransportOptions) *StreamableHTTPTransport {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamableHTTPTransport{
		logger:     logger.Named("streamable_http"),
		httpClient: opts.HTTPClient,
		headers:    opts.Headers,
		maxRetries: effectiveMaxRetries(opts.MaxRetries),
	}
}

func (t *StreamableHTTPTransport) Dial(ctx context.Context, url string) (domain.BackendSession, error) {
	endpoint := strings.TrimSpace(url)
	if endpoint == "" {
		return nil, errors.New("streamable http endpoint is required")
	}
	client, err := buildHTTPClient(t.httpClient, t.headers)
	if err != nil {
		return nil, err
	}
	transport := &mcp.StreamableClientTransport{
		Endpoint:   endpoint,
		HTTPClient: client,
		MaxRetries: t.maxRetries,
	}
	return connect(ctx, "streamable http", endpoint, transport, t.logger)
}

func effectiveMaxRetries(value int) int {
	if value == 0 {
		return domain.DefaultStreamableHTTPMaxRetries
	}
	return value
}

var _ domain.Dialer = (*StreamableHTTPTransport)(nil)
