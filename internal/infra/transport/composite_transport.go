package transport

import (
	"context"
	"fmt"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// CompositeTransport selects the backend dialer by protocol tag.
type CompositeTransport struct {
	sse            domain.Dialer
	streamableHTTP domain.Dialer
}

type CompositeTransportOptions struct {
	SSE            domain.Dialer
	StreamableHTTP domain.Dialer
}

func NewCompositeTransport(opts CompositeTransportOptions) *CompositeTransport {
	if opts.SSE == nil {
		panic("composite transport requires sse transport")
	}
	if opts.StreamableHTTP == nil {
		panic("composite transport requires streamable http transport")
	}
	return &CompositeTransport{
		sse:            opts.SSE,
		streamableHTTP: opts.StreamableHTTP,
	}
}

func (t *CompositeTransport) Dial(ctx context.Context, protocol domain.ProtocolTag, url string) (domain.BackendSession, error) {
	switch protocol {
	case domain.ProtocolSSE:
		return t.sse.Dial(ctx, url)
	case domain.ProtocolStreamable:
		return t.streamableHTTP.Dial(ctx, url)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProtocol, protocol)
	}
}

var _ domain.BackendDialer = (*CompositeTransport)(nil)
