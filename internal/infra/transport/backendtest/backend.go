// Package backendtest starts real MCP servers over HTTP for tests.
package backendtest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// Kind selects the wire transport a backend serves.
type Kind string

const (
	KindSSE        Kind = "sse"
	KindStreamable Kind = "streamable"
)

// EchoInput is the argument shape of the echo tool.
type EchoInput struct {
	Text string `json:"text"`
}

// Backend is a running MCP server with call counters.
type Backend struct {
	Server *httptest.Server
	Calls  atomic.Int64
}

// Start serves an MCP server exposing echo, multi and fail tools plus any extra tool names.
func Start(t *testing.T, kind Kind, extraTools ...string) *Backend {
	t.Helper()

	backend := &Backend{}
	server := mcp.NewServer(&mcp.Implementation{Name: "backend", Version: "0.1.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{Name: "echo", Description: "Echo text"},
		func(ctx context.Context, req *mcp.CallToolRequest, in EchoInput) (*mcp.CallToolResult, any, error) {
			backend.Calls.Add(1)
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "echo: " + in.Text}}}, nil, nil
		})
	server.AddTool(&mcp.Tool{
		Name:        "multi",
		Description: "Mixed content",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		backend.Calls.Add(1)
		return &mcp.CallToolResult{Content: []mcp.Content{
			&mcp.TextContent{Text: "part one"},
			&mcp.ImageContent{Data: []byte{0x89, 0x50}, MIMEType: "image/png"},
			&mcp.TextContent{Text: "part two"},
		}}, nil
	})
	server.AddTool(&mcp.Tool{
		Name:        "fail",
		Description: "Always reports a tool error",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		backend.Calls.Add(1)
		return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: "tool failed"}}}, nil
	})
	for _, name := range extraTools {
		server.AddTool(&mcp.Tool{
			Name:        name,
			Description: "Extra tool " + name,
			InputSchema: &jsonschema.Schema{Type: "object"},
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			backend.Calls.Add(1)
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: req.Params.Name}}}, nil
		})
	}

	var handler http.Handler
	switch kind {
	case KindSSE:
		handler = mcp.NewSSEHandler(func(*http.Request) *mcp.Server { return server }, nil)
	default:
		handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return server
		}, &mcp.StreamableHTTPOptions{JSONResponse: true})
	}

	backend.Server = httptest.NewServer(handler)
	t.Cleanup(backend.Server.Close)
	return backend
}

// URL returns the backend base URL.
func (b *Backend) URL() string {
	return b.Server.URL + "/"
}

// Endpoint returns the registry endpoint describing this backend.
func (b *Backend) Endpoint(t *testing.T) domain.Endpoint {
	t.Helper()
	parsed, err := url.Parse(b.Server.URL)
	if err != nil {
		t.Fatalf("parse backend url: %v", err)
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		t.Fatalf("parse backend port: %v", err)
	}
	return domain.Endpoint{Address: parsed.Hostname(), Port: port}
}

// Record describes the backend as a registry server record without an embedded catalog.
func (b *Backend) Record(t *testing.T, name string, protocol domain.ProtocolTag) domain.ServerRecord {
	t.Helper()
	return domain.ServerRecord{
		Name:             name,
		Description:      fmt.Sprintf("%s backend", name),
		Protocol:         protocol,
		BackendEndpoints: []domain.Endpoint{b.Endpoint(t)},
		ExportPath:       "/",
	}
}
