package frontend

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/aggregator"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/catalogcache"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/mailbox"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/router"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/transport"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/transport/backendtest"
)

type oneServerRegistry struct {
	server domain.ServerRecord
}

func (r oneServerRegistry) ListServers(context.Context, string, int, int) (domain.ServerPage, error) {
	return domain.ServerPage{TotalCount: 1, PageNumber: 1, PagesAvailable: 1, Servers: []domain.ServerSummary{{
		Name:        r.server.Name,
		Description: r.server.Description,
		Protocol:    r.server.Protocol,
	}}}, nil
}

func (r oneServerRegistry) GetServerDetail(context.Context, string, string, string) (domain.ServerRecord, error) {
	return r.server.Clone(), nil
}

func (r oneServerRegistry) Registry(string, domain.Credentials) (domain.Registry, error) {
	return r, nil
}

type gateway struct {
	server  *httptest.Server
	backend *backendtest.Backend
}

// startGateway wires a gateway in front of one registered "weather" server exposing "forecast".
func startGateway(t *testing.T, tokens ...string) gateway {
	t.Helper()
	backend := backendtest.Start(t, backendtest.KindStreamable, "forecast")
	record := backend.Record(t, "weather", domain.ProtocolStreamable)
	record.Description = "Weather service"
	record.ToolSpec = &domain.ToolSpec{Tools: []domain.ToolRecord{{
		Name:        "forecast",
		Description: "Daily forecast",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}}}`),
	}}}

	dialer := transport.NewCompositeTransport(transport.CompositeTransportOptions{
		SSE:            transport.NewSSETransport(transport.SSETransportOptions{}),
		StreamableHTTP: transport.NewStreamableHTTPTransport(transport.StreamableHTTPTransportOptions{}),
	})
	agg := aggregator.New(aggregator.Options{Registries: oneServerRegistry{server: record}, Dialer: dialer})
	catalog := catalogcache.NewCatalog(catalogcache.New(catalogcache.Options{}), agg, func() (domain.CatalogQuery, time.Duration) {
		return domain.CatalogQuery{Namespace: "public"}, time.Minute
	})
	dispatcher := NewDispatcher(DispatcherOptions{
		Catalog: catalog,
		Router:  router.NewBasicRouter(dialer, router.Options{Timeout: 10 * time.Second}),
		Pool:    NewPool(2, nil),
	})
	box := mailbox.New(mailbox.Options{PollInterval: 10 * time.Millisecond})
	srv := NewServer(ServerOptions{
		Dispatcher: dispatcher,
		Mailbox:    box,
		Tokens:     func() []string { return tokens },
	})
	httpServer := httptest.NewServer(srv)
	t.Cleanup(httpServer.Close)
	return gateway{server: httpServer, backend: backend}
}

func postJSON(t *testing.T, url, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		req.Header[key] = values
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_StreamableEndToEnd(t *testing.T) {
	gw := startGateway(t)

	resp := postJSON(t, gw.server.URL+"/mcp", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sessionID := resp.Header.Get("Mcp-Session-Id")
	require.Len(t, sessionID, 32)
	require.NotContains(t, sessionID, "-")

	resp = postJSON(t, gw.server.URL+"/mcp", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = postJSON(t, gw.server.URL+"/mcp", `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode(t, resp)
	tools := list["result"].(map[string]any)["tools"].([]any)
	require.Len(t, tools, 1)
	require.Equal(t, "weather___forecast", tools[0].(map[string]any)["name"])
	require.Equal(t, "Weather service. Daily forecast", tools[0].(map[string]any)["description"])

	resp = postJSON(t, gw.server.URL+"/mcp", `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"weather___forecast","arguments":{"city":"NY"}}}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	call := decode(t, resp)
	require.Equal(t, map[string]any{
		"content": []any{map[string]any{"type": "text", "text": "forecast"}},
		"isError": false,
	}, call["result"])
	require.Equal(t, int64(1), gw.backend.Calls.Load())
}

func TestServer_StreamableGetIsRejected(t *testing.T) {
	gw := startGateway(t)

	resp, err := http.Get(gw.server.URL + "/mcp")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	body := decode(t, resp)
	require.Nil(t, body["id"])
	require.Equal(t, float64(-32000), body["error"].(map[string]any)["code"])
	require.Equal(t, streamUnsupported, body["error"].(map[string]any)["message"])
}

func TestServer_BearerAuth(t *testing.T) {
	gw := startGateway(t, "secret")
	body := `{"jsonrpc":"2.0","id":1,"method":"initialize"}`

	resp := postJSON(t, gw.server.URL+"/mcp", body, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, gw.server.URL+"/mcp", body, http.Header{"Authorization": {"Bearer wrong"}})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, gw.server.URL+"/mcp", body, http.Header{"Authorization": {"Bearer secret"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_MalformedBody(t *testing.T) {
	gw := startGateway(t)

	resp := postJSON(t, gw.server.URL+"/mcp", `{not json`, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, float64(domain.ErrCodeParseError), decode(t, resp)["error"].(map[string]any)["code"])
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, reader *bufio.Reader) sseEvent {
	t.Helper()
	var event sseEvent
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event.name != "" {
				return event
			}
		case strings.HasPrefix(line, "event: "):
			event.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			event.data += strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestServer_ChannelPairEndToEnd(t *testing.T) {
	gw := startGateway(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gw.server.URL+"/sse", nil)
	require.NoError(t, err)
	stream, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))
	reader := bufio.NewReader(stream.Body)

	endpoint := readEvent(t, reader)
	require.Equal(t, "endpoint", endpoint.name)
	require.True(t, strings.HasPrefix(endpoint.data, "messages/?session_id="))
	commandURL := gw.server.URL + "/" + endpoint.data

	resp := postJSON(t, commandURL, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	message := readEvent(t, reader)
	require.Equal(t, "message", message.name)
	require.Contains(t, message.data, `"listChanged":false`)

	resp = postJSON(t, commandURL, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = postJSON(t, commandURL, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"weather___forecast","arguments":{"city":"NY"}}}`, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	message = readEvent(t, reader)
	require.Equal(t, "message", message.name)
	require.JSONEq(t, `{"jsonrpc":"2.0","id":2,"result":{"content":[{"type":"text","text":"forecast"}],"isError":false}}`, message.data)

	resp = postJSON(t, commandURL, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"nope"}}`, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	message = readEvent(t, reader)
	require.Contains(t, message.data, `"code":-32602`)
}

func TestServer_MessagesWithoutSessionAreAccepted(t *testing.T) {
	gw := startGateway(t)

	resp := postJSON(t, gw.server.URL+"/messages/", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestWriteEvent_SplitsLines(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, writeEvent(&buf, "message", []byte("a\nb")))
	require.Equal(t, "event: message\ndata: a\ndata: b\n\n", buf.String())
}
