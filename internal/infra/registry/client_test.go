package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

type fakeNacos struct {
	logins   atomic.Int64
	lists    atomic.Int64
	details  atomic.Int64
	lastList atomic.Value
	token    string
}

func (f *fakeNacos) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(loginPath, func(w http.ResponseWriter, r *http.Request) {
		f.logins.Add(1)
		if r.Method != http.MethodPost || r.ParseForm() != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("username") != "nacos" || r.PostForm.Get("password") != "secret" {
			http.Error(w, "bad credentials", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"accessToken":"` + f.token + `","tokenTtl":100}`))
	})
	mux.HandleFunc(listServerPath, func(w http.ResponseWriter, r *http.Request) {
		f.lists.Add(1)
		if f.token != "" && r.Header.Get(tokenHeader) != f.token {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		f.lastList.Store(r.URL.Query().Encode())
		_, _ = w.Write([]byte(`{"code":0,"message":"success","data":{"totalCount":2,"pageNumber":1,"pagesAvailable":1,"pageItems":[
			{"name":"weather","description":"Weather","protocol":"mcp-streamable"},
			{"name":"local","description":"Local","protocol":"stdio"}]}}`))
	})
	mux.HandleFunc(serverPath, func(w http.ResponseWriter, r *http.Request) {
		f.details.Add(1)
		switch r.URL.Query().Get("mcpName") {
		case "weather":
			_, _ = w.Write([]byte(`{"code":0,"data":{"name":"weather","description":"Weather","protocol":"mcp-streamable",
				"backendEndpoints":[{"address":"10.0.0.1","port":8080}],
				"remoteServerConfig":{"exportPath":"/mcp"},
				"toolSpec":{"tools":[{"name":"forecast","description":"Forecast","inputSchema":{"type":"object"}}],
				"toolsMeta":{"forecast":{"enabled":true}}}}}`))
		case "broken":
			_, _ = w.Write([]byte(`{"code":30000,"message":"mcp server not found","data":null}`))
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	})
	return mux
}

func newTestClient(t *testing.T, nacos *fakeNacos, creds domain.Credentials, clock clockwork.Clock) *Client {
	t.Helper()
	server := httptest.NewServer(nacos.handler())
	t.Cleanup(server.Close)
	client, err := NewClient(ClientOptions{Address: server.URL, Credentials: creds, Clock: clock})
	require.NoError(t, err)
	return client
}

func TestClient_ListServers(t *testing.T) {
	nacos := &fakeNacos{}
	client := newTestClient(t, nacos, domain.Credentials{}, nil)

	page, err := client.ListServers(context.Background(), "public", 1, domain.DefaultRegistryPageSize)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	want := []domain.ServerSummary{
		{Name: "weather", Description: "Weather", Protocol: domain.ProtocolStreamable},
		{Name: "local", Description: "Local", Protocol: "stdio"},
	}
	if diff := cmp.Diff(want, page.Servers); diff != "" {
		t.Fatalf("servers mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, nacos.lastList.Load().(string), "pageSize=65535")
	assert.Contains(t, nacos.lastList.Load().(string), "namespaceId=public")
	assert.Equal(t, int64(0), nacos.logins.Load())
}

func TestClient_GetServerDetail(t *testing.T) {
	client := newTestClient(t, &fakeNacos{}, domain.Credentials{}, nil)

	record, err := client.GetServerDetail(context.Background(), "public", "weather", "")
	require.NoError(t, err)
	assert.Equal(t, "weather", record.Name)
	assert.Equal(t, domain.ProtocolStreamable, record.Protocol)
	assert.Equal(t, "/mcp", record.ExportPath)
	assert.Equal(t, []domain.Endpoint{{Address: "10.0.0.1", Port: 8080}}, record.BackendEndpoints)
	require.True(t, record.HasEmbeddedTools())
	assert.Equal(t, "forecast", record.ToolSpec.Tools[0].Name)
	assert.JSONEq(t, `{"type":"object"}`, string(record.ToolSpec.Tools[0].InputSchema))
	assert.JSONEq(t, `{"enabled":true}`, string(record.ToolSpec.ToolsMeta["forecast"]))
}

func TestClient_Errors(t *testing.T) {
	client := newTestClient(t, &fakeNacos{}, domain.Credentials{}, nil)

	_, err := client.GetServerDetail(context.Background(), "public", "broken", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRegistry))
	assert.Contains(t, err.Error(), "30000")

	_, err = client.GetServerDetail(context.Background(), "public", "missing", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRegistry))
	assert.Contains(t, err.Error(), "500")
}

func TestClient_LoginTokenReusedUntilStale(t *testing.T) {
	nacos := &fakeNacos{token: "tok-1"}
	clock := clockwork.NewFakeClock()
	client := newTestClient(t, nacos, domain.Credentials{Username: "nacos", Password: "secret"}, clock)

	_, err := client.ListServers(context.Background(), "public", 1, 10)
	require.NoError(t, err)
	_, err = client.ListServers(context.Background(), "public", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nacos.logins.Load())

	clock.Advance(95 * time.Second)
	_, err = client.ListServers(context.Background(), "public", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), nacos.logins.Load())
}

func TestClient_LoginFailure(t *testing.T) {
	nacos := &fakeNacos{token: "tok-1"}
	client := newTestClient(t, nacos, domain.Credentials{Username: "nacos", Password: "wrong"}, nil)

	_, err := client.ListServers(context.Background(), "public", 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRegistry))
	assert.Equal(t, int64(0), nacos.lists.Load())
}

func TestNormalizeAddress(t *testing.T) {
	got, err := normalizeAddress("127.0.0.1:8848")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8848", got)

	got, err = normalizeAddress("https://nacos.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://nacos.example.com", got)

	_, err = normalizeAddress("  ")
	require.Error(t, err)
}

func TestFactory_ReusesClients(t *testing.T) {
	factory := NewFactory(FactoryOptions{})
	a, err := factory.Registry("127.0.0.1:8848", domain.Credentials{Username: "u"})
	require.NoError(t, err)
	b, err := factory.Registry("127.0.0.1:8848", domain.Credentials{Username: "u"})
	require.NoError(t, err)
	c, err := factory.Registry("127.0.0.1:8848", domain.Credentials{Username: "v"})
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}
