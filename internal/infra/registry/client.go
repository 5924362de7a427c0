package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

const (
	loginPath      = "/nacos/v3/auth/user/login"
	listServerPath = "/nacos/v3/admin/ai/mcp/list"
	serverPath     = "/nacos/v3/admin/ai/mcp"
	tokenHeader    = "accessToken"
	maxErrorBody   = 4 << 10
)

// Client talks to the Nacos v3 AI admin API.
type Client struct {
	baseURL    string
	creds      domain.Credentials
	httpClient *http.Client
	clock      clockwork.Clock
	logger     *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type ClientOptions struct {
	Address     string
	Credentials domain.Credentials
	HTTPClient  *http.Client
	Timeout     time.Duration
	Clock       clockwork.Clock
	Logger      *zap.Logger
}

func NewClient(opts ClientOptions) (*Client, error) {
	base, err := normalizeAddress(opts.Address)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = time.Duration(domain.DefaultRegistryTimeoutSeconds) * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    base,
		creds:      opts.Credentials,
		httpClient: httpClient,
		clock:      clock,
		logger:     logger.Named("registry"),
	}, nil
}

func normalizeAddress(address string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(address), "/")
	if trimmed == "" {
		return "", domain.E(domain.CodeInvalidArgument, "registry.address", "registry address is required", nil)
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return "", domain.E(domain.CodeInvalidArgument, "registry.address", fmt.Sprintf("invalid registry address %q", address), err)
	}
	return trimmed, nil
}

type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type statusCarrier interface {
	status() (int, string)
}

func (e *envelope[T]) status() (int, string) {
	return e.Code, e.Message
}

type rawPage struct {
	TotalCount     int                    `json:"totalCount"`
	PageNumber     int                    `json:"pageNumber"`
	PagesAvailable int                    `json:"pagesAvailable"`
	PageItems      []domain.ServerSummary `json:"pageItems"`
}

type rawServerDetail struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Protocol           string            `json:"protocol"`
	BackendEndpoints   []domain.Endpoint `json:"backendEndpoints"`
	RemoteServerConfig *struct {
		ExportPath string `json:"exportPath"`
	} `json:"remoteServerConfig"`
	ToolSpec *domain.ToolSpec `json:"toolSpec"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
	TokenTTL    int64  `json:"tokenTtl"`
}

// ListServers returns one page of servers registered in the namespace.
func (c *Client) ListServers(ctx context.Context, namespace string, pageNo, pageSize int) (domain.ServerPage, error) {
	query := url.Values{}
	query.Set("namespaceId", namespace)
	query.Set("mcpName", "")
	query.Set("search", "blur")
	query.Set("pageNo", strconv.Itoa(pageNo))
	query.Set("pageSize", strconv.Itoa(pageSize))

	var out envelope[rawPage]
	if err := c.get(ctx, "list_servers", listServerPath, query, &out); err != nil {
		return domain.ServerPage{}, err
	}
	return domain.ServerPage{
		TotalCount:     out.Data.TotalCount,
		PageNumber:     out.Data.PageNumber,
		PagesAvailable: out.Data.PagesAvailable,
		Servers:        out.Data.PageItems,
	}, nil
}

// GetServerDetail resolves endpoints, export path and tool catalog for one server.
func (c *Client) GetServerDetail(ctx context.Context, namespace, name, version string) (domain.ServerRecord, error) {
	query := url.Values{}
	query.Set("namespaceId", namespace)
	query.Set("mcpName", name)
	query.Set("version", version)

	var out envelope[rawServerDetail]
	if err := c.get(ctx, "get_server_detail", serverPath, query, &out); err != nil {
		return domain.ServerRecord{}, err
	}
	raw := out.Data
	record := domain.ServerRecord{
		Name:             raw.Name,
		Description:      raw.Description,
		Protocol:         domain.ProtocolTag(raw.Protocol),
		BackendEndpoints: raw.BackendEndpoints,
		ToolSpec:         raw.ToolSpec,
	}
	if record.Name == "" {
		record.Name = name
	}
	if raw.RemoteServerConfig != nil {
		record.ExportPath = raw.RemoteServerConfig.ExportPath
	}
	return record, nil
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return domain.E(domain.CodeInternal, "registry."+op, "build request", err)
	}
	if token != "" {
		req.Header.Set(tokenHeader, token)
	}
	c.logger.Debug("registry request", zap.String("op", op), zap.String("path", path), zap.String("namespace", query.Get("namespaceId")))
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrRegistry, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s: status %d: %s", domain.ErrRegistry, op, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %w", domain.ErrRegistry, op, err)
	}
	if carrier, ok := out.(statusCarrier); ok {
		if code, message := carrier.status(); code != 0 {
			return fmt.Errorf("%w: %s: code %d: %s", domain.ErrRegistry, op, code, message)
		}
	}
	return nil
}

// accessToken logs in when credentials are set and the cached token is missing or stale.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.creds.Username == "" {
		return "", nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.token != "" && now.Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("username", c.creds.Username)
	form.Set("password", c.creds.Password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", domain.E(domain.CodeInternal, "registry.login", "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var login loginResponse
	if err := c.do(req, "login", &login); err != nil {
		return "", err
	}
	if login.AccessToken == "" {
		return "", fmt.Errorf("%w: login: empty access token", domain.ErrRegistry)
	}
	ttl := time.Duration(login.TokenTTL) * time.Second
	// refresh at 90% of the advertised lifetime
	c.token = login.AccessToken
	c.tokenExpiry = now.Add(ttl - ttl/10)
	c.logger.Debug("registry login succeeded", zap.Duration("ttl", ttl))
	return c.token, nil
}

var _ domain.Registry = (*Client)(nil)
