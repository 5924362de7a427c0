package registry

import (
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// Factory hands out one client per registry address and credential pair so login tokens are reused.
type Factory struct {
	httpClient *http.Client
	timeout    time.Duration
	clock      clockwork.Clock
	logger     *zap.Logger

	mu      sync.Mutex
	clients map[clientKey]*Client
}

type FactoryOptions struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Clock      clockwork.Clock
	Logger     *zap.Logger
}

type clientKey struct {
	address  string
	username string
	password string
}

func NewFactory(opts FactoryOptions) *Factory {
	return &Factory{
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		clock:      opts.Clock,
		logger:     opts.Logger,
		clients:    make(map[clientKey]*Client),
	}
}

func (f *Factory) Registry(address string, creds domain.Credentials) (domain.Registry, error) {
	key := clientKey{address: address, username: creds.Username, password: creds.Password}

	f.mu.Lock()
	defer f.mu.Unlock()
	if client, ok := f.clients[key]; ok {
		return client, nil
	}
	client, err := NewClient(ClientOptions{
		Address:     address,
		Credentials: creds,
		HTTPClient:  f.httpClient,
		Timeout:     f.timeout,
		Clock:       f.clock,
		Logger:      f.logger,
	})
	if err != nil {
		return nil, err
	}
	f.clients[key] = client
	return client, nil
}

var _ domain.RegistryFactory = (*Factory)(nil)
