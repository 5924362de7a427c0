package domain

import "time"

// GatewayConfig is the normalized gateway configuration.
type GatewayConfig struct {
	Server        ServerConfig        `json:"server" yaml:"server" toml:"server"`
	Auth          AuthConfig          `json:"auth" yaml:"auth" toml:"auth"`
	Registry      RegistryConfig      `json:"registry" yaml:"registry" toml:"registry"`
	Filters       FilterConfig        `json:"filters" yaml:"filters" toml:"filters"`
	Cache         CacheConfig         `json:"cache" yaml:"cache" toml:"cache"`
	Mailbox       MailboxConfig       `json:"mailbox" yaml:"mailbox" toml:"mailbox"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability" toml:"observability"`
	Debug         bool                `json:"debug" yaml:"debug" toml:"debug"`
}

type ServerConfig struct {
	ListenAddress         string `json:"listenAddress" yaml:"listenAddress" toml:"listenAddress"`
	Workers               int    `json:"workers" yaml:"workers" toml:"workers"`
	CommandTimeoutSeconds int    `json:"commandTimeoutSeconds" yaml:"commandTimeoutSeconds" toml:"commandTimeoutSeconds"`
	// DiscoveryTimeoutSeconds bounds one live tools/list against a backend during aggregation.
	DiscoveryTimeoutSeconds int `json:"discoveryTimeoutSeconds" yaml:"discoveryTimeoutSeconds" toml:"discoveryTimeoutSeconds"`
}

type AuthConfig struct {
	Tokens []string `json:"tokens" yaml:"tokens" toml:"tokens"`
}

type RegistryConfig struct {
	Address               string `json:"address" yaml:"address" toml:"address"`
	Username              string `json:"username" yaml:"username" toml:"username"`
	Password              string `json:"password" yaml:"password" toml:"password"`
	Namespace             string `json:"namespace" yaml:"namespace" toml:"namespace"`
	RequestTimeoutSeconds int    `json:"requestTimeoutSeconds" yaml:"requestTimeoutSeconds" toml:"requestTimeoutSeconds"`
}

type FilterConfig struct {
	ServerPattern string `json:"serverPattern" yaml:"serverPattern" toml:"serverPattern"`
	ToolPattern   string `json:"toolPattern" yaml:"toolPattern" toml:"toolPattern"`
}

type CacheConfig struct {
	TTLSeconds int `json:"ttlSeconds" yaml:"ttlSeconds" toml:"ttlSeconds"`
}

type MailboxConfig struct {
	Backend            string `json:"backend" yaml:"backend" toml:"backend"`
	Path               string `json:"path" yaml:"path" toml:"path"`
	RedisAddress       string `json:"redisAddress" yaml:"redisAddress" toml:"redisAddress"`
	PollIntervalMillis int    `json:"pollIntervalMillis" yaml:"pollIntervalMillis" toml:"pollIntervalMillis"`
	SessionIdleSeconds int    `json:"sessionIdleSeconds" yaml:"sessionIdleSeconds" toml:"sessionIdleSeconds"`
}

type ObservabilityConfig struct {
	ListenAddress string `json:"listenAddress" yaml:"listenAddress" toml:"listenAddress"`
	Metrics       bool   `json:"metrics" yaml:"metrics" toml:"metrics"`
	Healthz       bool   `json:"healthz" yaml:"healthz" toml:"healthz"`
}

// CatalogQuery derives the aggregation query from the registry and filter settings.
func (c GatewayConfig) CatalogQuery() CatalogQuery {
	return CatalogQuery{
		RegistryAddress: c.Registry.Address,
		Credentials:     Credentials{Username: c.Registry.Username, Password: c.Registry.Password},
		Namespace:       c.Registry.Namespace,
		ServerPattern:   c.Filters.ServerPattern,
		ToolPattern:     c.Filters.ToolPattern,
	}
}

func (c GatewayConfig) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c GatewayConfig) CommandTimeout() time.Duration {
	return time.Duration(c.Server.CommandTimeoutSeconds) * time.Second
}

func (c GatewayConfig) DiscoveryTimeout() time.Duration {
	return time.Duration(c.Server.DiscoveryTimeoutSeconds) * time.Second
}

func (c GatewayConfig) RegistryTimeout() time.Duration {
	return time.Duration(c.Registry.RequestTimeoutSeconds) * time.Second
}

func (c GatewayConfig) PollInterval() time.Duration {
	return time.Duration(c.Mailbox.PollIntervalMillis) * time.Millisecond
}

func (c GatewayConfig) SessionIdle() time.Duration {
	return time.Duration(c.Mailbox.SessionIdleSeconds) * time.Second
}

// Redacted returns a copy safe to print.
func (c GatewayConfig) Redacted() GatewayConfig {
	out := c
	if out.Registry.Password != "" {
		out.Registry.Password = "******"
	}
	if len(out.Auth.Tokens) > 0 {
		tokens := make([]string, len(out.Auth.Tokens))
		for i := range tokens {
			tokens[i] = "******"
		}
		out.Auth.Tokens = tokens
	}
	return out
}
