package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// Loader reads gateway configuration files.
type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger.Named("config")}
}

type rawConfig struct {
	Server        rawServerConfig        `mapstructure:"server"`
	Auth          rawAuthConfig          `mapstructure:"auth"`
	Registry      rawRegistryConfig      `mapstructure:"registry"`
	Filters       rawFilterConfig        `mapstructure:"filters"`
	Cache         rawCacheConfig         `mapstructure:"cache"`
	Mailbox       rawMailboxConfig       `mapstructure:"mailbox"`
	Observability rawObservabilityConfig `mapstructure:"observability"`
	Parameter     string                 `mapstructure:"parameter"`
	Debug         bool                   `mapstructure:"debug"`
}

type rawServerConfig struct {
	ListenAddress           string `mapstructure:"listenAddress"`
	Workers                 int    `mapstructure:"workers"`
	CommandTimeoutSeconds   int    `mapstructure:"commandTimeoutSeconds"`
	DiscoveryTimeoutSeconds int    `mapstructure:"discoveryTimeoutSeconds"`
}

type rawAuthConfig struct {
	Tokens []string `mapstructure:"tokens"`
}

type rawRegistryConfig struct {
	Address               string `mapstructure:"address"`
	Username              string `mapstructure:"username"`
	Password              string `mapstructure:"password"`
	Namespace             string `mapstructure:"namespace"`
	RequestTimeoutSeconds int    `mapstructure:"requestTimeoutSeconds"`
}

type rawFilterConfig struct {
	ServerPattern string `mapstructure:"serverPattern"`
	ToolPattern   string `mapstructure:"toolPattern"`
}

type rawCacheConfig struct {
	TTLSeconds int `mapstructure:"ttlSeconds"`
}

type rawMailboxConfig struct {
	Backend            string `mapstructure:"backend"`
	Path               string `mapstructure:"path"`
	RedisAddress       string `mapstructure:"redisAddress"`
	PollIntervalMillis int    `mapstructure:"pollIntervalMillis"`
	SessionIdleSeconds int    `mapstructure:"sessionIdleSeconds"`
}

type rawObservabilityConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
	Metrics       bool   `mapstructure:"metrics"`
	Healthz       bool   `mapstructure:"healthz"`
}

// legacyParameter is the JSON document the plugin settings carried as "parameter".
type legacyParameter struct {
	Expire int    `json:"expire"`
	Debug  string `json:"debug"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listenAddress", domain.DefaultListenAddress)
	v.SetDefault("server.workers", domain.DefaultWorkers)
	v.SetDefault("server.commandTimeoutSeconds", domain.DefaultCommandTimeoutSeconds)
	v.SetDefault("server.discoveryTimeoutSeconds", domain.DefaultDiscoveryTimeoutSeconds)
	v.SetDefault("auth.tokens", []string{})
	v.SetDefault("registry.address", domain.DefaultRegistryAddress)
	v.SetDefault("registry.username", "")
	v.SetDefault("registry.password", "")
	v.SetDefault("registry.namespace", domain.DefaultNamespace)
	v.SetDefault("registry.requestTimeoutSeconds", domain.DefaultRegistryTimeoutSeconds)
	v.SetDefault("filters.serverPattern", "")
	v.SetDefault("filters.toolPattern", "")
	v.SetDefault("cache.ttlSeconds", domain.DefaultCacheTTLSeconds)
	v.SetDefault("parameter", "")
	v.SetDefault("debug", false)
	v.SetDefault("mailbox.backend", domain.DefaultMailboxBackend)
	v.SetDefault("mailbox.path", domain.DefaultMailboxPath)
	v.SetDefault("mailbox.redisAddress", domain.DefaultMailboxRedisAddress)
	v.SetDefault("mailbox.pollIntervalMillis", domain.DefaultMailboxPollIntervalMillis)
	v.SetDefault("mailbox.sessionIdleSeconds", domain.DefaultSessionIdleSeconds)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("observability.metrics", true)
	v.SetDefault("observability.healthz", true)
}

// Defaults returns the configuration used when no file is given.
func Defaults() domain.GatewayConfig {
	cfg, err := decode(newViper())
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// Load reads, expands, decodes and validates the file at path.
// An empty path yields the defaults.
func (l *Loader) Load(ctx context.Context, path string) (domain.GatewayConfig, error) {
	if path == "" {
		return Defaults(), ctx.Err()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.GatewayConfig{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := l.Parse(data)
	if err != nil {
		return domain.GatewayConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, ctx.Err()
}

// Parse decodes and validates a YAML document.
func (l *Loader) Parse(data []byte) (domain.GatewayConfig, error) {
	expanded, missing, err := expandEnv(data)
	if err != nil {
		return domain.GatewayConfig{}, err
	}
	if len(missing) > 0 {
		l.logger.Warn("missing environment variables in config", zap.Strings("missing", missing))
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return domain.GatewayConfig{}, fmt.Errorf("parse config: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (domain.GatewayConfig, error) {
	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.GatewayConfig{}, fmt.Errorf("decode config: %w", err)
	}
	cfg, errs := normalize(raw)
	errs = append(errs, Validate(cfg)...)
	if len(errs) > 0 {
		return domain.GatewayConfig{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

func normalize(raw rawConfig) (domain.GatewayConfig, []string) {
	var errs []string
	cfg := domain.GatewayConfig{
		Server: domain.ServerConfig{
			ListenAddress:           strings.TrimSpace(raw.Server.ListenAddress),
			Workers:                 raw.Server.Workers,
			CommandTimeoutSeconds:   raw.Server.CommandTimeoutSeconds,
			DiscoveryTimeoutSeconds: raw.Server.DiscoveryTimeoutSeconds,
		},
		Auth: domain.AuthConfig{Tokens: normalizeTokens(raw.Auth.Tokens)},
		Registry: domain.RegistryConfig{
			Address:               strings.TrimSpace(raw.Registry.Address),
			Username:              raw.Registry.Username,
			Password:              raw.Registry.Password,
			Namespace:             strings.TrimSpace(raw.Registry.Namespace),
			RequestTimeoutSeconds: raw.Registry.RequestTimeoutSeconds,
		},
		Filters: domain.FilterConfig{
			ServerPattern: raw.Filters.ServerPattern,
			ToolPattern:   raw.Filters.ToolPattern,
		},
		Cache: domain.CacheConfig{TTLSeconds: raw.Cache.TTLSeconds},
		Mailbox: domain.MailboxConfig{
			Backend:            strings.ToLower(strings.TrimSpace(raw.Mailbox.Backend)),
			Path:               strings.TrimSpace(raw.Mailbox.Path),
			RedisAddress:       strings.TrimSpace(raw.Mailbox.RedisAddress),
			PollIntervalMillis: raw.Mailbox.PollIntervalMillis,
			SessionIdleSeconds: raw.Mailbox.SessionIdleSeconds,
		},
		Observability: domain.ObservabilityConfig{
			ListenAddress: strings.TrimSpace(raw.Observability.ListenAddress),
			Metrics:       raw.Observability.Metrics,
			Healthz:       raw.Observability.Healthz,
		},
		Debug: raw.Debug,
	}
	if cfg.Registry.Address == "" {
		cfg.Registry.Address = domain.DefaultRegistryAddress
	}
	if cfg.Registry.Namespace == "" {
		cfg.Registry.Namespace = domain.DefaultNamespace
	}

	if param := strings.TrimSpace(raw.Parameter); param != "" {
		var legacy legacyParameter
		if err := json.Unmarshal([]byte(param), &legacy); err != nil {
			errs = append(errs, fmt.Sprintf("parameter: invalid JSON: %v", err))
		} else {
			if legacy.Expire > 0 {
				cfg.Cache.TTLSeconds = legacy.Expire
			}
			if legacy.Debug == "debug" {
				cfg.Debug = true
			}
		}
	}
	return cfg, errs
}

func normalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if trimmed := strings.TrimSpace(token); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate reports every problem in cfg.
func Validate(cfg domain.GatewayConfig) []string {
	var errs []string
	if cfg.Server.ListenAddress == "" {
		errs = append(errs, "server.listenAddress is required")
	}
	if cfg.Server.Workers <= 0 {
		errs = append(errs, "server.workers must be > 0")
	}
	if cfg.Server.CommandTimeoutSeconds <= 0 {
		errs = append(errs, "server.commandTimeoutSeconds must be > 0")
	}
	if cfg.Server.DiscoveryTimeoutSeconds <= 0 {
		errs = append(errs, "server.discoveryTimeoutSeconds must be > 0")
	}
	if cfg.Registry.RequestTimeoutSeconds <= 0 {
		errs = append(errs, "registry.requestTimeoutSeconds must be > 0")
	}
	if cfg.Cache.TTLSeconds < 0 {
		errs = append(errs, "cache.ttlSeconds must be >= 0")
	}
	if _, err := regexp.Compile(cfg.Filters.ServerPattern); err != nil {
		errs = append(errs, fmt.Sprintf("filters.serverPattern: %v", err))
	}
	if _, err := regexp.Compile(cfg.Filters.ToolPattern); err != nil {
		errs = append(errs, fmt.Sprintf("filters.toolPattern: %v", err))
	}
	switch cfg.Mailbox.Backend {
	case "memory":
	case "bbolt":
		if cfg.Mailbox.Path == "" {
			errs = append(errs, "mailbox.path is required for the bbolt backend")
		}
	case "redis":
		if cfg.Mailbox.RedisAddress == "" {
			errs = append(errs, "mailbox.redisAddress is required for the redis backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("mailbox.backend must be memory, bbolt or redis, got %q", cfg.Mailbox.Backend))
	}
	if cfg.Mailbox.PollIntervalMillis <= 0 {
		errs = append(errs, "mailbox.pollIntervalMillis must be > 0")
	}
	if cfg.Mailbox.SessionIdleSeconds < 0 {
		errs = append(errs, "mailbox.sessionIdleSeconds must be >= 0")
	}
	if (cfg.Observability.Metrics || cfg.Observability.Healthz) && cfg.Observability.ListenAddress == "" {
		errs = append(errs, "observability.listenAddress is required when metrics or healthz is enabled")
	}
	return errs
}
