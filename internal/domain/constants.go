package domain

const (
	DefaultProtocolVersion            = "2024-11-05"
	DefaultServerName                 = "Nacos MCP Dify Plugin"
	DefaultServerVersion              = "1.0.0"
	DefaultListenAddress              = "0.0.0.0:8080"
	DefaultWorkers                    = 10
	DefaultCommandTimeoutSeconds      = 60
	DefaultDiscoveryTimeoutSeconds    = 10
	DefaultRegistryAddress            = "127.0.0.1:8848"
	DefaultNamespace                  = "public"
	DefaultRegistryTimeoutSeconds     = 10
	DefaultRegistryPageSize           = 65535
	DefaultCacheTTLSeconds            = 60
	DefaultMailboxBackend             = "memory"
	DefaultMailboxPath                = "mailbox.db"
	DefaultMailboxRedisAddress        = "127.0.0.1:6379"
	DefaultMailboxPollIntervalMillis  = 500
	DefaultSessionIdleSeconds         = 600
	DefaultObservabilityListenAddress = "0.0.0.0:9090"
	DefaultStreamableHTTPMaxRetries   = 1
)
