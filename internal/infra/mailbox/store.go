package mailbox

import (
	"fmt"
	"time"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

const (
	BackendMemory = "memory"
	BackendBolt   = "bbolt"
	BackendRedis  = "redis"
)

// StoreConfig selects and configures a mailbox backend.
type StoreConfig struct {
	Backend      string
	Path         string
	RedisAddress string
	// TTL bounds unread redis slots; other backends rely on the session janitor.
	TTL time.Duration
}

// OpenStore opens the configured backend.
func OpenStore(cfg StoreConfig) (domain.MailboxStore, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendBolt:
		return OpenBoltStore(cfg.Path)
	case BackendRedis:
		return NewRedisStore(RedisStoreOptions{Address: cfg.RedisAddress, TTL: cfg.TTL})
	default:
		return nil, domain.E(domain.CodeInvalidArgument, "mailbox.open", fmt.Sprintf("unknown mailbox backend %q", cfg.Backend), nil)
	}
}
