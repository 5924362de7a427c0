package catalogcache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/telemetry"
)

// Loader builds the value for a missing or stale key.
type Loader func(ctx context.Context) ([]domain.ServerRecord, error)

// Cache is a TTL cache of aggregated catalogs.
// Concurrent misses for one key share a single load; misses for different keys never block each other.
// Failed loads are not stored.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
	clock   clockwork.Clock
	metrics domain.Metrics
	logger  *zap.Logger
}

type entry struct {
	value    []domain.ServerRecord
	storedAt time.Time
}

type Options struct {
	Clock   clockwork.Clock
	Metrics domain.Metrics
	Logger  *zap.Logger
}

func New(opts Options) *Cache {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		entries: make(map[string]entry),
		clock:   clock,
		metrics: metrics,
		logger:  logger.Named("catalog_cache"),
	}
}

// Get returns the value stored under key if it is younger than ttl, otherwise loads it.
// Callers receive their own copy of the value.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration, load Loader) ([]domain.ServerRecord, error) {
	if value, ok := c.fresh(key, ttl); ok {
		c.metrics.ObserveCacheLookup(domain.CacheHit)
		c.logger.Debug("catalog read from cache", telemetry.CacheKeyField(key))
		return domain.CloneServers(value), nil
	}
	c.metrics.ObserveCacheLookup(domain.CacheMiss)

	// The load runs detached so an abandoned waiter never cancels it for the others.
	ch := c.group.DoChan(key, func() (any, error) {
		if value, ok := c.fresh(key, ttl); ok {
			c.logger.Debug("catalog read from cache", telemetry.CacheKeyField(key))
			return value, nil
		}
		c.logger.Debug("catalog read from remote", telemetry.CacheKeyField(key))
		start := c.clock.Now()
		value, err := load(context.WithoutCancel(ctx))
		c.metrics.ObserveCatalogLoad(c.clock.Since(start), err)
		if err != nil {
			return nil, err
		}
		c.store(key, value)
		return value, nil
	})
	select {
	case <-ctx.Done():
		c.logger.Debug("catalog wait abandoned", telemetry.CacheKeyField(key), zap.Error(ctx.Err()))
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("catalog load failed", telemetry.CacheKeyField(key), zap.Bool("shared", res.Shared), zap.Error(res.Err))
			return nil, res.Err
		}
		return domain.CloneServers(res.Val.([]domain.ServerRecord)), nil
	}
}

// Invalidate drops one key.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Size returns the number of stored entries, fresh or not.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) fresh(key string, ttl time.Duration) ([]domain.ServerRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Since(cached.storedAt) >= ttl {
		return nil, false
	}
	return cached.value, true
}

func (c *Cache) store(key string, value []domain.ServerRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: domain.CloneServers(value), storedAt: c.clock.Now()}
}
