package catalogcache

import (
	"context"
	"time"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/infra/hashutil"
)

// QuerySource returns the current catalog query and cache TTL.
// It is read on every request so configuration reloads apply without a restart.
type QuerySource func() (domain.CatalogQuery, time.Duration)

// Catalog serves aggregated catalogs through the cache.
type Catalog struct {
	cache  *Cache
	lister domain.CatalogLister
	query  QuerySource
}

func NewCatalog(cache *Cache, lister domain.CatalogLister, query QuerySource) *Catalog {
	if cache == nil || lister == nil || query == nil {
		panic("catalog requires a cache, a lister and a query source")
	}
	return &Catalog{cache: cache, lister: lister, query: query}
}

func (c *Catalog) Servers(ctx context.Context) ([]domain.ServerRecord, error) {
	query, ttl := c.query()
	return c.cache.Get(ctx, hashutil.CatalogKey(query), ttl, func(ctx context.Context) ([]domain.ServerRecord, error) {
		return c.lister.List(ctx, query)
	})
}

var _ domain.CatalogSource = (*Catalog)(nil)
