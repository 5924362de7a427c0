package hashutil

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// keySeparator cannot appear in config values, unlike "|" which is common in patterns.
const keySeparator = "\x00"

// Key returns a stable base-36 xxhash of the joined parts.
func Key(parts ...string) string {
	return strconv.FormatUint(xxhash.Sum64String(strings.Join(parts, keySeparator)), 36)
}

// CatalogKey hashes the fields that select a catalog.
// Credentials are not part of the key.
func CatalogKey(query domain.CatalogQuery) string {
	return Key(query.RegistryAddress, query.Namespace, query.ServerPattern, query.ToolPattern)
}
