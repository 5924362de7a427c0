package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

func TestCatalogKey_Stable(t *testing.T) {
	query := domain.CatalogQuery{RegistryAddress: "127.0.0.1:8848", Namespace: "public", ServerPattern: "w", ToolPattern: "f"}
	assert.Equal(t, CatalogKey(query), CatalogKey(query))
}

func TestCatalogKey_Separation(t *testing.T) {
	base := domain.CatalogQuery{RegistryAddress: "127.0.0.1:8848", Namespace: "public"}
	variants := []domain.CatalogQuery{
		base,
		{RegistryAddress: "10.0.0.1:8848", Namespace: "public"},
		{RegistryAddress: "127.0.0.1:8848", Namespace: "dev"},
		{RegistryAddress: "127.0.0.1:8848", Namespace: "public", ServerPattern: "a"},
		{RegistryAddress: "127.0.0.1:8848", Namespace: "public", ToolPattern: "a"},
		{RegistryAddress: "127.0.0.1:8848", Namespace: "public", ServerPattern: "a|b"},
		{RegistryAddress: "127.0.0.1:8848", Namespace: "public", ServerPattern: "a", ToolPattern: "|b"},
		{RegistryAddress: "127.0.0.1:8848", Namespace: "public", ServerPattern: "a|", ToolPattern: "b"},
	}
	seen := make(map[string]int)
	for i, query := range variants {
		key := CatalogKey(query)
		if prev, ok := seen[key]; ok {
			t.Fatalf("variant %d shares key with %d", i, prev)
		}
		seen[key] = i
	}
}

func TestCatalogKey_IgnoresCredentials(t *testing.T) {
	a := domain.CatalogQuery{RegistryAddress: "r", Namespace: "n", Credentials: domain.Credentials{Username: "x"}}
	b := domain.CatalogQuery{RegistryAddress: "r", Namespace: "n", Credentials: domain.Credentials{Username: "y"}}
	assert.Equal(t, CatalogKey(a), CatalogKey(b))
}
