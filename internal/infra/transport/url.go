package transport

import (
	"math/rand/v2"
	"strings"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// BackendURL builds the URL of a server at one of its endpoints.
// Port 443 selects https; anything else is plain http.
func BackendURL(endpoint domain.Endpoint, exportPath string) string {
	scheme := "http"
	if endpoint.Port == 443 {
		scheme = "https"
	}
	return scheme + "://" + endpoint.HostPort() + "/" + strings.TrimLeft(exportPath, "/")
}

// EndpointPicker chooses one endpoint from a non-empty list.
type EndpointPicker func(endpoints []domain.Endpoint) domain.Endpoint

// RandomEndpoint picks uniformly at random.
func RandomEndpoint(endpoints []domain.Endpoint) domain.Endpoint {
	return endpoints[rand.IntN(len(endpoints))]
}

// ResolveURL picks an endpoint for the server and returns its URL.
func ResolveURL(server domain.ServerRecord, pick EndpointPicker) (string, error) {
	if len(server.BackendEndpoints) == 0 {
		return "", domain.E(domain.CodeUnavailable, "resolve_url", "server "+server.Name+" has no backend endpoints", domain.ErrNoEndpoints)
	}
	if pick == nil {
		pick = RandomEndpoint
	}
	return BackendURL(pick(server.BackendEndpoints), server.ExportPath), nil
}
