package domain

import (
	"encoding/json"
	"strconv"
)

// ProtocolTag identifies the transport a registered MCP server speaks.
type ProtocolTag string

const (
	// ProtocolSSE selects the SSE transport.
	ProtocolSSE ProtocolTag = "mcp-sse"
	// ProtocolStreamable selects the streamable HTTP transport.
	ProtocolStreamable ProtocolTag = "mcp-streamable"
)

// Supported reports whether the gateway has a transport for the tag.
func (p ProtocolTag) Supported() bool {
	return p == ProtocolSSE || p == ProtocolStreamable
}

// Endpoint is one backend address registered for a server.
type Endpoint struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// HostPort returns the address and port joined for URL construction.
func (e Endpoint) HostPort() string {
	return e.Address + ":" + strconv.Itoa(e.Port)
}

// ToolRecord describes one tool owned by a server.
// InputSchema is passed through unmodified.
type ToolRecord struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ToolSpec is the tool catalog attached to a server record.
type ToolSpec struct {
	Tools     []ToolRecord               `json:"tools"`
	ToolsMeta map[string]json.RawMessage `json:"toolsMeta,omitempty"`
}

// ServerSummary is the list-page view of a registered server.
type ServerSummary struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Protocol    ProtocolTag `json:"protocol"`
}

// ServerRecord is a fully resolved server with its endpoints and tools.
type ServerRecord struct {
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Protocol         ProtocolTag `json:"protocol"`
	BackendEndpoints []Endpoint  `json:"backendEndpoints,omitempty"`
	ExportPath       string      `json:"exportPath"`
	ToolSpec         *ToolSpec   `json:"toolSpec,omitempty"`
}

// HasEmbeddedTools reports whether the registry shipped a non-empty tool catalog.
func (s ServerRecord) HasEmbeddedTools() bool {
	return s.ToolSpec != nil && len(s.ToolSpec.Tools) > 0
}

// Tools returns the server's tools or nil when no catalog is attached.
func (s ServerRecord) Tools() []ToolRecord {
	if s.ToolSpec == nil {
		return nil
	}
	return s.ToolSpec.Tools
}

// Clone returns a deep copy so cached snapshots are never mutated by callers.
func (s ServerRecord) Clone() ServerRecord {
	out := s
	if s.BackendEndpoints != nil {
		out.BackendEndpoints = append([]Endpoint(nil), s.BackendEndpoints...)
	}
	if s.ToolSpec != nil {
		spec := ToolSpec{}
		if s.ToolSpec.Tools != nil {
			spec.Tools = make([]ToolRecord, len(s.ToolSpec.Tools))
			for i, tool := range s.ToolSpec.Tools {
				spec.Tools[i] = tool
				if tool.InputSchema != nil {
					spec.Tools[i].InputSchema = append(json.RawMessage(nil), tool.InputSchema...)
				}
			}
		}
		if s.ToolSpec.ToolsMeta != nil {
			spec.ToolsMeta = make(map[string]json.RawMessage, len(s.ToolSpec.ToolsMeta))
			for name, meta := range s.ToolSpec.ToolsMeta {
				spec.ToolsMeta[name] = append(json.RawMessage(nil), meta...)
			}
		}
		out.ToolSpec = &spec
	}
	return out
}

// CloneServers deep-copies a server list.
func CloneServers(servers []ServerRecord) []ServerRecord {
	if servers == nil {
		return nil
	}
	out := make([]ServerRecord, len(servers))
	for i, server := range servers {
		out[i] = server.Clone()
	}
	return out
}

// Credentials authenticate against the registry.
type Credentials struct {
	Username string
	Password string
}

// CatalogQuery selects which registry, namespace and name patterns build a catalog.
type CatalogQuery struct {
	RegistryAddress string
	Credentials     Credentials
	Namespace       string
	ServerPattern   string
	ToolPattern     string
}
