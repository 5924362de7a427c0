package frontend

import (
	"encoding/json"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

const jsonrpcVersion = "2.0"

// Request is an inbound JSON-RPC message. ID is absent for notifications.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the message expects no response.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// responseID echoes the request id, using null for notifications and unparsable requests.
func (r Request) responseID() json.RawMessage {
	if len(r.ID) == 0 {
		return json.RawMessage("null")
	}
	return r.ID
}

type Response struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      json.RawMessage       `json:"id"`
	Result  any                   `json:"result,omitempty"`
	Error   *domain.ProtocolError `json:"error,omitempty"`
}

func rpcOK(id json.RawMessage, result any) Response {
	return Response{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

func rpcError(id json.RawMessage, err *domain.ProtocolError) Response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return Response{JSONRPC: jsonrpcVersion, ID: id, Error: err}
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string     `json:"protocolVersion"`
	Capabilities    any        `json:"capabilities"`
	ServerInfo      serverInfo `json:"serverInfo"`
}

type listChanged struct {
	ListChanged bool `json:"listChanged"`
}

type resourcesCapability struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}

// channelPairCapabilities is advertised on the push-channel variant.
type channelPairCapabilities struct {
	Experimental map[string]any      `json:"experimental"`
	Prompts      listChanged         `json:"prompts"`
	Resources    resourcesCapability `json:"resources"`
	Tools        listChanged         `json:"tools"`
}

type streamableCapabilities struct {
	Tools map[string]any `json:"tools"`
}

type toolsListResult struct {
	Tools any `json:"tools"`
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type toolsCallResult struct {
	Content any  `json:"content"`
	IsError bool `json:"isError"`
}

// emptyResult is returned for methods the gateway does not implement.
type emptyResult struct{}
