package mcpcodec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// WireTool is one entry of a tools/list result.
type WireTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// WireContent is one content item of a tools/call result.
type WireContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SkippedTool names a tool left out of a listing because its names cannot round-trip.
type SkippedTool struct {
	Server string
	Tool   string
}

// ToolFromMCP converts an MCP tool to a domain record.
func ToolFromMCP(tool *mcp.Tool) (domain.ToolRecord, error) {
	if tool == nil {
		return domain.ToolRecord{}, nil
	}
	record := domain.ToolRecord{
		Name:        tool.Name,
		Description: tool.Description,
	}
	if tool.InputSchema != nil {
		raw, err := json.Marshal(tool.InputSchema)
		if err != nil {
			return domain.ToolRecord{}, fmt.Errorf("encode input schema for %q: %w", tool.Name, err)
		}
		record.InputSchema = raw
	}
	return record, nil
}

// ResultFromMCP narrows an MCP tool result to its text parts.
// Non-text content is dropped.
func ResultFromMCP(result *mcp.CallToolResult) domain.CallResult {
	if result == nil {
		return domain.CallResult{}
	}
	parts := make([]string, 0, len(result.Content))
	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return domain.CallResult{Text: parts, IsError: result.IsError}
}

// VirtualTools flattens servers into namespaced tools/list entries.
// Servers or tools whose names contain the separator are skipped and reported.
func VirtualTools(servers []domain.ServerRecord) ([]WireTool, []SkippedTool) {
	var tools []WireTool
	var skipped []SkippedTool
	for _, server := range servers {
		for _, tool := range server.Tools() {
			if !domain.RoundTripsName(server.Name) || !domain.RoundTripsName(tool.Name) {
				skipped = append(skipped, SkippedTool{Server: server.Name, Tool: tool.Name})
				continue
			}
			tools = append(tools, WireTool{
				Name:        domain.VirtualToolName(server.Name, tool.Name),
				Description: server.Description + ". " + tool.Description,
				InputSchema: tool.InputSchema,
			})
		}
	}
	if tools == nil {
		tools = []WireTool{}
	}
	return tools, skipped
}

// TextContents emits one text item per part.
func TextContents(result domain.CallResult) []WireContent {
	out := make([]WireContent, 0, len(result.Text))
	for _, text := range result.Text {
		out = append(out, WireContent{Type: "text", Text: text})
	}
	return out
}

// JoinedTextContent collapses all parts into one text item joined by a space.
func JoinedTextContent(result domain.CallResult) []WireContent {
	return []WireContent{{Type: "text", Text: strings.Join(result.Text, " ")}}
}
