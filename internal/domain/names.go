package domain

import (
	"fmt"
	"strings"
)

// ToolNameSeparator joins a server name and a tool name on the wire.
const ToolNameSeparator = "___"

// VirtualToolName builds the composite wire name for a server tool.
func VirtualToolName(serverName, toolName string) string {
	return serverName + ToolNameSeparator + toolName
}

// SplitVirtualToolName splits a composite name on the first separator.
func SplitVirtualToolName(name string) (string, string, error) {
	serverName, toolName, ok := strings.Cut(name, ToolNameSeparator)
	if !ok || serverName == "" || toolName == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidToolName, name)
	}
	return serverName, toolName, nil
}

// RoundTripsName reports whether a name can appear as one side of a composite name.
func RoundTripsName(name string) bool {
	return !strings.Contains(name, ToolNameSeparator)
}
