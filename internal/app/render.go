package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
	FormatJSON = "json"
)

// RenderConfig prints cfg with secrets masked.
func RenderConfig(cfg domain.GatewayConfig, format string) ([]byte, error) {
	redacted := cfg.Redacted()
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(redacted); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatTOML:
		data, err := toml.Marshal(redacted)
		if err != nil {
			return nil, fmt.Errorf("encode toml: %w", err)
		}
		return data, nil
	case FormatJSON:
		data, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, domain.E(domain.CodeInvalidArgument, "app.render", fmt.Sprintf("unknown format %q", format), nil)
	}
}
