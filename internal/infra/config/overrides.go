package config

import (
	"errors"
	"strings"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// Override adjusts a loaded configuration, typically from command line flags.
type Override func(cfg *domain.GatewayConfig)

// ApplyOverrides runs every override in order and validates the result.
func ApplyOverrides(cfg domain.GatewayConfig, overrides ...Override) (domain.GatewayConfig, error) {
	if len(overrides) == 0 {
		return cfg, nil
	}
	for _, override := range overrides {
		if override != nil {
			override(&cfg)
		}
	}
	if errs := Validate(cfg); len(errs) > 0 {
		return domain.GatewayConfig{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}
