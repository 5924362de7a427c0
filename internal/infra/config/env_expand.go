package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// expandEnv substitutes ${VAR} and ${VAR:-fallback} in string scalars of a YAML document.
// Unset variables without a fallback expand to "" and are reported.
func expandEnv(raw []byte) (string, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}
	if root.Kind == 0 {
		return "", nil, nil
	}

	missing := make(map[string]struct{})
	walk(&root, missing)

	expanded, err := yaml.Marshal(&root)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}
	return string(expanded), sortedKeys(missing), nil
}

func walk(node *yaml.Node, missing map[string]struct{}) {
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			walk(child, missing)
		}
	case yaml.MappingNode:
		for i := 1; i < len(node.Content); i += 2 {
			walk(node.Content[i], missing)
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			walk(node.Alias, missing)
		}
	case yaml.ScalarNode:
		substitute(node, missing)
	}
}

func substitute(node *yaml.Node, missing map[string]struct{}) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "$") {
		return
	}
	expanded := os.Expand(node.Value, func(ref string) string {
		name, fallback, hasFallback := strings.Cut(ref, ":-")
		if value, ok := os.LookupEnv(name); ok && (value != "" || !hasFallback) {
			return value
		}
		if hasFallback {
			return fallback
		}
		missing[name] = struct{}{}
		return ""
	})
	if expanded == node.Value {
		return
	}
	// Quoted scalars stay strings; plain ones are re-typed so "${PORT}" can become an int.
	if node.Style != 0 {
		node.Tag = "!!str"
		node.Value = expanded
		return
	}
	node.Tag, node.Value = retype(expanded)
}

func retype(value string) (string, string) {
	if strings.TrimSpace(value) == "" {
		return "!!str", value
	}
	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return "!!str", value
	}
	switch v := parsed.(type) {
	case nil:
		return "!!null", "null"
	case bool:
		return "!!bool", strconv.FormatBool(v)
	case int:
		return "!!int", strconv.Itoa(v)
	case float64:
		return "!!float", strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "!!str", value
	}
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
