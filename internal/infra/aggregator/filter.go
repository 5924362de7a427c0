package aggregator

import (
	"regexp"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// matches is an unanchored search; a nil pattern matches everything.
func matches(re *regexp.Regexp, name string) bool {
	return re == nil || re.MatchString(name)
}

func selectServers(summaries []domain.ServerSummary, serverRe *regexp.Regexp) []domain.ServerSummary {
	var out []domain.ServerSummary
	for _, summary := range summaries {
		if !summary.Protocol.Supported() || !matches(serverRe, summary.Name) {
			continue
		}
		out = append(out, summary)
	}
	return out
}

// filterEmbeddedTools drops non-matching tools and their metadata in place.
func filterEmbeddedTools(server *domain.ServerRecord, toolRe *regexp.Regexp) {
	if toolRe == nil || server.ToolSpec == nil {
		return
	}
	kept := server.ToolSpec.Tools[:0]
	for _, tool := range server.ToolSpec.Tools {
		if matches(toolRe, tool.Name) {
			kept = append(kept, tool)
			continue
		}
		delete(server.ToolSpec.ToolsMeta, tool.Name)
	}
	server.ToolSpec.Tools = kept
}

func filterDiscoveredTools(tools []domain.ToolRecord, toolRe *regexp.Regexp) []domain.ToolRecord {
	out := make([]domain.ToolRecord, 0, len(tools))
	for _, tool := range tools {
		if matches(toolRe, tool.Name) {
			out = append(out, tool)
		}
	}
	return out
}
