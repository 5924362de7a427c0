package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldServer     = "server"
	FieldTool       = "tool"
	FieldSession    = "session_id"
	FieldCacheKey   = "cache_key"
	FieldURL        = "url"
	FieldMethod     = "method"
	FieldOutcome    = "outcome"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
)

const (
	EventCatalogLoad      = "catalog_load"
	EventDiscoveryFailure = "discovery_failure"
	EventRouteError       = "route_error"
	EventToolSkipped      = "tool_skipped"
	EventSessionOpen      = "session_open"
	EventSessionClose     = "session_close"
	EventSessionReap      = "session_reap"
	EventMailboxOverwrite = "mailbox_overwrite"
	EventConfigReload     = "config_reload"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func ServerField(server string) zap.Field {
	return zap.String(FieldServer, server)
}

func ToolField(tool string) zap.Field {
	return zap.String(FieldTool, tool)
}

func SessionField(sessionID string) zap.Field {
	return zap.String(FieldSession, sessionID)
}

func CacheKeyField(key string) zap.Field {
	return zap.String(FieldCacheKey, key)
}

func URLField(url string) zap.Field {
	return zap.String(FieldURL, url)
}

func MethodField(method string) zap.Field {
	return zap.String(FieldMethod, method)
}

func OutcomeField(outcome string) zap.Field {
	return zap.String(FieldOutcome, outcome)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}
