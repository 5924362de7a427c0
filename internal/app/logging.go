package app

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingConfig configures logging wiring.
type LoggingConfig struct {
	Logger *zap.Logger
	// Level is the root logger's level. When set, the debug setting toggles it at runtime.
	Level *zap.AtomicLevel
}

// Logging bundles the logger and its level handle.
type Logging struct {
	Logger *zap.Logger
	Level  *zap.AtomicLevel
}

// NewLogging constructs logging dependencies.
func NewLogging(cfg LoggingConfig) Logging {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Logging{
		Logger: logger.Named("app"),
		Level:  cfg.Level,
	}
}

// NewLogger returns the logger from a Logging bundle.
func NewLogger(logging Logging) *zap.Logger {
	return logging.Logger
}

// applyDebug raises the level to debug or lowers it back to info.
func applyDebug(level *zap.AtomicLevel, debug bool) {
	if level == nil {
		return
	}
	if debug {
		level.SetLevel(zapcore.DebugLevel)
		return
	}
	level.SetLevel(zapcore.InfoLevel)
}
