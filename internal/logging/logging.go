// Package logging builds the zap loggers used across the generator. Output
// goes to stderr so command output (JSON reports, IR dumps) stays clean on
// stdout.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log output encoding
type Format string

const (
	// FormatConsole is human-readable output with colored levels
	FormatConsole Format = "console"
	// FormatJSON is structured JSON output
	FormatJSON Format = "json"
)

var initOnce sync.Once

// parseLevel converts a level string to a zapcore.Level, defaulting to info
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New creates a zap logger with the given level and format
func New(level string, format Format) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var encoder zapcore.Encoder
	if format == FormatJSON {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.ConsoleSeparator = " | "
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(os.Stderr),
		zap.NewAtomicLevelAt(parseLevel(level)),
	)
	return zap.New(core)
}

// Initialize installs the global logger once. Later calls are no-ops, so the
// first caller (the CLI, after config load) wins.
func Initialize(level string, format Format) {
	initOnce.Do(func() {
		zap.ReplaceGlobals(New(level, format))
	})
}

// For returns a named sugared logger for one generator component, e.g.
// logging.For("merge").
func For(component string) *zap.SugaredLogger {
	return zap.S().Named(component)
}

// Sync flushes buffered log entries; call before process exit.
func Sync() {
	_ = zap.L().Sync()
}
