// Package logger wraps zap.SugaredLogger with the per-component, runtime
// adjustable log level every part of the indexer logs through.
package logger

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ValidLogLevels enumerates the levels spec §6's `logLevel` option accepts.
var ValidLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LoggingConfig is the narrow view NewComponentLoggerFromConfig needs,
// satisfied by pkg/config.LoggingConfig without an import back to it.
type LoggingConfig interface {
	GetComponentLevel(component string) string
	GetDefaultLevel() string
	IsDevelopment() bool
}

// root is the process-wide default logger, lazily built by GetDefaultLogger.
var root atomic.Pointer[Logger]

// Logger wraps zap.SugaredLogger with a runtime-adjustable level shared
// across every component logger derived from it via WithComponent.
type Logger struct {
	*zap.SugaredLogger
	atomicLevel zap.AtomicLevel
	component   string
}

// NewLogger creates a new logger with the specified configuration.
// level can be "debug", "info", "warn", "error". development mode enables
// stack traces and a colorized console encoder.
func NewLogger(level string, development bool) (*Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	atomicLevel := zap.NewAtomicLevelAt(zapLevel)
	cfg.Level = atomicLevel

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &Logger{SugaredLogger: zapLogger.Sugar(), atomicLevel: atomicLevel}, nil
}

// NewComponentLogger builds a logger already scoped to component. Panics on
// an invalid level — this only ever runs at process startup from static
// configuration, so a bad level is a configuration bug, not a runtime error.
func NewComponentLogger(component, level string, development bool) *Logger {
	l, err := NewLogger(level, development)
	if err != nil {
		panic(err)
	}
	return l.WithComponent(component)
}

// NewComponentLoggerFromConfig builds a component logger using cfg's
// per-component level (falling back to its default level), or plain
// info/production defaults if cfg is nil.
func NewComponentLoggerFromConfig(component string, cfg LoggingConfig) *Logger {
	level := "info"
	development := false
	if cfg != nil {
		level = cfg.GetComponentLevel(component)
		development = cfg.IsDevelopment()
	}
	return NewComponentLogger(component, level, development)
}

// NewNopLogger creates a no-op logger that discards all logs. Useful for
// testing.
func NewNopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), atomicLevel: zap.NewAtomicLevelAt(zapcore.InfoLevel)}
}

// GetDefaultLogger returns the process-wide default logger, building one at
// debug/development settings on first use.
func GetDefaultLogger() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	l, err := NewLogger("debug", true)
	if err != nil {
		panic(err)
	}
	root.Store(l)
	return root.Load()
}

// WithComponent creates a child logger with a component name field, sharing
// the parent's atomic level so SetLevel on either affects both.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		SugaredLogger: l.With("component", component),
		atomicLevel:   l.atomicLevel,
		component:     component,
	}
}

// GetComponent returns the component name this logger was scoped to, or ""
// for a logger built directly from NewLogger.
func (l *Logger) GetComponent() string {
	return l.component
}

// GetLevel returns the logger's current level as a lowercase string.
func (l *Logger) GetLevel() string {
	return l.atomicLevel.Level().String()
}

// SetLevel adjusts the logger's level in place; every logger sharing the
// same underlying atomic level (e.g. via WithComponent) observes the change
// immediately.
func (l *Logger) SetLevel(level string) error {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l.atomicLevel.SetLevel(zapLevel)
	return nil
}

// Close flushes any buffered log entries.
func (l *Logger) Close() error {
	return l.Sync()
}
