package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger with a component name
type Logger struct {
	*slog.Logger
	component string
	base      slog.Handler
	attrs     []any
}

// Config holds logger configuration
type Config struct {
	Level     slog.Level
	Format    string // text or json
	Component string
	Output    io.Writer
	Handler   slog.Handler
}

// DefaultConfig returns sensible defaults for logging
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Component: ComponentApp,
		Output:    os.Stdout,
	}
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New creates a new logger with the given configuration
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		out := config.Output
		if out == nil {
			out = os.Stdout
		}
		opts := &slog.HandlerOptions{Level: config.Level}
		if strings.EqualFold(config.Format, "json") {
			handler = slog.NewJSONHandler(out, opts)
		} else {
			handler = slog.NewTextHandler(out, opts)
		}
	}

	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	return build(handler, component, nil)
}

func build(base slog.Handler, component string, attrs []any) *Logger {
	args := append([]any{FieldComponent, component}, attrs...)
	return &Logger{
		Logger:    slog.New(base).With(args...),
		component: component,
		base:      base,
		attrs:     attrs,
	}
}

// With returns a new logger with the given attributes
func (l *Logger) With(args ...any) *Logger {
	if l.base == nil {
		return &Logger{Logger: l.Logger.With(args...), component: l.component}
	}
	attrs := append(append([]any{}, l.attrs...), args...)
	return build(l.base, l.component, attrs)
}

// WithComponent returns a logger tagged with another component name,
// keeping every attribute added with With.
func (l *Logger) WithComponent(component string) *Logger {
	if l.base == nil {
		return build(l.Logger.Handler(), component, nil)
	}
	return build(l.base, component, l.attrs)
}

// Event logs msg with a LogFields set at the given level.
func (l *Logger) Event(ctx context.Context, level slog.Level, msg string, fields LogFields) {
	delete(fields, FieldComponent)
	l.Logger.Log(ctx, level, msg, fields.ToSlice()...)
}

// SetDefault sets the default logger for the application
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

// Component returns the logger's component name
func (l *Logger) Component() string {
	return l.component
}
