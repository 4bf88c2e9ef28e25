// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing users to plug any
// structured logger. It also offers a richer Scoped logger with contextual
// helpers (component, agent, session) and domain specific logging helpers for
// tools, model calls and turns.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogLevel represents different logging levels.
// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string ("debug", "info", "warning", "error")
// to a LogLevel. Unknown values fall back to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger defines the minimal logging interface for Switchboard.
// This allows users to provide their own logger implementation or use the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewStderrLogger creates a text Logger writing to standard error. Web mode
// uses this so application logs never mix with served content.
func NewStderrLogger(level LogLevel) Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel(level)})
	return NewSlogAdapter(slog.New(handler))
}

// NewFileLogger creates a text Logger writing to a log file under dir,
// creating the directory if needed. When filename is empty a timestamped name
// is generated. The returned closer owns the underlying file; callers should
// close it on shutdown. CLI mode uses this so stdout stays reserved for
// user-facing text.
func NewFileLogger(dir, filename string, level LogLevel) (Logger, io.Closer, error) {
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir %q: %w", dir, err)
	}
	if filename == "" {
		filename = fmt.Sprintf("switchboard-%s.log", time.Now().Format("20060102-150405"))
	}
	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %q: %w", path, err)
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slogLevel(level)})
	return NewSlogAdapter(slog.New(handler)), f, nil
}

// Scoped wraps a Logger adding contextual cloning helpers and domain
// convenience methods. It is cheap to copy via With* methods.
type Scoped struct {
	logger    Logger
	component string
	agent     string
	sessionID string
	context   map[string]any
}

// NewScoped wraps a Logger. A nil logger yields a silent Scoped.
func NewScoped(logger Logger) *Scoped {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Scoped{logger: logger, context: map[string]any{}}
}

func (l *Scoped) clone() *Scoped {
	nl := *l
	nl.context = make(map[string]any, len(l.context))
	for k, v := range l.context {
		nl.context[k] = v
	}
	return &nl
}

// WithContext adds a key/value attribute attached to every log entry.
func (l *Scoped) WithContext(key string, value any) *Scoped {
	nl := l.clone()
	nl.context[key] = value
	return nl
}

// WithComponent sets the logical component (graph, agent, middleware, web, ...).
func (l *Scoped) WithComponent(c string) *Scoped {
	nl := l.clone()
	nl.component = c
	return nl
}

// WithAgent attaches the agent name.
func (l *Scoped) WithAgent(name string) *Scoped {
	nl := l.clone()
	nl.agent = name
	return nl
}

// WithSession attaches a session identifier.
func (l *Scoped) WithSession(sid string) *Scoped {
	nl := l.clone()
	nl.sessionID = sid
	return nl
}

func (l *Scoped) attrs(args []any) []any {
	out := make([]any, 0, len(args)+6+2*len(l.context))
	if l.component != "" {
		out = append(out, "component", l.component)
	}
	if l.agent != "" {
		out = append(out, "agent", l.agent)
	}
	if l.sessionID != "" {
		out = append(out, "session_id", l.sessionID)
	}
	for k, v := range l.context {
		out = append(out, k, v)
	}
	return append(out, args...)
}

// Debug logs at debug level.
func (l *Scoped) Debug(msg string, args ...any) { l.logger.Debug(msg, l.attrs(args)...) }

// Info logs at info level.
func (l *Scoped) Info(msg string, args ...any) { l.logger.Info(msg, l.attrs(args)...) }

// Warn logs at warn level.
func (l *Scoped) Warn(msg string, args ...any) { l.logger.Warn(msg, l.attrs(args)...) }

// Error logs at error level.
func (l *Scoped) Error(msg string, args ...any) { l.logger.Error(msg, l.attrs(args)...) }

// LogToolCall records execution details for a tool invocation.
func (l *Scoped) LogToolCall(tool string, dur time.Duration, err error) {
	if err != nil {
		l.Error("Tool execution failed", "tool_name", tool, "duration", dur, "error", err.Error())
		return
	}
	l.Info("Tool execution completed", "tool_name", tool, "duration", dur)
}

// LogModelCall records model call latency, token usage and success.
func (l *Scoped) LogModelCall(model string, tokens int, dur time.Duration, err error) {
	if err != nil {
		l.Error("Model call failed", "model", model, "duration", dur, "error", err.Error())
		return
	}
	l.Info("Model call completed", "model", model, "token_count", tokens, "duration", dur)
}

// LogTurn records aggregate metrics for one graph turn.
func (l *Scoped) LogTurn(step string, dur time.Duration, err error) {
	if err != nil {
		l.Error("Turn failed", "workflow_step", step, "duration", dur, "error", err.Error())
		return
	}
	l.Info("Turn completed", "workflow_step", step, "duration", dur)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}
