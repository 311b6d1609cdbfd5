// Package logger wraps log/slog with the JSON layout used across the bot.
// Records logged with a context pick up the chat platform, channel user,
// account and request ID stored by ctxutil.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogbetterstack "github.com/samber/slog-betterstack"
)

// Logger is the application logger
type Logger struct {
	*slog.Logger
	remote *shipper
}

// Options configures optional log shipping to Better Stack.
type Options struct {
	BetterStackToken    string
	BetterStackEndpoint string
	// QueueSize bounds records waiting to be shipped; extra records are dropped.
	QueueSize    int
	FlushTimeout time.Duration
}

// New creates a new logger instance with JSON formatting
func New(level string) *Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter creates a new logger instance with JSON formatting writing to the provided writer
func NewWithWriter(level string, w io.Writer) *Logger {
	return NewWithOptions(level, w, Options{})
}

// NewWithOptions creates a logger that writes JSON to w and, when a Better Stack
// token is configured, also ships records to Better Stack in the background.
func NewWithOptions(level string, w io.Writer, opts Options) *Logger {
	logLevel := ParseLevel(level)

	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       logLevel,
		ReplaceAttr: replaceAttr,
	})

	var remote *shipper
	if opts.BetterStackToken != "" {
		remote = startShipper(opts.QueueSize, opts.FlushTimeout)
		handler = slog.NewMultiHandler(handler, &remoteHandler{
			next: slogbetterstack.Option{
				Level:    logLevel,
				Token:    opts.BetterStackToken,
				Endpoint: opts.BetterStackEndpoint,
			}.NewBetterstackHandler(),
			s: remote,
		})
	}

	return &Logger{Logger: slog.New(tracingHandler{next: handler}), remote: remote}
}

// ParseLevel maps a config string to a slog level; unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "timestamp"
	case slog.LevelKey:
		a.Key = "level"
		level := a.Value.String()
		if level == "WARN" {
			level = "warning"
		} else {
			level = strings.ToLower(level)
		}
		a.Value = slog.StringValue(level)
	case slog.MessageKey:
		a.Key = "message"
	}
	return a
}

// Shutdown drains records queued for Better Stack, if shipping is on.
func (l *Logger) Shutdown(ctx context.Context) error {
	if l == nil || l.remote == nil {
		return nil
	}
	return l.remote.stop(ctx)
}

// Dropped reports how many records were not shipped because the queue was full.
func (l *Logger) Dropped() uint64 {
	if l == nil || l.remote == nil {
		return 0
	}
	return l.remote.dropped.Load()
}

func (l *Logger) derive(inner *slog.Logger) *Logger {
	return &Logger{Logger: inner, remote: l.remote}
}

// WithModule creates a new entry with module field
func (l *Logger) WithModule(module string) *Logger {
	return l.derive(l.With("module", module))
}

// WithRequestID creates a new entry with request ID field
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.derive(l.With("request_id", requestID))
}

// WithError creates a new entry with error field
func (l *Logger) WithError(err error) *Logger {
	return l.derive(l.With("error", err))
}

// WithField creates a new entry with a single field
func (l *Logger) WithField(key string, value any) *Logger {
	return l.derive(l.With(key, value))
}

// WithFields creates a new entry with multiple fields
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.derive(l.With(args...))
}

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...))
}

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.Debug(fmt.Sprintf(format, args...))
}
