package logx

import "log/slog"

// SlogAdapter adapts the standard library slog.Logger to the logx.Logger interface.
type SlogAdapter struct {
	l *slog.Logger
}

// NewSlogAdapter returns a Logger implementation backed by the provided *slog.Logger.
func NewSlogAdapter(l *slog.Logger) Logger {
	return &SlogAdapter{l: l}
}

// Debug logs a debug-level message with optional structured fields.
func (a *SlogAdapter) Debug(msg string, fields ...Field) { a.l.Debug(msg, args(fields)...) }

// Info logs an info-level message with optional structured fields.
func (a *SlogAdapter) Info(msg string, fields ...Field) { a.l.Info(msg, args(fields)...) }

// Warn logs a warning-level message with optional structured fields.
func (a *SlogAdapter) Warn(msg string, fields ...Field) { a.l.Warn(msg, args(fields)...) }

// Error logs an error-level message with optional structured fields.
func (a *SlogAdapter) Error(msg string, fields ...Field) { a.l.Error(msg, args(fields)...) }

// With returns a new logger with the provided fields attached to every subsequent log entry.
func (a *SlogAdapter) With(fields ...Field) Logger {
	return &SlogAdapter{l: a.l.With(args(fields)...)}
}

// Sync flushes buffered logs if supported; slog.Logger does not require flushing.
func (a *SlogAdapter) Sync() error { return nil }

func args(fields []Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}
