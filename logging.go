package patcher

import (
	"context"
	"log/slog"
	"time"
)

// PatchEventKind classifies a PatchLogEvent.
type PatchEventKind string

const (
	// PatchApplied is emitted after a patcher produced the outgoing action.
	PatchApplied PatchEventKind = "applied"
	// PatchFailed is emitted when a patcher returned an error.
	PatchFailed PatchEventKind = "failed"
	// PatchRegistered is emitted when a registry stores a patcher.
	PatchRegistered PatchEventKind = "registered"
	// ActivityFailed is emitted when an activity hook rejected an event.
	ActivityFailed PatchEventKind = "activity_failed"
)

// PatchLogEvent describes a registration or an interception for logging.
type PatchLogEvent struct {
	Kind     PatchEventKind
	Type     string
	Scope    string
	Duration time.Duration
	// Discarded holds a type returned by the patcher that was overwritten.
	Discarded string
	// Replaced reports a registration that overwrote an earlier patcher.
	Replaced bool
	Err      error
}

// PatchLogger records patch events.
type PatchLogger interface {
	LogPatch(PatchLogEvent)
}

// PatchLoggerFunc adapts a function to PatchLogger.
type PatchLoggerFunc func(PatchLogEvent)

// LogPatch implements PatchLogger.
func (f PatchLoggerFunc) LogPatch(event PatchLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopPatchLogger struct{}

func (noopPatchLogger) LogPatch(PatchLogEvent) {}

// NewSlogLogger writes patch events to logger. Failures log at error level,
// everything else at debug.
func NewSlogLogger(logger *slog.Logger) PatchLogger {
	if logger == nil {
		return noopPatchLogger{}
	}
	return slogPatchLogger{logger: logger}
}

type slogPatchLogger struct {
	logger *slog.Logger
}

func (l slogPatchLogger) LogPatch(event PatchLogEvent) {
	attrs := []slog.Attr{
		slog.String("type", event.Type),
		slog.String("scope", event.Scope),
	}
	if event.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", event.Duration))
	}
	if event.Discarded != "" {
		attrs = append(attrs, slog.String("discarded_type", event.Discarded))
	}
	if event.Replaced {
		attrs = append(attrs, slog.Bool("replaced", true))
	}
	level := slog.LevelDebug
	if event.Err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	l.logger.LogAttrs(context.Background(), level, "patcher: "+string(event.Kind), attrs...)
}
