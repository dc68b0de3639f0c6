package patcher

import (
	"time"

	"github.com/goliatone/go-patcher/pkg/activity"
	"github.com/google/uuid"
)

// Option configures a middleware.
type Option func(*config)

type config struct {
	logger          PatchLogger
	activityHooks   activity.Hooks
	activityChannel string
	now             func() time.Time
	dispatchID      func() string
}

func applyOptions(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopPatchLogger{}
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.dispatchID == nil {
		cfg.dispatchID = uuid.NewString
	}
	return cfg
}

// WithPatchLogger attaches a logger for interceptions and, on scoped
// middleware, for registrations into the instance registry.
func WithPatchLogger(logger PatchLogger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopPatchLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithClock overrides the time source used for durations and event
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(cfg *config) {
		cfg.now = now
	}
}

// WithDispatchIDs overrides the generator for the correlation id attached to
// activity events. Defaults to random UUIDs.
func WithDispatchIDs(next func() string) Option {
	return func(cfg *config) {
		cfg.dispatchID = next
	}
}
