package patcher

import (
	"context"

	"github.com/goliatone/go-patcher/pkg/activity"
)

// WithActivityHooks emits an activity event for every applied or failed
// patch. Hooks are cloned and nil entries dropped. Hook failures are logged
// and never reach the dispatch caller.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *config) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel sets the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *config) {
		cfg.activityChannel = channel
	}
}

// ActivityHooks returns a cloned slice of the configured hooks.
func (m *Middleware[S]) ActivityHooks() activity.Hooks {
	if m == nil {
		return nil
	}
	return cloneActivityHooks(m.cfg.activityHooks)
}

func newEmitter(cfg config) *activity.Emitter {
	return activity.NewEmitter(cfg.activityHooks, activity.Config{
		Enabled: len(cfg.activityHooks) > 0,
		Channel: cfg.activityChannel,
	})
}

func (m *Middleware[S]) emit(input activity.PatchEventInput) {
	if !m.emitter.Enabled() {
		return
	}
	input.DispatchID = m.cfg.dispatchID()
	input.OccurredAt = m.cfg.now()

	event := activity.BuildActionPatchedEvent(input)
	if input.Err != nil {
		event = activity.BuildActionPatchFailedEvent(input)
	}
	if err := m.emitter.Emit(context.Background(), event); err != nil {
		m.cfg.logger.LogPatch(PatchLogEvent{
			Kind:  ActivityFailed,
			Type:  input.Type,
			Scope: input.Scope,
			Err:   err,
		})
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
