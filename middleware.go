package patcher

import (
	"github.com/goliatone/go-patcher/pkg/activity"
)

// Middleware rewrites dispatched actions using the patchers found in an
// ordered list of registries.
type Middleware[S any] struct {
	chain   *Chain[S]
	cfg     config
	emitter *activity.Emitter
}

// NewMiddleware builds the global form: only global is consulted. A nil
// registry yields a middleware that forwards every action unchanged.
func NewMiddleware[S any](global *Registry[S], opts ...Option) *Middleware[S] {
	return newMiddleware(applyOptions(opts), global)
}

// NewChainMiddleware builds a middleware over an explicit chain, for setups
// with more scopes than instance and global.
func NewChainMiddleware[S any](chain *Chain[S], opts ...Option) *Middleware[S] {
	if chain == nil {
		chain = &Chain[S]{}
	}
	cfg := applyOptions(opts)
	return &Middleware[S]{
		chain:   chain,
		cfg:     cfg,
		emitter: newEmitter(cfg),
	}
}

func newMiddleware[S any](cfg config, registries ...*Registry[S]) *Middleware[S] {
	ordered := make([]*Registry[S], 0, len(registries))
	for _, registry := range registries {
		if registry != nil {
			ordered = append(ordered, registry)
		}
	}
	return &Middleware[S]{
		chain:   &Chain[S]{registries: ordered},
		cfg:     cfg,
		emitter: newEmitter(cfg),
	}
}

// Scopes returns the registry names consulted, strongest first.
func (m *Middleware[S]) Scopes() []string {
	return m.chain.Scopes()
}

// Stage returns the pipeline stage. The state is read from the store at the
// moment a patcher is found, never cached between dispatches.
func (m *Middleware[S]) Stage() Stage[S] {
	return func(store Store[S]) func(next Dispatch) Dispatch {
		getState := func() S {
			var zero S
			if store == nil {
				return zero
			}
			return store.GetState()
		}
		return func(next Dispatch) Dispatch {
			return func(action Action) (any, error) {
				outgoing, _, err := m.patch(action, getState)
				if err != nil {
					return nil, err
				}
				return next(outgoing)
			}
		}
	}
}

// Patch resolves and applies the patcher for action against state without
// forwarding. The bool reports whether a patcher was found; when it was not,
// action is returned unchanged.
func (m *Middleware[S]) Patch(action Action, state S) (Action, bool, error) {
	return m.patch(action, func() S { return state })
}

func (m *Middleware[S]) patch(action Action, state func() S) (Action, bool, error) {
	resolution, ok := m.chain.Resolve(action.Type)
	if !ok {
		return action, false, nil
	}

	start := m.cfg.now()
	patched, err := resolution.Patcher(action, state())
	duration := m.cfg.now().Sub(start)
	if err != nil {
		m.cfg.logger.LogPatch(PatchLogEvent{
			Kind:     PatchFailed,
			Type:     action.Type,
			Scope:    resolution.Scope,
			Duration: duration,
			Err:      err,
		})
		m.emit(activity.PatchEventInput{
			Type:  action.Type,
			Scope: resolution.Scope,
			Err:   err,
		})
		return Action{}, true, err
	}

	// A patcher can never redirect an action: the intercepted type always wins.
	var discarded string
	if patched.Type != "" && patched.Type != action.Type {
		discarded = patched.Type
	}
	patched.Type = action.Type

	m.cfg.logger.LogPatch(PatchLogEvent{
		Kind:      PatchApplied,
		Type:      action.Type,
		Scope:     resolution.Scope,
		Duration:  duration,
		Discarded: discarded,
	})
	m.emit(activity.PatchEventInput{
		Type:          action.Type,
		Scope:         resolution.Scope,
		DiscardedType: discarded,
	})
	return patched, true, nil
}

// ScopedMiddleware owns a private instance registry that takes precedence
// over the shared global registry.
type ScopedMiddleware[S any] struct {
	*Middleware[S]
	instance *Registry[S]
}

// NewScopedMiddleware builds the instance form. Each call creates a fresh
// instance registry; global may be nil.
func NewScopedMiddleware[S any](global *Registry[S], opts ...Option) *ScopedMiddleware[S] {
	cfg := applyOptions(opts)
	instance := NewRegistry[S](ScopeInstance, WithRegistryLogger(cfg.logger))
	return &ScopedMiddleware[S]{
		Middleware: newMiddleware(cfg, instance, global),
		instance:   instance,
	}
}

// Registry returns the instance registry.
func (s *ScopedMiddleware[S]) Registry() *Registry[S] {
	return s.instance
}

// Factory returns a factory bound to the instance registry. Use it with
// RegisterAction and RegisterPayload.
func (s *ScopedMiddleware[S]) Factory() Factory[S] {
	return Bind(s.instance)
}
