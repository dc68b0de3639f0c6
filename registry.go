package patcher

import (
	"sort"
	"sync"
)

const (
	// ScopeGlobal names the application-wide registry.
	ScopeGlobal = "global"
	// ScopeInstance names the private registry of a scoped middleware.
	ScopeInstance = "instance"
)

// RegistryOption configures a Registry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	logger PatchLogger
}

// WithRegistryLogger reports registrations to logger.
func WithRegistryLogger(logger PatchLogger) RegistryOption {
	return func(cfg *registryConfig) {
		cfg.logger = logger
	}
}

// Registry maps action types to patchers. A later registration for the same
// type replaces the earlier one and entries are never removed.
//
// Registries are meant to be filled during setup and read during dispatch. The
// lock keeps map access sound; it does not order registrations against
// in-flight dispatches.
type Registry[S any] struct {
	name     string
	logger   PatchLogger
	mu       sync.RWMutex
	patchers map[string]Patcher[S]
}

// NewRegistry constructs an empty registry identified by name in logs and
// resolutions. An empty name defaults to ScopeGlobal.
func NewRegistry[S any](name string, opts ...RegistryOption) *Registry[S] {
	cfg := registryConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if name == "" {
		name = ScopeGlobal
	}
	logger := cfg.logger
	if logger == nil {
		logger = noopPatchLogger{}
	}
	return &Registry[S]{
		name:     name,
		logger:   logger,
		patchers: make(map[string]Patcher[S]),
	}
}

// Name returns the scope name of the registry.
func (r *Registry[S]) Name() string {
	if r == nil {
		return ""
	}
	return r.name
}

// Register stores fn under typ, replacing any earlier patcher for typ.
func (r *Registry[S]) Register(typ string, fn Patcher[S]) error {
	if r == nil {
		return ErrRegistryRequired
	}
	if typ == "" {
		return ErrTypeRequired
	}
	if fn == nil {
		return ErrPatcherRequired
	}
	r.mu.Lock()
	if r.patchers == nil {
		r.patchers = make(map[string]Patcher[S])
	}
	_, replaced := r.patchers[typ]
	r.patchers[typ] = fn
	r.mu.Unlock()

	r.log(PatchLogEvent{
		Kind:     PatchRegistered,
		Type:     typ,
		Scope:    r.name,
		Replaced: replaced,
	})
	return nil
}

// Lookup returns the patcher registered for typ.
func (r *Registry[S]) Lookup(typ string) (Patcher[S], bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	fn, ok := r.patchers[typ]
	r.mu.RUnlock()
	return fn, ok
}

// Len returns the number of registered types.
func (r *Registry[S]) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patchers)
}

// Types returns registered action types sorted alphabetically.
func (r *Registry[S]) Types() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.patchers))
	for typ := range r.patchers {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

func (r *Registry[S]) log(event PatchLogEvent) {
	if r.logger != nil {
		r.logger.LogPatch(event)
	}
}
