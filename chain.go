package patcher

import "fmt"

// Resolution pairs a patcher with the scope of the registry that supplied it.
type Resolution[S any] struct {
	Patcher Patcher[S]
	Scope   string
}

// Chain is an ordered list of registries consulted strongest first. The first
// registry holding a type wins; weaker registries are never consulted for it.
type Chain[S any] struct {
	registries []*Registry[S]
}

// NewChain orders registries as given (strongest first). Nil registries are
// skipped so optional scopes can be passed through unconditionally.
func NewChain[S any](registries ...*Registry[S]) (*Chain[S], error) {
	seen := make(map[string]struct{}, len(registries))
	ordered := make([]*Registry[S], 0, len(registries))
	for _, registry := range registries {
		if registry == nil {
			continue
		}
		if _, ok := seen[registry.Name()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScope, registry.Name())
		}
		seen[registry.Name()] = struct{}{}
		ordered = append(ordered, registry)
	}
	return &Chain[S]{registries: ordered}, nil
}

// Resolve returns the patcher for typ from the strongest registry holding it.
func (c *Chain[S]) Resolve(typ string) (Resolution[S], bool) {
	if c == nil {
		return Resolution[S]{}, false
	}
	for _, registry := range c.registries {
		if fn, ok := registry.Lookup(typ); ok {
			return Resolution[S]{Patcher: fn, Scope: registry.Name()}, true
		}
	}
	return Resolution[S]{}, false
}

// Scopes returns registry names strongest first.
func (c *Chain[S]) Scopes() []string {
	if c == nil || len(c.registries) == 0 {
		return nil
	}
	names := make([]string, len(c.registries))
	for i, registry := range c.registries {
		names[i] = registry.Name()
	}
	return names
}

// Len returns the number of registries in the chain.
func (c *Chain[S]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.registries)
}
