package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a host function callable from rule expressions.
type Function func(args ...any) (any, error)

// Functions stores host functions keyed by lower-cased name.
type Functions struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctions constructs an empty function set.
func NewFunctions() *Functions {
	return &Functions{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *Functions) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("rules: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("rules: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("rules: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy.
func (r *Functions) Clone() *Functions {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &Functions{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *Functions) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("rules: no functions configured")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("rules: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *Functions) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
