package rules

import (
	"fmt"
	"strings"
)

// Engine names accepted in rule files.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// DefaultEngine is used by rules that do not name one.
const DefaultEngine = EngineExpr

// Env is the environment a rule program runs against. Values are JSON-shaped:
// objects are map[string]any and numbers are float64.
type Env struct {
	Payload any
	State   any
	Meta    map[string]any
	// Action holds type, payload, error and meta of the intercepted action.
	Action map[string]any
}

func (e Env) variables() map[string]any {
	meta := e.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	action := e.Action
	if action == nil {
		action = map[string]any{}
	}
	return map[string]any{
		"payload": e.Payload,
		"state":   e.State,
		"meta":    meta,
		"action":  action,
	}
}

// Program is a compiled expression.
type Program interface {
	Run(env Env) (any, error)
}

// Engine compiles expressions for one expression language.
type Engine interface {
	Name() string
	Compile(expression string) (Program, error)
}

// EngineOption configures an engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	cache     ProgramCache
	functions *Functions
}

// WithProgramCache reuses compiled programs across Compile calls. Engines that
// share a cache should share the same functions.
func WithProgramCache(cache ProgramCache) EngineOption {
	return func(cfg *engineConfig) {
		cfg.cache = cache
	}
}

// WithFunctions exposes host functions to expressions. The set is cloned.
func WithFunctions(functions *Functions) EngineOption {
	return func(cfg *engineConfig) {
		if functions == nil {
			return
		}
		cfg.functions = functions.Clone()
	}
}

func applyEngineOptions(opts []EngineOption) engineConfig {
	cfg := engineConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// NewEngine constructs the engine called name. An empty name selects
// DefaultEngine.
func NewEngine(name string, opts ...EngineOption) (Engine, error) {
	cfg := applyEngineOptions(opts)
	switch normalizeEngine(name) {
	case EngineExpr:
		return newExprEngine(cfg), nil
	case EngineCEL:
		return newCELEngine(cfg)
	case EngineJS:
		return newJSEngine(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}

// Engines lists the engines available in this build.
func Engines() []string {
	names := []string{EngineCEL, EngineExpr}
	if jsAvailable() {
		names = append(names, EngineJS)
	}
	return names
}

func normalizeEngine(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return DefaultEngine
	}
	return name
}

func knownEngine(name string) bool {
	switch normalizeEngine(name) {
	case EngineExpr, EngineCEL, EngineJS:
		return true
	default:
		return false
	}
}

func (cfg engineConfig) cached(engine, expression string) (any, bool) {
	if cfg.cache == nil {
		return nil, false
	}
	return cfg.cache.Get(cacheKey(engine, expression))
}

func (cfg engineConfig) store(engine, expression string, program any) {
	if cfg.cache != nil {
		cfg.cache.Set(cacheKey(engine, expression), program)
	}
}
