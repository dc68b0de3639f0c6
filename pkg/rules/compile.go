package rules

import (
	"strings"
	"sync"

	patcher "github.com/goliatone/go-patcher"
	"github.com/goliatone/go-patcher/internal/hydrate"
)

// CompileOption configures Compile and Install.
type CompileOption func(*compiler)

// WithEngineOptions applies opts to every engine created during compilation.
func WithEngineOptions(opts ...EngineOption) CompileOption {
	return func(c *compiler) {
		c.engineOpts = append(c.engineOpts, opts...)
	}
}

// WithEngine uses engine for rules naming engine.Name() instead of a fresh
// instance.
func WithEngine(engine Engine) CompileOption {
	return func(c *compiler) {
		if engine == nil {
			return
		}
		c.engines[normalizeEngine(engine.Name())] = engine
	}
}

type compiler struct {
	mu         sync.Mutex
	engineOpts []EngineOption
	engines    map[string]Engine
}

func newCompiler(opts []CompileOption) *compiler {
	c := &compiler{engines: make(map[string]Engine)}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *compiler) engine(name string) (Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if engine, ok := c.engines[name]; ok {
		return engine, nil
	}
	engine, err := NewEngine(name, c.engineOpts...)
	if err != nil {
		return nil, err
	}
	c.engines[name] = engine
	return engine, nil
}

// Compile turns rule into an action patcher. The patcher keeps every field of
// the action and replaces Payload with the result of the payload expression.
// When the when expression evaluates to false the action is returned as is.
func Compile[S any](rule Rule, opts ...CompileOption) (patcher.ActionPatcher[S, any], error) {
	return compileRule[S](newCompiler(opts), rule, normalizeEngine(rule.Engine))
}

// Install compiles every rule of set and registers them into registry. Nothing
// is registered unless the whole set compiles.
func Install[S any](registry *patcher.Registry[S], set Set, opts ...CompileOption) (map[string]patcher.ActionCreator[any], error) {
	if registry == nil {
		return nil, patcher.ErrRegistryRequired
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	c := newCompiler(opts)
	compiled := make([]patcher.ActionPatcher[S, any], 0, len(set.Rules))
	for _, rule := range set.Rules {
		fn, err := compileRule[S](c, rule, set.EngineFor(rule))
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, fn)
	}

	factory := patcher.Bind(registry)
	creators := make(map[string]patcher.ActionCreator[any], len(compiled))
	for i, rule := range set.Rules {
		creator, err := patcher.RegisterAction(factory, strings.TrimSpace(rule.Type), compiled[i])
		if err != nil {
			return nil, err
		}
		creators[creator.Type()] = creator
	}
	return creators, nil
}

func compileRule[S any](c *compiler, rule Rule, engineName string) (patcher.ActionPatcher[S, any], error) {
	typ := strings.TrimSpace(rule.Type)
	if typ == "" {
		return nil, patcher.ErrTypeRequired
	}
	engine, err := c.engine(engineName)
	if err != nil {
		return nil, &CompileError{Type: typ, Engine: engineName, Expr: rule.Payload, Err: err}
	}
	payloadProgram, err := engine.Compile(rule.Payload)
	if err != nil {
		return nil, &CompileError{Type: typ, Engine: engineName, Expr: rule.Payload, Err: err}
	}
	var guard Program
	if strings.TrimSpace(rule.When) != "" {
		guard, err = engine.Compile(rule.When)
		if err != nil {
			return nil, &CompileError{Type: typ, Engine: engineName, Expr: rule.When, Err: err}
		}
	}

	fail := func(expr string, err error) error {
		return &EvaluationError{Type: typ, Engine: engineName, Expr: expr, Err: err}
	}
	return func(action patcher.TypedAction[any], state S) (patcher.Action, error) {
		out := action.Untyped()
		env, err := newEnv(action, state)
		if err != nil {
			return patcher.Action{}, fail("", err)
		}
		if guard != nil {
			result, err := guard.Run(env)
			if err != nil {
				return patcher.Action{}, fail(rule.When, err)
			}
			pass, ok := result.(bool)
			if !ok {
				return patcher.Action{}, fail(rule.When, ErrGuardNotBool)
			}
			if !pass {
				return out, nil
			}
		}
		result, err := payloadProgram.Run(env)
		if err != nil {
			return patcher.Action{}, fail(rule.Payload, err)
		}
		payload, err := hydrate.Normalize(result)
		if err != nil {
			return patcher.Action{}, fail(rule.Payload, err)
		}
		out.Payload = payload
		return out, nil
	}, nil
}

func newEnv[S any](action patcher.TypedAction[any], state S) (Env, error) {
	payload, err := hydrate.Normalize(action.Payload)
	if err != nil {
		return Env{}, err
	}
	snapshot, err := hydrate.Normalize(state)
	if err != nil {
		return Env{}, err
	}
	meta, err := hydrate.ToMap(action.Meta)
	if err != nil {
		return Env{}, err
	}
	return Env{
		Payload: payload,
		State:   snapshot,
		Meta:    meta,
		Action: map[string]any{
			"type":    action.Type,
			"payload": payload,
			"error":   action.Error,
			"meta":    meta,
		},
	}, nil
}
