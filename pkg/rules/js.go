//go:build js_eval

package rules

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

type jsEngine struct {
	cfg engineConfig
}

func newJSEngine(cfg engineConfig) (Engine, error) {
	return &jsEngine{cfg: cfg}, nil
}

func (e *jsEngine) Name() string {
	return EngineJS
}

func (e *jsEngine) Compile(expression string) (Program, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, ErrEmptyExpression
	}
	if cached, ok := e.cfg.cached(EngineJS, expression); ok {
		if program, ok := cached.(*goja.Program); ok {
			return jsProgram{engine: e, program: program}, nil
		}
	}
	program, err := goja.Compile("", wrapExpression(expression), false)
	if err != nil {
		return nil, err
	}
	e.cfg.store(EngineJS, expression, program)
	return jsProgram{engine: e, program: program}, nil
}

func wrapExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

type jsProgram struct {
	engine  *jsEngine
	program *goja.Program
}

// Run executes the program in a fresh runtime; goja runtimes are not safe
// for concurrent use.
func (p jsProgram) Run(env Env) (any, error) {
	vm := goja.New()
	for key, value := range env.variables() {
		if err := vm.Set(key, value); err != nil {
			return nil, err
		}
	}
	functions := p.engine.cfg.functions
	for _, name := range functions.Names() {
		fn := name
		if err := vm.Set(fn, func(arguments ...any) (any, error) {
			return functions.Call(fn, arguments...)
		}); err != nil {
			return nil, err
		}
	}
	value, err := vm.RunProgram(p.program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

func jsAvailable() bool {
	return true
}
