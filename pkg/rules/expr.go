package rules

import (
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEngine compiles expressions with github.com/expr-lang/expr.
type exprEngine struct {
	cfg engineConfig
}

func newExprEngine(cfg engineConfig) Engine {
	return &exprEngine{cfg: cfg}
}

func (e *exprEngine) Name() string {
	return EngineExpr
}

func (e *exprEngine) Compile(expression string) (Program, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, ErrEmptyExpression
	}
	if cached, ok := e.cfg.cached(EngineExpr, expression); ok {
		if program, ok := cached.(*exprvm.Program); ok {
			return exprProgram{program: program}, nil
		}
	}

	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range e.cfg.functions.Names() {
		options = append(options, exprlang.Function(name, e.function(name)))
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, err
	}
	e.cfg.store(EngineExpr, expression, program)
	return exprProgram{program: program}, nil
}

func (e *exprEngine) function(name string) func(...any) (any, error) {
	functions := e.cfg.functions
	return func(arguments ...any) (any, error) {
		return functions.Call(name, arguments...)
	}
}

type exprProgram struct {
	program *exprvm.Program
}

func (p exprProgram) Run(env Env) (any, error) {
	return exprlang.Run(p.program, env.variables())
}
