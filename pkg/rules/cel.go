package rules

import (
	"fmt"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// celMaxArity bounds the overloads declared for each host function.
const celMaxArity = 4

type celEngine struct {
	cfg engineConfig
	env *celgo.Env
}

func newCELEngine(cfg engineConfig) (Engine, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("payload", celgo.DynType),
		celgo.Variable("state", celgo.DynType),
		celgo.Variable("meta", celgo.MapType(celgo.StringType, celgo.DynType)),
		celgo.Variable("action", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	for _, name := range cfg.functions.Names() {
		opts = append(opts, celFunction(name, cfg.functions))
	}
	env, err := celgo.NewEnv(opts...)
	if err != nil {
		return nil, err
	}
	return &celEngine{cfg: cfg, env: env}, nil
}

func (e *celEngine) Name() string {
	return EngineCEL
}

func (e *celEngine) Compile(expression string) (Program, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, ErrEmptyExpression
	}
	if cached, ok := e.cfg.cached(EngineCEL, expression); ok {
		if program, ok := cached.(celgo.Program); ok {
			return celProgram{program: program}, nil
		}
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, err
	}
	e.cfg.store(EngineCEL, expression, program)
	return celProgram{program: program}, nil
}

type celProgram struct {
	program celgo.Program
}

func (p celProgram) Run(env Env) (any, error) {
	out, _, err := p.program.Eval(env.variables())
	if err != nil {
		return nil, err
	}
	return celNative(out)
}

// celNative converts a CEL value into plain Go values, recursing into maps
// and lists so no ref.Val leaks out.
func celNative(val ref.Val) (any, error) {
	if val == nil {
		return nil, nil
	}
	if err, ok := val.(*types.Err); ok {
		return nil, err
	}
	switch typed := val.(type) {
	case types.Null:
		return nil, nil
	case traits.Mapper:
		out := make(map[string]any)
		it := typed.Iterator()
		for it.HasNext() == types.True {
			key := it.Next()
			name, ok := key.Value().(string)
			if !ok {
				return nil, fmt.Errorf("rules: cel map key %v is not a string", key.Value())
			}
			item, err := celNative(typed.Get(key))
			if err != nil {
				return nil, err
			}
			out[name] = item
		}
		return out, nil
	case traits.Lister:
		size, _ := typed.Size().(types.Int)
		out := make([]any, 0, int(size))
		for i := types.Int(0); i < size; i++ {
			item, err := celNative(typed.Get(i))
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	}
	return val.Value(), nil
}

func celFunction(name string, functions *Functions) celgo.EnvOption {
	binding := celgo.FunctionBinding(func(values ...ref.Val) ref.Val {
		args := make([]any, 0, len(values))
		for _, value := range values {
			native, err := celNative(value)
			if err != nil {
				return types.NewErr("%s", err.Error())
			}
			args = append(args, native)
		}
		result, err := functions.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	})

	overloads := make([]celgo.FunctionOpt, 0, celMaxArity+1)
	for arity := 0; arity <= celMaxArity; arity++ {
		args := make([]*celgo.Type, arity)
		for i := range args {
			args[i] = celgo.DynType
		}
		overloads = append(overloads, celgo.Overload(fmt.Sprintf("%s_dyn_%d", name, arity), args, celgo.DynType, binding))
	}
	return celgo.Function(name, overloads...)
}
