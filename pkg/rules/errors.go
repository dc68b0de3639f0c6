package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEngine indicates a rule naming an engine that does not exist.
	ErrUnknownEngine = errors.New("rules: unknown engine")
	// ErrEngineUnavailable indicates an engine left out of the build.
	ErrEngineUnavailable = errors.New("rules: engine not available in this build")
	// ErrEmptyExpression indicates a rule without a payload expression.
	ErrEmptyExpression = errors.New("rules: expression must not be empty")
	// ErrGuardNotBool indicates a when expression that did not yield a boolean.
	ErrGuardNotBool = errors.New("rules: when expression must evaluate to a boolean")
)

// CompileError captures the rule metadata alongside a compilation failure.
type CompileError struct {
	Type   string
	Engine string
	Expr   string
	Err    error
}

func (e *CompileError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rules: %s engine type=%q %s: %v", e.Engine, e.Type, describeExpression(e.Expr), e.Err)
}

func (e *CompileError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// EvaluationError captures the rule metadata alongside a runtime failure. It is
// what a rule-backed patcher returns into the dispatch.
type EvaluationError struct {
	Type   string
	Engine string
	Expr   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rules: %s evaluation type=%q %s: %v", e.Engine, e.Type, describeExpression(e.Expr), e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}
