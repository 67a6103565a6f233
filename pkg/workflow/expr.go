package workflow

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

var interpolation = regexp.MustCompile(`\$\{\{\s*(.*?)\s*\}\}`)

// Scope holds the values expressions can refer to as matrix.<key>,
// env.<key> and event.<key>.
type Scope struct {
	Matrix map[string]string
	Env    map[string]string
	Event  map[string]string
}

func (s Scope) vars() map[string]interface{} {
	orEmpty := func(m map[string]string) map[string]string {
		if m == nil {
			return map[string]string{}
		}

		return m
	}

	return map[string]interface{}{
		"matrix": orEmpty(s.Matrix),
		"env":    orEmpty(s.Env),
		"event":  orEmpty(s.Event),
	}
}

// Evaluator compiles and evaluates step conditions and ${{ }} interpolations.
// Compiled programs are cached, it is safe for concurrent use.
type Evaluator struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("matrix", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("env", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("event", cel.MapType(cel.StringType, cel.StringType)),
	)

	if err != nil {
		return nil, fmt.Errorf("could not create expression environment: %w", err)
	}

	return &Evaluator{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.programs[expr]; ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(expr)

	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("could not compile expression %q: %w", expr, iss.Err())
	}

	prg, err := e.env.Program(ast)

	if err != nil {
		return nil, fmt.Errorf("could not build program for expression %q: %w", expr, err)
	}

	e.programs[expr] = prg

	return prg, nil
}

func (e *Evaluator) Eval(expr string, scope Scope) (interface{}, error) {
	prg, err := e.program(expr)

	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(scope.vars())

	if err != nil {
		return nil, fmt.Errorf("could not evaluate expression %q: %w", expr, err)
	}

	return out.Value(), nil
}

// Condition evaluates an if: expression. An empty condition is true.
func (e *Evaluator) Condition(expr string, scope Scope) (bool, error) {
	expr = strings.TrimSpace(expr)

	if m := interpolation.FindStringSubmatch(expr); m != nil && m[0] == expr {
		expr = m[1]
	}

	if expr == "" {
		return true, nil
	}

	val, err := e.Eval(expr, scope)

	if err != nil {
		return false, err
	}

	b, ok := val.(bool)

	if !ok {
		return false, fmt.Errorf("condition %q evaluated to %T, not bool", expr, val)
	}

	return b, nil
}

// Interpolate replaces every ${{ expr }} in s with the value of expr.
func (e *Evaluator) Interpolate(s string, scope Scope) (string, error) {
	var evalErr error

	res := interpolation.ReplaceAllStringFunc(s, func(match string) string {
		if evalErr != nil {
			return match
		}

		expr := interpolation.FindStringSubmatch(match)[1]

		val, err := e.Eval(expr, scope)

		if err != nil {
			evalErr = err
			return match
		}

		return fmt.Sprint(val)
	})

	if evalErr != nil {
		return "", evalErr
	}

	return res, nil
}

// InterpolateMap interpolates every value of m.
func (e *Evaluator) InterpolateMap(m map[string]string, scope Scope) (map[string]string, error) {
	res := make(map[string]string, len(m))

	for k, v := range m {
		iv, err := e.Interpolate(v, scope)

		if err != nil {
			return nil, fmt.Errorf("env %s: %w", k, err)
		}

		res[k] = iv
	}

	return res, nil
}

// checkSyntax compiles every expression in s without evaluating it.
func (e *Evaluator) checkSyntax(s string, isCondition bool) error {
	if isCondition {
		s = strings.TrimSpace(s)

		if m := interpolation.FindStringSubmatch(s); m != nil && m[0] == s {
			s = m[1]
		}

		if s == "" {
			return nil
		}

		_, err := e.program(s)

		return err
	}

	for _, m := range interpolation.FindAllStringSubmatch(s, -1) {
		if _, err := e.program(m[1]); err != nil {
			return err
		}
	}

	return nil
}
