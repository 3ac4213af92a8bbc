package curves

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprEnv is the environment an expression curve is evaluated in.
// The normalized input is exposed as "x".
type exprEnv struct {
	X float64 `expr:"x"`
}

var exprFuncs = []expr.Option{
	unary("exp", math.Exp),
	unary("sqrt", math.Sqrt),
	unary("log", math.Log),
	unary("sin", math.Sin),
	unary("cos", math.Cos),
	expr.Function("pow",
		func(params ...any) (any, error) {
			return math.Pow(toFloat(params[0]), toFloat(params[1])), nil
		},
		new(func(float64, float64) float64),
	),
	expr.Function("clamp",
		func(params ...any) (any, error) {
			return Clamp01(toFloat(params[0])), nil
		},
		new(func(float64) float64),
	),
}

func unary(name string, fn func(float64) float64) expr.Option {
	return expr.Function(name,
		func(params ...any) (any, error) {
			return fn(toFloat(params[0])), nil
		},
		new(func(float64) float64),
	)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return math.NaN()
}

// ExprCurve is a curve authored as an expr-lang expression of x,
// e.g. "1 - (x - 0.5) ** 2 * 4".
type ExprCurve struct {
	src     string
	program *vm.Program
}

// Expr compiles src into a curve.
func Expr(src string) (*ExprCurve, error) {
	opts := append([]expr.Option{expr.Env(exprEnv{}), expr.AsFloat64()}, exprFuncs...)
	program, err := expr.Compile(src, opts...)
	if err != nil {
		return nil, fmt.Errorf("compiling curve expression %q: %w", src, err)
	}
	return &ExprCurve{src: src, program: program}, nil
}

// Sample implements Curve. Evaluation errors yield NaN, which Eval maps to 0.
func (c *ExprCurve) Sample(x float64) float64 {
	out, err := expr.Run(c.program, exprEnv{X: x})
	if err != nil {
		return math.NaN()
	}
	if f, ok := out.(float64); ok {
		return f
	}
	return math.NaN()
}

// String returns the source expression.
func (c *ExprCurve) String() string { return c.src }
