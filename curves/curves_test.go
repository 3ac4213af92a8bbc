package curves

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCurves(t *testing.T) {
	tests := []struct {
		name  string
		curve Curve
		x     float64
		want  float64
	}{
		{"linear zero", Linear, 0, 0},
		{"linear mid", Linear, 0.3, 0.3},
		{"anti linear", AntiLinear, 0.25, 0.75},
		{"square", Square, 0.5, 0.25},
		{"anti square", AntiSquare, 0.5, 0.75},
		{"exp in at zero", ExpIn, 0, 0},
		{"exp in at 0.9", ExpIn, 0.9, 0.5},
		{"exp in at one", ExpIn, 1, 1},
		{"at least below", AtLeast, 0.99, 0},
		{"at least top", AtLeast, 1, 1},
		{"less than", LessThan, 0.5, 1},
		{"equals mid", Equals, 0.5, 1},
		{"equals off", Equals, 0.4, 0},
		{"not equals mid", NotEquals, 0.5, 0},
		{"triangle peak", Triangle, 0.5, 1},
		{"triangle edge", Triangle, 1, 0},
		{"triangle quarter", Triangle, 0.25, 0.5},
		{"anti triangle", AntiTri, 0.5, 0},
		{"quasi gauss quarter", QuasiGauss, 0.25, 0.25},
		{"const half", ConstHalf, 0.9, 0.5},
		{"soft leak floor", LinearLeak, 0, 0.25},
		{"soft leak top", LinearLeak, 1, 1},
		{"anti soft leak", AntiLinLeak, 1, 0.25},
		{"step", Step{Threshold: 0.3}, 0.3, 1},
		{"hard leak clips", HardLeak{Curve: Linear, Bias: 0.5}, 0.8, 1},
		{"average", Average{A: ConstZero, B: ConstMax}, 0.1, 0.5},
		{"logistic lower end", Logistic{Steepness: 10, Midpoint: 0.5}, 0, 0},
		{"logistic upper end", Logistic{Steepness: 10, Midpoint: 0.5}, 1, 1},
		{"logistic midpoint", Logistic{Steepness: 10, Midpoint: 0.5}, 0.5, 0.5},
		{"flat logistic is linear", Logistic{}, 0.7, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Eval(tt.curve, tt.x), 1e-9)
		})
	}
}

func TestEvalClamps(t *testing.T) {
	wild := Func(func(x float64) float64 { return x*4 - 2 })
	assert.Equal(t, 0.0, Eval(wild, 0))
	assert.Equal(t, 1.0, Eval(wild, 1))
	assert.Equal(t, 0.0, Eval(Func(func(float64) float64 { return math.NaN() }), 0.5))
	// Input is clamped before sampling
	assert.Equal(t, 1.0, Eval(Linear, 7))
	assert.Equal(t, 0.0, Eval(Linear, -3))
}

func TestLogisticMonotonic(t *testing.T) {
	c := Logistic{Steepness: 8, Midpoint: 0.3}
	prev := -1.0
	for i := 0; i <= 100; i++ {
		v := Eval(c, float64(i)/100)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
}

func TestLibraryResolve(t *testing.T) {
	lib := NewLibrary()

	c, err := lib.Resolve("Square")
	require.NoError(t, err)
	assert.InDelta(t, 0.09, Eval(c, 0.3), 1e-12)

	_, err = lib.Resolve("Wobbly")
	assert.ErrorIs(t, err, ErrUnknownCurve)

	require.NoError(t, lib.Register("Wobbly", ConstHalf))
	c, err = lib.Resolve("Wobbly")
	require.NoError(t, err)
	assert.Equal(t, 0.5, Eval(c, 0))

	assert.Error(t, lib.Register("", Linear))
	assert.Error(t, lib.Register("expr:x", Linear))
	assert.Error(t, lib.Register("nil", nil))
	assert.Contains(t, lib.Names(), "Wobbly")
}

func TestLibraryIsolation(t *testing.T) {
	a, b := NewLibrary(), NewLibrary()
	require.NoError(t, a.Register("Custom", ConstMax))
	_, err := b.Resolve("Custom")
	assert.ErrorIs(t, err, ErrUnknownCurve)
}

func TestExprCurve(t *testing.T) {
	tests := []struct {
		src  string
		x    float64
		want float64
	}{
		{"x", 0.4, 0.4},
		{"1 - x", 0.25, 0.75},
		{"x ** 2", 0.5, 0.25},
		{"sqrt(x)", 0.25, 0.5},
		{"clamp(x * 3)", 0.5, 1},
		{"pow(x, 3)", 0.5, 0.125},
		{"1", 0.3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			c, err := Expr(tt.src)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, Eval(c, tt.x), 1e-9)
			assert.Equal(t, tt.src, c.String())
		})
	}
}

func TestExprCurveViaLibrary(t *testing.T) {
	c, err := NewLibrary().Resolve("expr: 1 - x")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, Eval(c, 0.1), 1e-12)
}

func TestExprCurveRejectsBadSource(t *testing.T) {
	_, err := Expr("x +")
	assert.Error(t, err)
	_, err = Expr("y")
	assert.Error(t, err)
	_, err = Expr(`"text"`)
	assert.Error(t, err)
}
