// Package curves provides the response curves that map a normalized
// consideration input to a utility score.
package curves

import "math"

// Curve maps a normalized input in [0,1] to a utility in [0,1].
// Implementations must be pure; they are sampled concurrently.
type Curve interface {
	Sample(x float64) float64
}

// Func adapts a plain function to Curve.
type Func func(x float64) float64

// Sample implements Curve.
func (f Func) Sample(x float64) float64 { return f(x) }

// Clamp01 clamps v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 1:
		return 1
	}
	return v
}

// Eval samples c at x, clamping both input and output to [0,1].
func Eval(c Curve, x float64) float64 {
	return Clamp01(c.Sample(Clamp01(x)))
}

// Constant always returns V.
type Constant struct{ V float64 }

func (c Constant) Sample(float64) float64 { return c.V }

// Power returns x^K. K>1 is convex, 0<K<1 concave.
type Power struct{ K float64 }

func (p Power) Sample(x float64) float64 { return math.Pow(x, p.K) }

// Exponential is an ease-in exponential: 0 at 0, 1 at 1 and 0.5 at 0.9.
type Exponential struct{}

func (Exponential) Sample(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Pow(2, 10*(x-1))
}

// Logistic is an S-curve with the given steepness and midpoint, rescaled so
// that it passes exactly through (0,0) and (1,1).
type Logistic struct {
	Steepness float64
	Midpoint  float64
}

func (l Logistic) Sample(x float64) float64 {
	if l.Steepness == 0 {
		return x
	}
	f := func(v float64) float64 { return 1 / (1 + math.Exp(-l.Steepness*(v-l.Midpoint))) }
	lo, hi := f(0), f(1)
	if hi == lo {
		return x
	}
	return (f(x) - lo) / (hi - lo)
}

// Step returns 1 once x reaches Threshold, 0 below it.
type Step struct{ Threshold float64 }

func (s Step) Sample(x float64) float64 {
	if x >= s.Threshold {
		return 1
	}
	return 0
}

// Inverse flips a curve vertically: 1 - f(x).
type Inverse struct{ Curve Curve }

func (i Inverse) Sample(x float64) float64 { return 1 - Clamp01(i.Curve.Sample(x)) }

// Mirror folds the input around 0.5 so the wrapped curve is traced up to the
// midpoint and back down again.
type Mirror struct{ Curve Curve }

func (m Mirror) Sample(x float64) float64 {
	return m.Curve.Sample(1 - math.Abs(2*x-1))
}

// Average is the mean of two curves.
type Average struct{ A, B Curve }

func (a Average) Sample(x float64) float64 {
	return (Clamp01(a.A.Sample(x)) + Clamp01(a.B.Sample(x))) / 2
}

// SoftLeak raises the floor of a curve to Floor while keeping its top at 1.
type SoftLeak struct {
	Curve Curve
	Floor float64
}

func (s SoftLeak) Sample(x float64) float64 {
	return s.Floor + (1-s.Floor)*Clamp01(s.Curve.Sample(x))
}

// HardLeak adds Bias to a curve and clips the result.
type HardLeak struct {
	Curve Curve
	Bias  float64
}

func (h HardLeak) Sample(x float64) float64 {
	return Clamp01(h.Bias + h.Curve.Sample(x))
}

var (
	Linear      Curve = Func(func(x float64) float64 { return x })
	AntiLinear  Curve = Inverse{Linear}
	Square      Curve = Power{K: 2}
	AntiSquare  Curve = Inverse{Square}
	AtLeast     Curve = Step{Threshold: 1}
	LessThan    Curve = Inverse{AtLeast}
	Equals      Curve = Mirror{AtLeast}
	NotEquals   Curve = Inverse{Equals}
	Triangle    Curve = Mirror{Linear}
	AntiTri     Curve = Inverse{Triangle}
	QuasiGauss  Curve = Mirror{Square}
	AntiGauss   Curve = Inverse{QuasiGauss}
	ExpIn       Curve = Exponential{}
	AntiExpIn   Curve = Inverse{ExpIn}
	ConstZero   Curve = Constant{V: 0}
	ConstHalf   Curve = Constant{V: 0.5}
	ConstMax    Curve = Constant{V: 1}
	LinearLeak  Curve = SoftLeak{Curve: Linear, Floor: 0.25}
	AntiLinLeak Curve = SoftLeak{Curve: AntiLinear, Floor: 0.25}
)
