// Package scoring turns consideration outputs into utility scores.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/cortex/actions"
	"github.com/pthm-cable/cortex/curves"
)

// ErrInvalidOutput marks a consideration that returned no value or a
// non-finite one. The candidate is discarded.
var ErrInvalidOutput = errors.New("invalid consideration output")

// Normalize maps raw into [0,1] over [min,max]. An empty range is malformed
// and never divided by; min > max is treated as the swapped range.
func Normalize(raw, min, max float64) (float64, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("%w: raw value %v", ErrInvalidOutput, raw)
	}
	if min == max {
		return 0, fmt.Errorf("%w: empty input range [%v,%v]", actions.ErrMalformedTemplate, min, max)
	}
	if min > max {
		min, max = max, min
	}
	return curves.Clamp01((raw - min) / (max - min)), nil
}

// Compensate corrects a product of n scores in [0,1] for the shrinkage
// multiplication causes as n grows. It leaves a single consideration
// unchanged, keeps 0 and 1 fixed and never exceeds 1.
func Compensate(product float64, n int) float64 {
	switch {
	case product <= 0:
		return 0
	case product >= 1:
		return 1
	case n <= 1:
		return product
	}
	mod := 1 - 1/float64(n)
	makeUp := (1 - product) * mod
	return product + makeUp*product
}

// Final combines a compensated product with the template priority.
func Final(product float64, n int, priority float64) float64 {
	return Compensate(product, n) * priority
}
