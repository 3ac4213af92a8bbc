// Package main tunes engine and village parameters with CMA-ES.
package main

import (
	"github.com/pthm-cable/cortex/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "hysteresis", Path: "engine.hysteresis", Min: 0, Max: 0.3, Default: 0.05},
			{Name: "smart_object_range", Path: "sim.smart_object_range", Min: 20, Max: 150, Default: 80},
			{Name: "walk_speed", Path: "sim.walk_speed", Min: 4, Max: 30, Default: 12},
			{Name: "eat_rate", Path: "sim.eat_rate", Min: 5, Max: 40, Default: 20},
			{Name: "food_regrowth", Path: "sim.food_regrowth", Min: 0.1, Max: 3, Default: 0.5},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct, in Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)
	cfg.Engine.Hysteresis = c[0]
	cfg.Sim.SmartObjectRange = c[1]
	cfg.Sim.WalkSpeed = c[2]
	cfg.Sim.EatRate = c[3]
	cfg.Sim.FoodRegrowth = c[4]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Engine.Hysteresis,
		cfg.Sim.SmartObjectRange,
		cfg.Sim.WalkSpeed,
		cfg.Sim.EatRate,
		cfg.Sim.FoodRegrowth,
	}
}
