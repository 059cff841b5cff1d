// Package main provides CMA-ES optimization for hivemind drone steering parameters.
package main

import (
	"github.com/Dasch0/hivemind-mirror/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string                        // Human-readable name
	Path    string                        // Config path for logging
	Min     float64                       // Lower bound
	Max     float64                       // Upper bound
	Default float64                       // Default value
	Field   func(*config.Config) *float64 // Config field the value is written to
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Steering
			{Name: "turn_speed", Path: "drone.turn_speed", Min: 0.02, Max: 0.6, Default: 0.15,
				Field: func(c *config.Config) *float64 { return &c.Drone.TurnSpeed }},
			{Name: "chaos", Path: "drone.chaos", Min: 0, Max: 2, Default: 1,
				Field: func(c *config.Config) *float64 { return &c.Drone.Chaos }},
			{Name: "explore_threshold", Path: "drone.explore_threshold", Min: 0.01, Max: 1, Default: 0.1,
				Field: func(c *config.Config) *float64 { return &c.Drone.ExploreThreshold }},
			{Name: "move_speed", Path: "drone.move_speed", Min: 0.3, Max: 3, Default: 1,
				Field: func(c *config.Config) *float64 { return &c.Drone.MoveSpeed }},
			// Signal weights
			{Name: "density_weight", Path: "drone.density_weight", Min: 0, Max: 0.3, Default: 0.05,
				Field: func(c *config.Config) *float64 { return &c.Drone.DensityWeight }},
			{Name: "home_pull", Path: "drone.home_pull", Min: 1, Max: 10, Default: 5,
				Field: func(c *config.Config) *float64 { return &c.Drone.HomePull }},
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

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		*pv.Specs[i].Field(cfg) = v
	}
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = *spec.Field(cfg)
	}
	return v
}
