package main

import (
	"github.com/pthm-cable/rainglass/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Motion
			{Name: "gravity", Path: "physics.gravity", Min: 0.2, Max: 1.2, Default: 0.6,
				get: func(c *config.Config) float64 { return c.Physics.Gravity },
				set: func(c *config.Config, v float64) { c.Physics.Gravity = v }},
			{Name: "adhesion_base", Path: "physics.adhesion_base", Min: 0, Max: 0.3, Default: 0.08,
				get: func(c *config.Config) float64 { return c.Physics.AdhesionBase },
				set: func(c *config.Config, v float64) { c.Physics.AdhesionBase = v }},
			{Name: "evaporation_rate", Path: "physics.evaporation_rate", Min: 0, Max: 1, Default: 0.2,
				get: func(c *config.Config) float64 { return c.Physics.EvaporationRate },
				set: func(c *config.Config, v float64) { c.Physics.EvaporationRate = v }},
			{Name: "merge_distance", Path: "physics.merge_distance", Min: 0.5, Max: 1, Default: 0.75,
				get: func(c *config.Config) float64 { return c.Physics.MergeDistance },
				set: func(c *config.Config, v float64) { c.Physics.MergeDistance = v }},
			// Trails
			{Name: "child_chance", Path: "trail.child_chance", Min: 0, Max: 0.6, Default: 0.25,
				get: func(c *config.Config) float64 { return c.Trail.ChildChance },
				set: func(c *config.Config, v float64) { c.Trail.ChildChance = v }},
			{Name: "trail_decay", Path: "trail.decay", Min: 0.1, Max: 1, Default: 0.35,
				get: func(c *config.Config) float64 { return c.Trail.Decay },
				set: func(c *config.Config, v float64) { c.Trail.Decay = v }},
			// Spawning: scales every tier, keeping their proportions
			{Name: "spawn_rate", Path: "spawn.tiers[*].rate", Min: 3, Max: 30, Default: 11,
				get: totalRate,
				set: scaleRates},
		},
	}
}

func totalRate(c *config.Config) float64 {
	var total float64
	for _, t := range c.Spawn.Tiers {
		total += t.Rate
	}
	return total
}

func scaleRates(c *config.Config, v float64) {
	total := totalRate(c)
	if total <= 0 {
		return
	}
	tiers := make([]config.SpawnTier, len(c.Spawn.Tiers))
	copy(tiers, c.Spawn.Tiers)
	for i := range tiers {
		tiers[i].Rate *= v / total
	}
	c.Spawn.Tiers = tiers
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

// ApplyToConfig applies clamped parameter values to cfg and revalidates it.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
	cfg.Validate()
}

// ExtractFromConfig extracts current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.get(cfg)
	}
	return v
}
