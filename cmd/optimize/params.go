package main

import (
	"math"

	"github.com/pthm-cable/boolnet/config"
)

// ParamSpec is one tunable config field.
type ParamSpec struct {
	Name    string // column and log name
	Path    string // YAML path, for reference
	Min     float64
	Max     float64
	Integer bool // rounded when applied

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

// ParamVector is the ordered set of parameters the optimizer searches.
type ParamVector struct {
	Specs    []ParamSpec
	defaults []float64
}

// NewParamVector builds the search space. Starting values come from cfg,
// clamped into range.
func NewParamVector(cfg *config.Config) *ParamVector {
	pv := &ParamVector{Specs: []ParamSpec{
		{
			Name: "on_probability", Path: "rules.true_probability", Min: 0.05, Max: 0.95,
			get: func(c *config.Config) float64 { return c.Rules.TrueProbability },
			set: func(c *config.Config, v float64) { c.Rules.TrueProbability = v },
		},
		{
			Name: "arity", Path: "topology.arity", Min: 2, Max: 6, Integer: true,
			get: func(c *config.Config) float64 { return float64(c.Topology.Arity) },
			set: func(c *config.Config, v float64) { c.Topology.Arity = int(v) },
		},
		{
			Name: "radius", Path: "topology.radius", Min: 1, Max: 12, Integer: true,
			get: func(c *config.Config) float64 { return float64(c.Topology.Radius) },
			set: func(c *config.Config, v float64) { c.Topology.Radius = int(v) },
		},
		{
			Name: "density", Path: "cells.density", Min: 0.05, Max: 0.95,
			get: func(c *config.Config) float64 { return c.Cells.Density },
			set: func(c *config.Config, v float64) { c.Cells.Density = v },
		},
	}}
	pv.defaults = pv.Clamp(pv.ExtractFromConfig(cfg))
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the starting point in raw units.
func (pv *ParamVector) DefaultVector() []float64 {
	return append([]float64(nil), pv.defaults...)
}

// Normalize maps raw values onto [0,1] per parameter.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, s := range pv.Specs {
		out[i] = (raw[i] - s.Min) / (s.Max - s.Min)
	}
	return out
}

// Denormalize is the inverse of Normalize.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, s := range pv.Specs {
		out[i] = s.Min + normalized[i]*(s.Max-s.Min)
	}
	return out
}

// Clamp bounds every value to its range and rounds integer parameters.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, s := range pv.Specs {
		x := min(max(v[i], s.Min), s.Max)
		if s.Integer {
			x = math.Round(x)
		}
		out[i] = x
	}
	return out
}

// ApplyToConfig writes the clamped values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
}

// ExtractFromConfig reads the current values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, s := range pv.Specs {
		out[i] = s.get(cfg)
	}
	return out
}
