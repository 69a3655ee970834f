// Init preview tool - interactive visualization of initial cell patterns and
// their first generations, with sliders for the cell, rule and topology
// settings.
//
// Usage: go run -tags gui ./cmd/initpreview
package main

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/boolnet/config"
	"github.com/pthm-cable/boolnet/grid"
)

// previewSize is the preview grid's width and height in cells.
const previewSize = 256

// PreviewParams holds the tunable settings.
type PreviewParams struct {
	Noise         bool
	Density       float32
	NoiseScale    float32
	OnProbability float32
	Arity         int
	Radius        int
	Seed          uint64
}

// defaultParams reads the tunable settings from cfg.
func defaultParams(cfg *config.Config) PreviewParams {
	return PreviewParams{
		Noise:         cfg.Cells.Init == string(grid.Noise),
		Density:       float32(cfg.Cells.Density),
		NoiseScale:    float32(cfg.Cells.NoiseScale),
		OnProbability: float32(cfg.Rules.TrueProbability),
		Arity:         cfg.Topology.Arity,
		Radius:        cfg.Topology.Radius,
		Seed:          max(cfg.Grid.Seed, 1),
	}
}

// apply writes the settings into cfg.
func (p PreviewParams) apply(cfg *config.Config) {
	cfg.Cells.Init = string(grid.Uniform)
	if p.Noise {
		cfg.Cells.Init = string(grid.Noise)
	}
	cfg.Cells.Density = float64(p.Density)
	cfg.Cells.NoiseScale = float64(p.NoiseScale)
	cfg.Rules.TrueProbability = float64(p.OnProbability)
	cfg.Topology.Arity = p.Arity
	cfg.Topology.Radius = p.Radius
	cfg.Grid.Seed = p.Seed
}

// buildGrid makes a preview-sized grid from base with p applied.
func buildGrid(base *config.Config, p PreviewParams) (*grid.Grid, error) {
	cfg := *base
	p.apply(&cfg)
	gc := cfg.GridConfig()
	gc.Width, gc.Height = previewSize, previewSize
	return grid.New(gc, nil)
}

// yamlSnippet renders the tunable config sections as YAML.
func yamlSnippet(base *config.Config, p PreviewParams) (string, error) {
	cfg := *base
	p.apply(&cfg)
	out, err := yaml.Marshal(struct {
		Topology config.TopologyConfig `yaml:"topology"`
		Rules    config.RulesConfig    `yaml:"rules"`
		Cells    config.CellsConfig    `yaml:"cells"`
	}{cfg.Topology, cfg.Rules, cfg.Cells})
	if err != nil {
		return "", fmt.Errorf("marshaling snippet: %w", err)
	}
	return string(out), nil
}
