// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/boolnet/engine"
	"github.com/pthm-cable/boolnet/grid"
	"github.com/pthm-cable/boolnet/topology"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

// Config holds all simulation configuration parameters.
type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Topology  TopologyConfig  `yaml:"topology"`
	Rules     RulesConfig     `yaml:"rules"`
	Cells     CellsConfig     `yaml:"cells"`
	Recency   RecencyConfig   `yaml:"recency"`
	Engine    EngineConfig    `yaml:"engine"`
	Screen    ScreenConfig    `yaml:"screen"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GridConfig holds grid dimensions and the master seed.
type GridConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Seed   uint64 `yaml:"seed"` // 0 = pick one at startup
}

// TopologyConfig holds connection table generation parameters.
type TopologyConfig struct {
	Arity        int    `yaml:"arity"`        // K, inputs per cell
	Neighborhood string `yaml:"neighborhood"` // square | von_neumann
	Radius       int    `yaml:"radius"`       // square neighbourhood radius
	ExcludeSelf  bool   `yaml:"exclude_self"`
	Shuffle      string `yaml:"shuffle"`   // per_cell | once
	Underfill    string `yaml:"underfill"` // wrap | self | reject
}

// RulesConfig holds rule table parameters.
type RulesConfig struct {
	TrueProbability float64 `yaml:"true_probability"` // chance a free entry maps to on
}

// CellsConfig holds initial cell state parameters.
type CellsConfig struct {
	Init       string  `yaml:"init"` // uniform | noise
	Density    float64 `yaml:"density"`
	NoiseScale float64 `yaml:"noise_scale"`
}

// RecencyConfig holds the recency counter window.
type RecencyConfig struct {
	Window int `yaml:"window"`
}

// EngineConfig holds worker pool parameters.
type EngineConfig struct {
	MaxWorkers int  `yaml:"max_workers"`
	PinCores   bool `yaml:"pin_cores"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width                int `yaml:"width"`
	Height               int `yaml:"height"`
	TargetFPS            int `yaml:"target_fps"`
	GenerationsPerUpdate int `yaml:"generations_per_update"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow               int     `yaml:"stats_window"` // generations per stats window
	BookmarkHistorySize       int     `yaml:"bookmark_history_size"`
	PerfCollectorWindow       int     `yaml:"perf_collector_window"`
	SteadyCVThreshold         float64 `yaml:"steady_cv_threshold"`
	DivergenceSpreadThreshold float64 `yaml:"divergence_spread_threshold"`
	SnapshotOnBookmark        bool    `yaml:"snapshot_on_bookmark"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Cells int // Width * Height
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// Defaults returns the embedded default configuration.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	cfg.computeDerived()
	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.Cells = c.Grid.Width * c.Grid.Height
}

// Validate reports every invalid field. Values are never clamped.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if err := c.GridConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Engine.MaxWorkers < 0 {
		bad("engine.max_workers %d is negative", c.Engine.MaxWorkers)
	}
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		bad("screen %dx%d must be positive", c.Screen.Width, c.Screen.Height)
	}
	if c.Screen.TargetFPS < 0 {
		bad("screen.target_fps %d is negative", c.Screen.TargetFPS)
	}
	if c.Screen.GenerationsPerUpdate < 1 {
		bad("screen.generations_per_update %d must be at least 1", c.Screen.GenerationsPerUpdate)
	}
	if c.Telemetry.StatsWindow < 1 {
		bad("telemetry.stats_window %d must be at least 1", c.Telemetry.StatsWindow)
	}
	if c.Telemetry.BookmarkHistorySize < 1 {
		bad("telemetry.bookmark_history_size %d must be at least 1", c.Telemetry.BookmarkHistorySize)
	}
	if c.Telemetry.PerfCollectorWindow < 1 {
		bad("telemetry.perf_collector_window %d must be at least 1", c.Telemetry.PerfCollectorWindow)
	}
	if c.Telemetry.SteadyCVThreshold < 0 {
		bad("telemetry.steady_cv_threshold %v is negative", c.Telemetry.SteadyCVThreshold)
	}
	if t := c.Telemetry.DivergenceSpreadThreshold; t <= 0 || t > 1 {
		bad("telemetry.divergence_spread_threshold %v outside (0, 1]", t)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// TopologyPolicy converts the topology section into a generation policy.
func (c *Config) TopologyPolicy() topology.Policy {
	return topology.Policy{
		Arity:        c.Topology.Arity,
		Neighborhood: topology.Neighborhood(c.Topology.Neighborhood),
		Radius:       c.Topology.Radius,
		ExcludeSelf:  c.Topology.ExcludeSelf,
		Shuffle:      topology.ShuffleMode(c.Topology.Shuffle),
		Underfill:    topology.Underfill(c.Topology.Underfill),
	}
}

// GridConfig builds the grid description from the grid, topology, rules,
// cells and recency sections.
func (c *Config) GridConfig() grid.Config {
	return grid.Config{
		Width:         c.Grid.Width,
		Height:        c.Grid.Height,
		Topology:      c.TopologyPolicy(),
		OnProbability: c.Rules.TrueProbability,
		Window:        c.Recency.Window,
		Init:          grid.CellInit(c.Cells.Init),
		Density:       c.Cells.Density,
		NoiseScale:    c.Cells.NoiseScale,
		Seed:          c.Grid.Seed,
	}
}

// EngineOptions converts the engine section into worker pool options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		MaxWorkers: c.Engine.MaxWorkers,
		PinCores:   c.Engine.PinCores,
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
