// Package sim runs an interactive Boolean network session: a primary grid,
// an optional comparison shadow forked on the first manual toggle, pause and
// speed state, and the telemetry attached to them.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/boolnet/config"
	"github.com/pthm-cable/boolnet/engine"
	"github.com/pthm-cable/boolnet/grid"
	"github.com/pthm-cable/boolnet/render"
	"github.com/pthm-cable/boolnet/telemetry"
)

// seedStream separates the new-grid seed sequence from the grid's own streams.
const seedStream = 0x5eed

// Options configures a Simulation.
type Options struct {
	Config *config.Config
	// Seed overrides Config.Grid.Seed when non-zero.
	Seed uint64

	LogStats  bool
	OutputDir string
	Logger    *slog.Logger

	// StatsCallback, if set, receives every flushed stats window.
	StatsCallback func(telemetry.WindowStats)
}

// Simulation holds the complete session state.
type Simulation struct {
	cfg     *config.Config
	gridCfg grid.Config
	pool    *engine.Pool
	seeds   *rand.Rand
	logger  *slog.Logger

	primary *grid.Grid
	shadow  *grid.Grid // nil until the first toggle

	// State
	paused               bool
	generationsPerUpdate int
	drawMode             render.Mode

	// Telemetry
	collector        *telemetry.Collector
	bookmarkDetector *telemetry.BookmarkDetector
	perfCollector    *telemetry.PerfCollector
	outputManager    *telemetry.OutputManager
	logStats         bool
	statsCallback    func(telemetry.WindowStats)
}

// New builds the primary grid and its worker pool.
func New(opts Options) (*Simulation, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(""); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gridCfg := cfg.GridConfig()
	if opts.Seed != 0 {
		gridCfg.Seed = opts.Seed
	}

	poolOpts := cfg.EngineOptions()
	poolOpts.Logger = logger
	pool := engine.NewPool(poolOpts)

	primary, err := grid.New(gridCfg, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("building grid: %w", err)
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := om.WriteConfig(cfg); err != nil {
		logger.Error("failed to write config", "error", err)
	}

	s := &Simulation{
		cfg:                  cfg,
		gridCfg:              gridCfg,
		pool:                 pool,
		seeds:                rand.New(rand.NewPCG(gridCfg.Seed, seedStream)),
		logger:               logger,
		primary:              primary,
		generationsPerUpdate: cfg.Screen.GenerationsPerUpdate,
		drawMode:             render.Changes,
		collector:            telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(
			cfg.Telemetry.BookmarkHistorySize,
			cfg.Telemetry.SteadyCVThreshold,
			cfg.Telemetry.DivergenceSpreadThreshold,
		),
		perfCollector: telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		outputManager: om,
		logStats:      opts.LogStats,
		statsCallback: opts.StatsCallback,
	}

	logger.Info("grid created",
		"width", gridCfg.Width,
		"height", gridCfg.Height,
		"arity", gridCfg.Topology.Arity,
		"seed", gridCfg.Seed,
		"workers", pool.Workers(),
	)
	return s, nil
}

// Update advances the session by the current number of generations per
// update, unless paused.
func (s *Simulation) Update() error {
	if s.paused {
		return nil
	}
	for i := 0; i < s.generationsPerUpdate; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step advances primary and shadow by exactly one generation, ignoring pause.
// The two grids step concurrently on the shared pool.
func (s *Simulation) Step() error {
	s.perfCollector.StartGeneration()

	var primaryDur, shadowDur time.Duration
	var eg errgroup.Group
	eg.Go(func() error {
		start := time.Now()
		err := s.primary.Step()
		primaryDur = time.Since(start)
		return err
	})
	if shadow := s.shadow; shadow != nil {
		eg.Go(func() error {
			start := time.Now()
			err := shadow.Step()
			shadowDur = time.Since(start)
			if err != nil {
				return fmt.Errorf("shadow: %w", err)
			}
			return nil
		})
	}
	err := eg.Wait()

	cells := s.primary.Len()
	s.perfCollector.AddPhase(telemetry.PhaseStepPrimary, primaryDur)
	if s.shadow != nil {
		cells += s.shadow.Len()
		s.perfCollector.AddPhase(telemetry.PhaseStepShadow, shadowDur)
	}
	if err != nil {
		s.perfCollector.EndGeneration(cells)
		return err
	}

	s.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()
	s.perfCollector.EndGeneration(cells)
	return nil
}

// ToggleCell flips the cell at (x, y) in the shadow grid, forking the shadow
// from the primary first if there is none. The primary is never touched.
func (s *Simulation) ToggleCell(x, y int) error {
	if _, err := s.primary.Cell(x, y); err != nil {
		return err
	}
	if s.shadow == nil {
		s.shadow = s.primary.Fork()
		s.logger.Info("shadow forked", "generation", s.primary.Generation())
	}
	if err := s.shadow.Toggle(x, y); err != nil {
		return err
	}
	s.collector.Record(telemetry.EventToggle)
	return nil
}

// NewGrid replaces the primary with a grid generated from a fresh seed and
// discards the shadow.
func (s *Simulation) NewGrid() error {
	cfg := s.gridCfg
	cfg.Seed = s.seeds.Uint64()
	g, err := grid.New(cfg, s.pool)
	if err != nil {
		return fmt.Errorf("building grid: %w", err)
	}
	s.primary = g
	s.gridCfg = cfg
	s.dropShadow()
	s.bookmarkDetector.Reset()
	s.collector.Restart(0)
	s.collector.Record(telemetry.EventNewGrid)
	s.logger.Info("grid rebuilt", "seed", cfg.Seed)
	return nil
}

// RandomizeTable re-rolls the primary's rule table. The shadow keeps its own.
func (s *Simulation) RandomizeTable() {
	s.primary.RandomizeTable()
	s.collector.Record(telemetry.EventRandomizeTable)
}

// RandomizeCells re-rolls the primary's cells. The shadow keeps its own.
func (s *Simulation) RandomizeCells() {
	s.primary.RandomizeCells()
	s.collector.Record(telemetry.EventRandomizeCells)
}

// DropShadow discards the comparison shadow, if any.
func (s *Simulation) DropShadow() {
	s.dropShadow()
}

func (s *Simulation) dropShadow() {
	if s.shadow != nil {
		s.shadow = nil
		s.logger.Info("shadow discarded", "generation", s.primary.Generation())
	}
}

// TogglePause flips the pause state.
func (s *Simulation) TogglePause() { s.paused = !s.paused }

// Paused reports whether Update is currently a no-op.
func (s *Simulation) Paused() bool { return s.paused }

// ResetSpeed sets generations per update back to one.
func (s *Simulation) ResetSpeed() { s.generationsPerUpdate = 1 }

// SlowDown runs one generation fewer per update, never fewer than one.
func (s *Simulation) SlowDown() {
	s.generationsPerUpdate = max(s.generationsPerUpdate-1, 1)
}

// SpeedUp runs one generation more per update.
func (s *Simulation) SpeedUp() { s.generationsPerUpdate++ }

// GenerationsPerUpdate returns how many generations Update runs.
func (s *Simulation) GenerationsPerUpdate() int { return s.generationsPerUpdate }

// SetDrawMode selects the render mode.
func (s *Simulation) SetDrawMode(m render.Mode) { s.drawMode = m }

// DrawMode returns the render mode.
func (s *Simulation) DrawMode() render.Mode { return s.drawMode }

// Primary returns the primary grid.
func (s *Simulation) Primary() *grid.Grid { return s.primary }

// Shadow returns the comparison shadow, or nil.
func (s *Simulation) Shadow() *grid.Grid { return s.shadow }

// HasShadow reports whether a comparison shadow exists.
func (s *Simulation) HasShadow() bool { return s.shadow != nil }

// Generation returns the primary's generation count.
func (s *Simulation) Generation() uint64 { return s.primary.Generation() }

// Pool returns the worker pool shared by the grids.
func (s *Simulation) Pool() *engine.Pool { return s.pool }

// Config returns the session configuration.
func (s *Simulation) Config() *config.Config { return s.cfg }

// DiffersAt reports whether (x, y) differs between primary and shadow. It is
// false everywhere when there is no shadow.
func (s *Simulation) DiffersAt(x, y int) (bool, error) {
	if s.shadow == nil {
		_, err := s.primary.Cell(x, y)
		return false, err
	}
	return s.primary.DiffersAt(s.shadow, x, y)
}

// Divergence counts cells that differ between primary and shadow.
func (s *Simulation) Divergence() int {
	if s.shadow == nil {
		return 0
	}
	n, err := s.primary.CountDiff(s.shadow)
	if err != nil {
		return 0
	}
	return n
}

// Frame describes what the renderer should draw right now.
func (s *Simulation) Frame() render.Frame {
	f := render.Frame{
		Cells:   s.primary.Cells(),
		Recency: s.primary.Recency(),
		Window:  s.primary.Window(),
		Mode:    s.drawMode,
	}
	if s.shadow != nil {
		f.Shadow = s.shadow.Cells()
	}
	return f
}

// LoadSnapshot replaces the primary and shadow with the grids stored at path.
// The snapshot's grid configuration replaces the session's.
func (s *Simulation) LoadSnapshot(path string) error {
	snap, err := telemetry.LoadSnapshot(path)
	if err != nil {
		return err
	}
	primary, shadow, err := snap.Restore(s.pool)
	if err != nil {
		return err
	}
	s.primary, s.shadow = primary, shadow
	s.gridCfg = snap.Config
	s.bookmarkDetector.Reset()
	s.collector.Restart(primary.Generation())
	s.logger.Info("snapshot loaded", "path", path, "generation", primary.Generation(), "shadow", shadow != nil)
	return nil
}

// Close stops the worker pool and flushes output files.
func (s *Simulation) Close() error {
	s.pool.Close()
	return s.outputManager.Close()
}
