package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/boolnet/config"
	"github.com/pthm-cable/boolnet/render"
	"github.com/pthm-cable/boolnet/sim"
	"github.com/pthm-cable/boolnet/ui"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in generations (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config and snapshots")
	seed := flag.Uint64("seed", 0, "Grid seed (0 = config seed, or time-based if that is 0 too)")
	maxGenerations := flag.Uint64("max-generations", 0, "Stop after N generations (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 0, "Generations per update call (0 = use config)")
	snapshot := flag.String("snapshot", "", "Start from a saved snapshot file")
	perturb := flag.String("perturb", "", "Toggle cell x,y in the shadow before starting")
	pngPath := flag.String("png", "", "Headless only: write the final frame to this PNG file")
	drawMode := flag.String("mode", "changes", "Draw mode for -png: normal or changes")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger, runOptions{
		configPath:     *configPath,
		headless:       *headless,
		logStats:       *logStats,
		statsWindow:    *statsWindow,
		outputDir:      *outputDir,
		seed:           *seed,
		maxGenerations: *maxGenerations,
		stepsPerUpdate: *stepsPerUpdate,
		snapshot:       *snapshot,
		perturb:        *perturb,
		pngPath:        *pngPath,
		drawMode:       *drawMode,
	}); err != nil {
		logger.Error("run failed", "error", err)
		if errors.Is(err, ui.ErrNoGUI) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type runOptions struct {
	configPath     string
	headless       bool
	logStats       bool
	statsWindow    int
	outputDir      string
	seed           uint64
	maxGenerations uint64
	stepsPerUpdate int
	snapshot       string
	perturb        string
	pngPath        string
	drawMode       string
}

func run(logger *slog.Logger, o runOptions) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if o.statsWindow > 0 {
		cfg.Telemetry.StatsWindow = o.statsWindow
	}
	if o.stepsPerUpdate > 0 {
		cfg.Screen.GenerationsPerUpdate = o.stepsPerUpdate
	}

	gridSeed := o.seed
	if gridSeed == 0 {
		gridSeed = cfg.Grid.Seed
	}
	if gridSeed == 0 {
		gridSeed = uint64(time.Now().UnixNano())
	}
	cfg.Grid.Seed = gridSeed

	mode, err := parseMode(o.drawMode)
	if err != nil {
		return err
	}

	s, err := sim.New(sim.Options{
		Config:    cfg,
		LogStats:  o.logStats,
		OutputDir: o.outputDir,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("failed to close output", "error", err)
		}
	}()
	s.SetDrawMode(mode)

	if o.snapshot != "" {
		if err := s.LoadSnapshot(o.snapshot); err != nil {
			return err
		}
	}
	if o.perturb != "" {
		var x, y int
		if _, err := fmt.Sscanf(o.perturb, "%d,%d", &x, &y); err != nil {
			return fmt.Errorf("parsing -perturb %q: %w", o.perturb, err)
		}
		if err := s.ToggleCell(x, y); err != nil {
			return err
		}
	}

	if !o.headless {
		return ui.Run(s, ui.Options{
			Title:          "Boolean Network",
			Width:          cfg.Screen.Width,
			Height:         cfg.Screen.Height,
			TargetFPS:      cfg.Screen.TargetFPS,
			MaxGenerations: o.maxGenerations,
			Logger:         logger,
		})
	}

	// Headless mode - pure CPU simulation, no raylib needed
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("starting headless simulation",
		"seed", gridSeed,
		"cells", cfg.Derived.Cells,
		"stats_window", cfg.Telemetry.StatsWindow,
		"max_generations", o.maxGenerations,
		"generations_per_update", s.GenerationsPerUpdate(),
	)

	for ctx.Err() == nil {
		if err := s.Update(); err != nil {
			return err
		}
		if o.maxGenerations > 0 && s.Generation() >= o.maxGenerations {
			logger.Info("max generations reached", "generation", s.Generation())
			break
		}
	}

	if o.pngPath != "" {
		return writePNG(s, o.pngPath)
	}
	return nil
}

func parseMode(name string) (render.Mode, error) {
	for _, m := range []render.Mode{render.Normal, render.Changes} {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown draw mode %q", name)
}

func writePNG(s *sim.Simulation, path string) error {
	p := s.Primary()
	img, err := render.Image(s.Pool(), p.Width(), p.Height(), s.Frame())
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
