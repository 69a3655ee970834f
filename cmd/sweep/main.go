// Command sweep runs a batch of headless trials over arity, radius and
// on-probability lists and writes per-run and per-combination CSV summaries.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/boolnet/config"
	"github.com/pthm-cable/boolnet/engine"
	"github.com/pthm-cable/boolnet/experiment"
	"github.com/pthm-cable/boolnet/grid"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	arities := flag.String("arity", "2,3,4", "Comma-separated arities to sweep")
	radii := flag.String("radius", "1,3,6", "Comma-separated neighbourhood radii to sweep")
	probs := flag.String("p", "", "Comma-separated rule on-probabilities (empty = config value)")
	seeds := flag.Int("seeds", 5, "Seeds per combination")
	size := flag.Int("size", 200, "Grid width and height")
	warmup := flag.Int("warmup", 100, "Generations before the perturbation")
	generations := flag.Int("generations", 400, "Generations after the perturbation")
	sampleEvery := flag.Int("sample-every", 10, "Generations between activity samples")
	parallel := flag.Int("parallel", 2, "Trials run at once")
	outputDir := flag.String("output", "", "Output directory for sweep.csv and runs.csv")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *outputDir == "" {
		logger.Error("-output is required")
		os.Exit(2)
	}

	pl, err := buildPlan(*configPath, *arities, *radii, *probs, *seeds, *size)
	if err != nil {
		logger.Error("invalid sweep", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool := engine.NewPool(pl.engine)
	defer pool.Close()

	start := time.Now()
	logger.Info("starting sweep", "combinations", len(pl.combos), "seeds", *seeds, "workers", pool.Workers())

	results, err := runSweep(ctx, logger, pool, pl, experiment.Trial{
		Warmup:      *warmup,
		Generations: *generations,
		SampleEvery: *sampleEvery,
	}, *parallel)
	if err != nil {
		logger.Error("sweep failed", "error", err)
		os.Exit(1)
	}

	if err := writeResults(*outputDir, results); err != nil {
		logger.Error("failed to write results", "error", err)
		os.Exit(1)
	}
	logger.Info("sweep complete", "runs", len(pl.combos)*(*seeds), "elapsed", time.Since(start).Round(time.Millisecond).String())
}

// combo is one parameter combination.
type combo struct {
	arity  int
	radius int
	p      float64
}

type plan struct {
	base   *config.Config
	engine engine.Options
	combos []combo
	seeds  []uint64
}

func buildPlan(configPath, arities, radii, probs string, seeds, size int) (*plan, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Grid.Width, cfg.Grid.Height = size, size

	ks, err := parseInts(arities)
	if err != nil {
		return nil, fmt.Errorf("-arity: %w", err)
	}
	rs, err := parseInts(radii)
	if err != nil {
		return nil, fmt.Errorf("-radius: %w", err)
	}
	ps := []float64{cfg.Rules.TrueProbability}
	if probs != "" {
		if ps, err = parseFloats(probs); err != nil {
			return nil, fmt.Errorf("-p: %w", err)
		}
	}
	if seeds < 1 {
		return nil, fmt.Errorf("-seeds %d must be at least 1", seeds)
	}

	pl := &plan{base: cfg, engine: cfg.EngineOptions()}
	for _, k := range ks {
		for _, r := range rs {
			for _, p := range ps {
				c := combo{arity: k, radius: r, p: p}
				// Reject bad combinations before any work starts.
				if err := pl.gridConfig(c, 1).Validate(); err != nil {
					return nil, fmt.Errorf("arity %d radius %d p %v: %w", k, r, p, err)
				}
				pl.combos = append(pl.combos, c)
			}
		}
	}
	base := cfg.Grid.Seed
	if base == 0 {
		base = 42
	}
	for i := range seeds {
		pl.seeds = append(pl.seeds, base+uint64(i)*1000)
	}
	return pl, nil
}

func (pl *plan) gridConfig(c combo, seed uint64) grid.Config {
	cfg := *pl.base
	cfg.Topology.Arity = c.arity
	cfg.Topology.Radius = c.radius
	cfg.Rules.TrueProbability = c.p
	cfg.Grid.Seed = seed
	return cfg.GridConfig()
}

func runSweep(ctx context.Context, logger *slog.Logger, pool *engine.Pool, pl *plan, tmpl experiment.Trial, parallel int) ([][]experiment.Result, error) {
	results := make([][]experiment.Result, len(pl.combos))
	for i := range results {
		results[i] = make([]experiment.Result, len(pl.seeds))
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(parallel, 1))
	for ci, c := range pl.combos {
		for si, seed := range pl.seeds {
			eg.Go(func() error {
				t := tmpl
				t.Grid = pl.gridConfig(c, seed)
				res, err := experiment.Run(ctx, pool, t)
				if err != nil {
					return fmt.Errorf("arity %d radius %d seed %d: %w", c.arity, c.radius, seed, err)
				}
				results[ci][si] = res
				logger.Info("run complete",
					"arity", c.arity,
					"radius", c.radius,
					"p", c.p,
					"seed", seed,
					"active_frac", res.ActiveFraction,
					"divergence_frac", res.DivergenceFraction,
				)
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeResults(dir string, results [][]experiment.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var runs []experiment.Result
	var summaries []experiment.Summary
	for _, rs := range results {
		runs = append(runs, rs...)
		summaries = append(summaries, experiment.Summarize(rs))
	}

	if err := writeCSV(filepath.Join(dir, "runs.csv"), runs); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, "sweep.csv"), summaries)
}

func writeCSV[T any](path string, records []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := gocsv.MarshalFile(&records, f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloats(s string) ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
