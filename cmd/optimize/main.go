// Package main provides CMA-ES optimization for finding rule and topology
// parameters that keep a Boolean network near a target level of activity.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/boolnet/config"
	"github.com/pthm-cable/boolnet/engine"
	"github.com/pthm-cable/boolnet/experiment"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// evalRecord is one row of optimize_log.csv.
type evalRecord struct {
	Eval          int     `csv:"eval"`
	Fitness       float64 `csv:"fitness"`
	OnProbability float64 `csv:"on_probability"`
	Arity         int     `csv:"arity"`
	Radius        int     `csv:"radius"`
	Density       float64 `csv:"density"`
	ActiveMean    float64 `csv:"active_mean"`
	Divergence    float64 `csv:"divergence_frac_mean"`
}

func newEvalRecord(n int, fitness float64, cfg *config.Config, last experiment.Summary) evalRecord {
	return evalRecord{
		Eval:          n,
		Fitness:       fitness,
		OnProbability: cfg.Rules.TrueProbability,
		Arity:         cfg.Topology.Arity,
		Radius:        cfg.Topology.Radius,
		Density:       cfg.Cells.Density,
		ActiveMean:    last.ActiveMean,
		Divergence:    last.DivergenceMean,
	}
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	size := flag.Int("size", 128, "Grid width and height per trial")
	warmup := flag.Int("warmup", 100, "Generations before the perturbation")
	generations := flag.Int("generations", 300, "Generations after the perturbation")
	targetActive := flag.Float64("target-active", 0.2, "Wanted mean active fraction")
	targetDivergence := flag.Float64("target-divergence", 0.05, "Wanted divergence fraction of a single-cell perturbation")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *outputDir == "" {
		logger.Error("-output is required")
		os.Exit(2)
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	// Load base config
	baseCfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	baseCfg.Grid.Width, baseCfg.Grid.Height = *size, *size

	pool := engine.NewPool(baseCfg.EngineOptions())
	defer pool.Close()

	params := NewParamVector(baseCfg)

	evalSeeds := make([]uint64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = uint64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, experiment.Trial{
		Warmup:      *warmup,
		Generations: *generations,
		SampleEvery: 10,
	}, evalSeeds, baseCfg, Targets{Active: *targetActive, Divergence: *targetDivergence}, pool)

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	// Open log file
	logPath := filepath.Join(*outputDir, "optimize_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		logger.Error("failed to create log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()
	headerWritten := false

	evalCount := 0
	bestFitness := invalidPenalty
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			// Denormalize and clamp to get actual parameter values
			clamped := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(clamped)
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = clamped
			}

			last := evaluator.Last()
			evalCfg := *baseCfg
			params.ApplyToConfig(&evalCfg, clamped)
			rec := []evalRecord{newEvalRecord(evalCount, fitness, &evalCfg, last)}
			var werr error
			if headerWritten {
				werr = gocsv.MarshalWithoutHeaders(rec, logFile)
			} else {
				werr = gocsv.Marshal(rec, logFile)
				headerWritten = werr == nil
			}
			if werr != nil {
				logger.Error("failed to write eval log", "error", werr)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
			logger.Info("eval",
				"n", evalCount,
				"of", *maxEvals,
				"fitness", fitness,
				"best", bestFitness,
				"active_mean", last.ActiveMean,
				"divergence_mean", last.DivergenceMean,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation; seeds already run in parallel
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	logger.Info("starting CMA-ES optimization",
		"params", dim,
		"population", popSize,
		"max_evals", *maxEvals,
		"seeds", *seeds,
		"generations", *generations,
	)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		logger.Warn("optimization ended", "error", err)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		logger.Error("no evaluation completed")
		os.Exit(1)
	}

	attrs := []any{"evals", evalCount, "elapsed", formatDuration(time.Since(startTime)), "fitness", bestFitness}
	for i, spec := range params.Specs {
		attrs = append(attrs, spec.Name, bestParams[i])
	}
	logger.Info("optimization complete", attrs...)

	// Save best config
	bestCfg := *baseCfg
	params.ApplyToConfig(&bestCfg, bestParams)
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		logger.Error("failed to write best config", "error", err)
		os.Exit(1)
	}
	logger.Info("best config saved", "path", configOutPath)
}
