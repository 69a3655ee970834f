package main

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/boolnet/config"
	"github.com/pthm-cable/boolnet/engine"
	"github.com/pthm-cable/boolnet/experiment"
)

// invalidPenalty is the fitness of a parameter vector that cannot build a grid.
const invalidPenalty = 10.0

// Targets are the activity levels the search steers toward.
type Targets struct {
	// Active is the wanted mean fraction of recently changed cells.
	Active float64
	// Divergence is the wanted fraction of cells a single-cell perturbation
	// reaches by the end of a run.
	Divergence float64
}

// FitnessEvaluator runs headless trials and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	trial      experiment.Trial
	seeds      []uint64
	baseConfig *config.Config
	targets    Targets
	pool       *engine.Pool

	mu   sync.Mutex
	last experiment.Summary // from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. trial.Grid is ignored; each
// evaluation builds its own grid config.
func NewFitnessEvaluator(params *ParamVector, trial experiment.Trial, seeds []uint64, baseCfg *config.Config, targets Targets, pool *engine.Pool) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		trial:      trial,
		seeds:      seeds,
		baseConfig: baseCfg,
		targets:    targets,
		pool:       pool,
	}
}

// Last returns the aggregated trial results of the most recent evaluation.
func (fe *FitnessEvaluator) Last() experiment.Summary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// Evaluate computes fitness for a raw parameter vector (lower = better):
// the squared distance of mean activity and mean perturbation spread from
// their targets.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	// Run all seeds in parallel on the shared pool
	results := make([]experiment.Result, len(fe.seeds))
	var eg errgroup.Group
	for i, seed := range fe.seeds {
		eg.Go(func() error {
			t := fe.trial
			t.Grid = cfg.GridConfig()
			t.Grid.Seed = seed
			r, err := experiment.Run(context.Background(), fe.pool, t)
			results[i] = r
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return invalidPenalty
	}

	summary := experiment.Summarize(results)
	fe.mu.Lock()
	fe.last = summary
	fe.mu.Unlock()

	return fe.computeFitness(summary)
}

func (fe *FitnessEvaluator) computeFitness(s experiment.Summary) float64 {
	da := s.ActiveMean - fe.targets.Active
	dd := s.DivergenceMean - fe.targets.Divergence
	return da*da + dd*dd
}

// copyConfig creates a copy of the base config. Config holds only values,
// so a struct copy is deep.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
