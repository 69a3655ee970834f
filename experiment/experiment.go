// Package experiment runs headless trials of a Boolean network for batch
// tools: settle a grid, perturb one cell in a shadow copy, and measure how
// activity and the perturbation evolve.
package experiment

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/boolnet/engine"
	"github.com/pthm-cable/boolnet/grid"
)

// Trial describes one run.
type Trial struct {
	Grid grid.Config
	// Warmup generations run before the perturbation.
	Warmup int
	// Generations run after the perturbation.
	Generations int
	// SampleEvery is the generation interval between activity samples.
	SampleEvery int
}

// Result summarizes one run.
type Result struct {
	Arity         int     `csv:"arity"`
	Radius        int     `csv:"radius"`
	OnProbability float64 `csv:"on_probability"`
	Seed          uint64  `csv:"seed"`

	LiveFraction   float64 `csv:"live_frac"`
	ActiveFraction float64 `csv:"active_frac"` // mean over samples
	ActiveStd      float64 `csv:"active_std"`

	Divergence         int     `csv:"divergence"`
	DivergenceFraction float64 `csv:"divergence_frac"`
	// Healed is set when the shadow converged back to the primary.
	Healed bool `csv:"healed"`
	// HealedAt is the generation after the perturbation at which the shadow
	// first matched the primary again, or -1.
	HealedAt int `csv:"healed_at"`
}

// Run executes t on pool, which may be nil. The perturbation toggles the
// centre cell of the shadow.
func Run(ctx context.Context, pool *engine.Pool, t Trial) (Result, error) {
	cfg := t.Grid
	res := Result{
		Arity:         cfg.Topology.Arity,
		Radius:        cfg.Topology.Radius,
		OnProbability: cfg.OnProbability,
		Seed:          cfg.Seed,
		HealedAt:      -1,
	}

	primary, err := grid.New(cfg, pool)
	if err != nil {
		return res, err
	}
	for i := 0; i < t.Warmup; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := primary.Step(); err != nil {
			return res, err
		}
	}

	shadow := primary.Fork()
	if err := shadow.Toggle(cfg.Width/2, cfg.Height/2); err != nil {
		return res, err
	}

	every := max(t.SampleEvery, 1)
	n := float64(primary.Len())
	var active []float64
	for i := 1; i <= t.Generations; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := primary.Step(); err != nil {
			return res, err
		}
		if err := shadow.Step(); err != nil {
			return res, fmt.Errorf("shadow: %w", err)
		}
		if i%every == 0 || i == t.Generations {
			active = append(active, float64(primary.Active())/n)
		}
		if res.HealedAt < 0 {
			d, err := primary.CountDiff(shadow)
			if err != nil {
				return res, err
			}
			if d == 0 {
				res.HealedAt = i
			}
		}
	}

	res.LiveFraction = float64(primary.Live()) / n
	if len(active) > 0 {
		res.ActiveFraction, res.ActiveStd = stat.PopMeanStdDev(active, nil)
	}
	if res.Divergence, err = primary.CountDiff(shadow); err != nil {
		return res, err
	}
	res.DivergenceFraction = float64(res.Divergence) / n
	res.Healed = res.Divergence == 0
	return res, nil
}

// Summary aggregates the runs of one parameter combination.
type Summary struct {
	Arity         int     `csv:"arity"`
	Radius        int     `csv:"radius"`
	OnProbability float64 `csv:"on_probability"`
	Runs          int     `csv:"runs"`

	LiveMean       float64 `csv:"live_mean"`
	LiveStd        float64 `csv:"live_std"`
	ActiveMean     float64 `csv:"active_mean"`
	ActiveStd      float64 `csv:"active_std"`
	DivergenceMean float64 `csv:"divergence_frac_mean"`
	DivergenceStd  float64 `csv:"divergence_frac_std"`
	HealedFraction float64 `csv:"healed_frac"`
}

// Summarize aggregates results that share one parameter combination.
func Summarize(results []Result) Summary {
	if len(results) == 0 {
		return Summary{}
	}
	first := results[0]
	s := Summary{
		Arity:         first.Arity,
		Radius:        first.Radius,
		OnProbability: first.OnProbability,
		Runs:          len(results),
	}

	live := make([]float64, len(results))
	active := make([]float64, len(results))
	div := make([]float64, len(results))
	healed := 0
	for i, r := range results {
		live[i] = r.LiveFraction
		active[i] = r.ActiveFraction
		div[i] = r.DivergenceFraction
		if r.Healed {
			healed++
		}
	}
	s.LiveMean, s.LiveStd = stat.PopMeanStdDev(live, nil)
	s.ActiveMean, s.ActiveStd = stat.PopMeanStdDev(active, nil)
	s.DivergenceMean, s.DivergenceStd = stat.PopMeanStdDev(div, nil)
	s.HealedFraction = float64(healed) / float64(len(results))
	return s
}
