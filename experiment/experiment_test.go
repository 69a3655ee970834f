package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/boolnet/engine"
	"github.com/pthm-cable/boolnet/grid"
)

func smallTrial(seed uint64) Trial {
	cfg := grid.DefaultConfig()
	cfg.Width, cfg.Height = 48, 32
	cfg.Seed = seed
	return Trial{Grid: cfg, Warmup: 10, Generations: 30, SampleEvery: 5}
}

func TestRunDeterministic(t *testing.T) {
	a, err := Run(context.Background(), nil, smallTrial(3))
	if err != nil {
		t.Fatal(err)
	}

	pool := engine.NewPool(engine.Options{MaxWorkers: 3})
	defer pool.Close()
	b, err := Run(context.Background(), pool, smallTrial(3))
	if err != nil {
		t.Fatal(err)
	}

	if a != b {
		t.Fatalf("pooled run differs from inline run:\n%+v\n%+v", a, b)
	}
	if a.Arity != 3 || a.Radius != 6 || a.Seed != 3 {
		t.Fatalf("parameters not recorded: %+v", a)
	}
	if a.LiveFraction < 0 || a.LiveFraction > 1 || a.ActiveFraction < 0 || a.ActiveFraction > 1 {
		t.Fatalf("fractions out of range: %+v", a)
	}
	if a.Healed != (a.Divergence == 0) {
		t.Fatalf("healed flag disagrees with divergence: %+v", a)
	}
	if a.Healed && a.HealedAt < 1 {
		t.Fatalf("healed without a heal generation: %+v", a)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	tr := smallTrial(1)
	tr.Grid.OnProbability = 1
	if _, err := Run(context.Background(), nil, tr); !errors.Is(err, grid.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, nil, smallTrial(1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSummarize(t *testing.T) {
	results := []Result{
		{Arity: 2, Radius: 1, OnProbability: 0.5, LiveFraction: 0.2, ActiveFraction: 0.1, DivergenceFraction: 0, Healed: true},
		{Arity: 2, Radius: 1, OnProbability: 0.5, LiveFraction: 0.4, ActiveFraction: 0.3, DivergenceFraction: 0.5},
	}
	s := Summarize(results)
	if s.Arity != 2 || s.Radius != 1 || s.Runs != 2 {
		t.Fatalf("summary = %+v", s)
	}

	const eps = 1e-12
	checks := []struct {
		name      string
		got, want float64
	}{
		{"live mean", s.LiveMean, 0.3},
		{"live std", s.LiveStd, 0.1},
		{"active mean", s.ActiveMean, 0.2},
		{"divergence mean", s.DivergenceMean, 0.25},
		{"healed", s.HealedFraction, 0.5},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > eps {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if (Summarize(nil) != Summary{}) {
		t.Error("empty summary not zero")
	}
}
