package ui

import (
	"errors"
	"testing"

	"github.com/pthm-cable/boolnet/config"
	"github.com/pthm-cable/boolnet/grid"
	"github.com/pthm-cable/boolnet/render"
	"github.com/pthm-cable/boolnet/sim"
)

func newTestSim(t *testing.T) *sim.Simulation {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Grid.Width, cfg.Grid.Height = 40, 30
	cfg.Grid.Seed = 5
	cfg.Engine.MaxWorkers = 2
	cfg.Engine.PinCores = false
	s, err := sim.New(sim.Options{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestApply(t *testing.T) {
	s := newTestSim(t)

	steps := []struct {
		action Action
		check  func() bool
	}{
		{ActionTogglePause, s.Paused},
		{ActionDrawNormal, func() bool { return s.DrawMode() == render.Normal }},
		{ActionDrawChanges, func() bool { return s.DrawMode() == render.Changes }},
		{ActionSpeedUp, func() bool { return s.GenerationsPerUpdate() == 2 }},
		{ActionSpeedUp, func() bool { return s.GenerationsPerUpdate() == 3 }},
		{ActionSlowDown, func() bool { return s.GenerationsPerUpdate() == 2 }},
		{ActionResetSpeed, func() bool { return s.GenerationsPerUpdate() == 1 }},
		{ActionTogglePause, func() bool { return !s.Paused() }},
	}
	for _, st := range steps {
		if err := Apply(s, st.action); err != nil {
			t.Fatalf("%v: %v", st.action, err)
		}
		if !st.check() {
			t.Fatalf("%v did not take effect", st.action)
		}
	}
}

func TestApplyNewGridAndDropShadow(t *testing.T) {
	s := newTestSim(t)
	if err := s.ToggleCell(1, 1); err != nil {
		t.Fatal(err)
	}
	if err := Apply(s, ActionDropShadow); err != nil {
		t.Fatal(err)
	}
	if s.HasShadow() {
		t.Fatal("shadow survived drop")
	}

	before := s.Primary()
	if err := Apply(s, ActionNewGrid); err != nil {
		t.Fatal(err)
	}
	if s.Primary() == before {
		t.Fatal("new grid action kept the old primary")
	}
}

func TestApplyUnknown(t *testing.T) {
	s := newTestSim(t)
	if err := Apply(s, Action(999)); err == nil {
		t.Fatal("expected error for unknown action")
	}
	if got := Action(999).String(); got != "action(999)" {
		t.Errorf("String() = %q", got)
	}
}

func TestInspect(t *testing.T) {
	s := newTestSim(t)

	info, err := Inspect(s, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if info.HasShadow || info.Differs {
		t.Fatalf("info = %+v before any toggle", info)
	}
	if len(info.Sources) != s.Primary().Topology().Arity() {
		t.Fatalf("got %d sources", len(info.Sources))
	}
	if info.Window != 20 {
		t.Fatalf("window = %d", info.Window)
	}

	if err := s.ToggleCell(3, 4); err != nil {
		t.Fatal(err)
	}
	info, err = Inspect(s, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !info.HasShadow || !info.Differs || info.ShadowOn == info.On {
		t.Fatalf("info = %+v after toggle", info)
	}

	if _, err := Inspect(s, 40, 0); !errors.Is(err, grid.ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
}
