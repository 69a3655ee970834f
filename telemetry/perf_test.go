package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartGeneration()
		pc.StartPhase(PhaseStepPrimary)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(PhaseTelemetry)
		time.Sleep(200 * time.Microsecond)
		pc.EndGeneration(1000)
	}

	stats := pc.Stats()
	if stats.Generations != 5 {
		t.Errorf("generations = %d, want 5", stats.Generations)
	}
	if stats.AvgGeneration <= 0 {
		t.Error("expected positive average generation duration")
	}
	if stats.MinGeneration > stats.P95Generation || stats.P95Generation > stats.MaxGeneration {
		t.Errorf("min %v, p95 %v, max %v out of order", stats.MinGeneration, stats.P95Generation, stats.MaxGeneration)
	}
	for _, phase := range []string{PhaseStepPrimary, PhaseTelemetry} {
		if _, ok := stats.PhaseAvg[phase]; !ok {
			t.Errorf("phase %s not tracked", phase)
		}
	}
}

func TestPerfCollector_Throughput(t *testing.T) {
	pc := NewPerfCollector(5)

	// Ten generations through a window of five.
	for i := 0; i < 10; i++ {
		pc.StartGeneration()
		pc.StartPhase(PhaseStepPrimary)
		time.Sleep(50 * time.Microsecond)
		pc.EndGeneration(2000)
	}

	stats := pc.Stats()
	if stats.Generations != 5 {
		t.Fatalf("generations = %d, want window size 5", stats.Generations)
	}
	if stats.GenerationsPerSecond <= 0 {
		t.Fatal("expected positive generations per second")
	}
	want := 2000 * stats.GenerationsPerSecond
	if d := stats.CellUpdatesPerSecond - want; d > 1e-6*want || d < -1e-6*want {
		t.Errorf("cells/s = %v, want %v", stats.CellUpdatesPerSecond, want)
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartGeneration()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(100 * time.Microsecond)
		pc.EndGeneration(1)
	}

	stats := pc.Stats()
	if fast, slow := stats.PhasePct["fast"], stats.PhasePct["slow"]; slow <= fast {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", slow, fast)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()

	if stats.AvgGeneration != 0 || stats.GenerationsPerSecond != 0 {
		t.Errorf("empty collector stats = %+v", stats)
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollector_EndWithoutStart(t *testing.T) {
	pc := NewPerfCollector(3)
	pc.EndGeneration(10)
	if got := pc.Stats().Generations; got != 0 {
		t.Errorf("generations = %d after unmatched end", got)
	}
}

func TestPerfCollector_FrameTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.RecordFrame()
	time.Sleep(16 * time.Millisecond)
	pc.RecordFrame()

	stats := pc.Stats()
	if stats.FrameDuration < 15*time.Millisecond {
		t.Errorf("expected frame duration >= 15ms, got %v", stats.FrameDuration)
	}
	// Sleep may overshoot, so only the upper bound is loose.
	if stats.FPS <= 0 || stats.FPS > 70 {
		t.Errorf("fps = %v with 16ms frames", stats.FPS)
	}
}

func TestPerfCollector_AddPhase(t *testing.T) {
	pc := NewPerfCollector(4)

	pc.StartGeneration()
	pc.AddPhase(PhaseStepPrimary, 3*time.Millisecond)
	pc.AddPhase(PhaseStepShadow, 2*time.Millisecond)
	pc.AddPhase(PhaseStepShadow, time.Millisecond)
	pc.EndGeneration(100)

	stats := pc.Stats()
	if got := stats.PhaseAvg[PhaseStepPrimary]; got != 3*time.Millisecond {
		t.Errorf("step_primary avg = %v, want 3ms", got)
	}
	if got := stats.PhaseAvg[PhaseStepShadow]; got != 3*time.Millisecond {
		t.Errorf("step_shadow avg = %v, want 3ms", got)
	}

	row := stats.ToCSV(42)
	if row.WindowEnd != 42 || row.StepPrimaryPct != stats.PhasePct[PhaseStepPrimary] {
		t.Errorf("csv row = %+v", row)
	}
}

func TestPerfCollector_AddPhaseBetweenGenerations(t *testing.T) {
	pc := NewPerfCollector(4)

	pc.AddPhase(PhaseRender, 4*time.Millisecond)
	pc.StartGeneration()
	pc.EndGeneration(1)
	pc.StartGeneration()
	pc.EndGeneration(1)

	stats := pc.Stats()
	if got := stats.PhaseAvg[PhaseRender]; got != 2*time.Millisecond {
		t.Errorf("render avg = %v, want 2ms over two generations", got)
	}
}
