package telemetry

import (
	"math"
	"testing"
)

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(10)

	if c.ShouldFlush(9) {
		t.Fatal("flush before the window is full")
	}
	if !c.ShouldFlush(10) {
		t.Fatal("no flush at the end of the window")
	}

	c.Record(EventToggle)
	c.Record(EventToggle)
	c.Record(EventRandomizeTable)
	c.Record(EventRandomizeCells)

	stats := c.Flush(10, Sample{
		Cells:      []uint8{1, 0, 1, 1},
		Recency:    []uint8{0, 2, 4, 0},
		HasShadow:  true,
		Divergence: 1,
	})

	if stats.WindowStart != 0 || stats.Generation != 10 {
		t.Errorf("window = %d..%d, want 0..10", stats.WindowStart, stats.Generation)
	}
	if stats.Live != 3 || stats.LiveFraction != 0.75 {
		t.Errorf("live = %d (%v), want 3 (0.75)", stats.Live, stats.LiveFraction)
	}
	if stats.Active != 2 || stats.ActiveFraction != 0.5 {
		t.Errorf("active = %d (%v), want 2 (0.5)", stats.Active, stats.ActiveFraction)
	}
	if math.Abs(stats.RecencyMean-1.5) > 1e-9 {
		t.Errorf("recency mean = %v, want 1.5", stats.RecencyMean)
	}
	if stats.Divergence != 1 || stats.DivergenceFraction != 0.25 {
		t.Errorf("divergence = %d (%v), want 1 (0.25)", stats.Divergence, stats.DivergenceFraction)
	}
	if stats.Toggles != 2 || stats.TableRandomizations != 1 || stats.CellRandomizations != 1 || stats.NewGrids != 0 {
		t.Errorf("events = %+v", stats)
	}

	// Counters reset and the window moves on.
	if c.ShouldFlush(19) || !c.ShouldFlush(20) {
		t.Error("window did not advance")
	}
	next := c.Flush(20, Sample{Cells: []uint8{0}, Recency: []uint8{0}})
	if next.Toggles != 0 || next.HasShadow || next.Divergence != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
}

func TestCollectorRestart(t *testing.T) {
	c := NewCollector(5)
	c.Flush(100, Sample{})
	c.Record(EventNewGrid)
	c.Restart(0)
	if c.ShouldFlush(4) || !c.ShouldFlush(5) {
		t.Fatal("restart did not reset the window start")
	}
	if s := c.Flush(5, Sample{}); s.NewGrids != 1 {
		t.Fatalf("new grids = %d, want 1", s.NewGrids)
	}
}

func TestEventTypeString(t *testing.T) {
	if EventRandomizeTable.String() != "randomize_table" {
		t.Fatalf("String() = %q", EventRandomizeTable.String())
	}
}
