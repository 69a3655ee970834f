package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, bt BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == bt {
			return true
		}
	}
	return false
}

func newTestDetector() *BookmarkDetector {
	return NewBookmarkDetector(10, 0.01, 0.05)
}

func TestBookmarkDetector_FixedPointFiresOnce(t *testing.T) {
	bd := newTestDetector()

	bd.Check(WindowStats{Generation: 100, Cells: 100, Live: 40, Active: 30})

	frozen := WindowStats{Generation: 200, Cells: 100, Live: 40, Active: 0}
	if !hasBookmark(bd.Check(frozen), BookmarkFixedPoint) {
		t.Fatal("expected fixed_point bookmark")
	}
	frozen.Generation = 300
	if hasBookmark(bd.Check(frozen), BookmarkFixedPoint) {
		t.Fatal("fixed_point fired twice for one frozen stretch")
	}

	bd.Check(WindowStats{Generation: 400, Cells: 100, Live: 40, Active: 5})
	frozen.Generation = 500
	if !hasBookmark(bd.Check(frozen), BookmarkFixedPoint) {
		t.Fatal("expected fixed_point after activity resumed and stopped again")
	}
}

func TestBookmarkDetector_ExtinctionAndSaturation(t *testing.T) {
	bd := newTestDetector()

	if !hasBookmark(bd.Check(WindowStats{Generation: 100, Cells: 64, Live: 0, Active: 3}), BookmarkExtinction) {
		t.Error("expected extinction bookmark")
	}
	bm := bd.Check(WindowStats{Generation: 200, Cells: 64, Live: 64, Active: 3})
	if !hasBookmark(bm, BookmarkSaturation) {
		t.Error("expected saturation bookmark")
	}
	if hasBookmark(bm, BookmarkExtinction) {
		t.Error("extinction must not fire on a full grid")
	}
}

func TestBookmarkDetector_DivergenceSpread(t *testing.T) {
	bd := newTestDetector()

	small := WindowStats{Generation: 100, Cells: 1000, Live: 500, Active: 100,
		HasShadow: true, Divergence: 1, DivergenceFraction: 0.001}
	if hasBookmark(bd.Check(small), BookmarkDivergenceSpread) {
		t.Fatal("divergence below threshold must not fire")
	}

	wide := small
	wide.Generation, wide.Divergence, wide.DivergenceFraction = 200, 100, 0.1
	if !hasBookmark(bd.Check(wide), BookmarkDivergenceSpread) {
		t.Fatal("expected divergence_spread bookmark")
	}
	wide.Generation = 300
	if hasBookmark(bd.Check(wide), BookmarkDivergenceSpread) {
		t.Fatal("divergence_spread fired twice")
	}
}

func TestBookmarkDetector_PerturbationHealed(t *testing.T) {
	bd := newTestDetector()

	bd.Check(WindowStats{Generation: 100, Cells: 100, Active: 10, HasShadow: true, Divergence: 4, DivergenceFraction: 0.04})
	healed := WindowStats{Generation: 200, Cells: 100, Active: 10, HasShadow: true}
	if !hasBookmark(bd.Check(healed), BookmarkPerturbationHealed) {
		t.Fatal("expected perturbation_healed bookmark")
	}
	healed.Generation = 300
	if hasBookmark(bd.Check(healed), BookmarkPerturbationHealed) {
		t.Fatal("perturbation_healed fired without a new divergence")
	}

	// Discarding the shadow is not healing.
	bd.Check(WindowStats{Generation: 400, Cells: 100, Active: 10, HasShadow: true, Divergence: 4})
	if hasBookmark(bd.Check(WindowStats{Generation: 500, Cells: 100, Active: 10}), BookmarkPerturbationHealed) {
		t.Fatal("perturbation_healed fired after the shadow was dropped")
	}
}

func TestBookmarkDetector_SteadyState(t *testing.T) {
	bd := newTestDetector()

	fired := 0
	for i := 0; i < 12; i++ {
		stats := WindowStats{
			Generation:   uint64(i * 100),
			Cells:        1000,
			Live:         500,
			LiveFraction: 0.5,
			Active:       200,
		}
		if hasBookmark(bd.Check(stats), BookmarkSteadyState) {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("steady_state fired %d times, want 1", fired)
	}
}

func TestBookmarkDetector_SteadyStateNeedsActivity(t *testing.T) {
	bd := newTestDetector()
	for i := 0; i < 12; i++ {
		stats := WindowStats{Generation: uint64(i * 100), Cells: 1000, Live: 500, LiveFraction: 0.5}
		if hasBookmark(bd.Check(stats), BookmarkSteadyState) {
			t.Fatal("a frozen grid must not be reported as steady")
		}
	}
}

func TestBookmarkDetector_Reset(t *testing.T) {
	bd := newTestDetector()
	frozen := WindowStats{Generation: 100, Cells: 10, Live: 5}
	bd.Check(frozen)
	bd.Reset()
	if !hasBookmark(bd.Check(frozen), BookmarkFixedPoint) {
		t.Fatal("reset detector should report the fixed point again")
	}
}
