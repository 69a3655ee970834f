package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFixedPoint         BookmarkType = "fixed_point"
	BookmarkExtinction         BookmarkType = "extinction"
	BookmarkSaturation         BookmarkType = "saturation"
	BookmarkSteadyState        BookmarkType = "steady_state"
	BookmarkDivergenceSpread   BookmarkType = "divergence_spread"
	BookmarkPerturbationHealed BookmarkType = "perturbation_healed"
)

// steadyWindows is how many consecutive low-variation windows make a steady state.
const steadyWindows = 5

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Generation  uint64       `csv:"generation" json:"generation"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"generation", b.Generation,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	steadyCV         float64
	divergenceSpread float64

	// State tracking; each condition fires once on entry
	inFixedPoint       bool
	inExtinction       bool
	inSaturation       bool
	spread             bool
	lastDivergence     int
	steadyWindowsCount int
}

// NewBookmarkDetector creates a detector with the given history size.
// steadyCV is the live-fraction coefficient of variation below which the
// network counts as steady; divergenceSpread is the divergence fraction at
// which a perturbation counts as having spread.
func NewBookmarkDetector(historySize int, steadyCV, divergenceSpread float64) *BookmarkDetector {
	if historySize < 4 {
		historySize = 4 // minimum for steady state detection
	}
	return &BookmarkDetector{
		history:          make([]WindowStats, historySize),
		historySize:      historySize,
		steadyCV:         steadyCV,
		divergenceSpread: divergenceSpread,
	}
}

// Reset forgets all history, used when the primary grid is replaced.
func (bd *BookmarkDetector) Reset() {
	*bd = *NewBookmarkDetector(bd.historySize, bd.steadyCV, bd.divergenceSpread)
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	for _, check := range []func(WindowStats) *Bookmark{
		bd.checkFixedPoint,
		bd.checkExtinction,
		bd.checkSaturation,
		bd.checkDivergenceSpread,
		bd.checkPerturbationHealed,
	} {
		if b := check(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if b := bd.checkSteadyState(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkFixedPoint(stats WindowStats) *Bookmark {
	now := stats.Cells > 0 && stats.Active == 0
	entered := now && !bd.inFixedPoint
	bd.inFixedPoint = now
	if !entered {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkFixedPoint,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("No cell changed recently; frozen with %d live cells", stats.Live),
	}
}

func (bd *BookmarkDetector) checkExtinction(stats WindowStats) *Bookmark {
	now := stats.Cells > 0 && stats.Live == 0
	entered := now && !bd.inExtinction
	bd.inExtinction = now
	if !entered {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkExtinction,
		Generation:  stats.Generation,
		Description: "Every cell is off",
	}
}

func (bd *BookmarkDetector) checkSaturation(stats WindowStats) *Bookmark {
	now := stats.Cells > 0 && stats.Live == stats.Cells
	entered := now && !bd.inSaturation
	bd.inSaturation = now
	if !entered {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSaturation,
		Generation:  stats.Generation,
		Description: "Every cell is on",
	}
}

func (bd *BookmarkDetector) checkDivergenceSpread(stats WindowStats) *Bookmark {
	now := stats.HasShadow && stats.DivergenceFraction >= bd.divergenceSpread
	entered := now && !bd.spread
	bd.spread = now
	if !entered {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkDivergenceSpread,
		Generation:  stats.Generation,
		Description: fmt.Sprintf("Shadow differs in %d cells (%.2f%%)", stats.Divergence, stats.DivergenceFraction*100),
	}
}

func (bd *BookmarkDetector) checkPerturbationHealed(stats WindowStats) *Bookmark {
	last := bd.lastDivergence
	bd.lastDivergence = 0
	if !stats.HasShadow {
		return nil
	}
	bd.lastDivergence = stats.Divergence
	if last > 0 && stats.Divergence == 0 {
		return &Bookmark{
			Type:        BookmarkPerturbationHealed,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Shadow converged back to the primary after differing in %d cells", last),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkSteadyState(stats WindowStats) *Bookmark {
	// A frozen grid is a fixed point, not a steady state
	if stats.Active == 0 {
		bd.steadyWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	fractions := make([]float64, len(history))
	for i, h := range history {
		fractions[i] = h.LiveFraction
	}

	if CoefficientOfVariation(fractions) < bd.steadyCV {
		bd.steadyWindowsCount++
	} else {
		bd.steadyWindowsCount = 0
	}

	if bd.steadyWindowsCount == steadyWindows { // trigger exactly once per steady run
		return &Bookmark{
			Type:        BookmarkSteadyState,
			Generation:  stats.Generation,
			Description: fmt.Sprintf("Live fraction steady near %.3f over %d+ windows", stats.LiveFraction, steadyWindows),
		}
	}

	return nil
}
