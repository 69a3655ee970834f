package telemetry

// Sample is the grid state the collector reads at the end of a window.
type Sample struct {
	Cells   []uint8 // primary cells, 0/1
	Recency []uint8 // primary recency counters

	HasShadow  bool
	Divergence int // cells differing between primary and shadow
}

// Collector accumulates events within generation windows and produces
// WindowStats.
type Collector struct {
	windowGenerations uint64

	// Current window tracking
	windowStart uint64

	// Event counters for current window
	toggles             int
	tableRandomizations int
	cellRandomizations  int
	newGrids            int
}

// NewCollector creates a new stats collector.
// windowGenerations: how many generations each stats window spans.
func NewCollector(windowGenerations int) *Collector {
	if windowGenerations < 1 {
		windowGenerations = 1
	}
	return &Collector{windowGenerations: uint64(windowGenerations)}
}

// Record counts one intervention.
func (c *Collector) Record(e EventType) {
	switch e {
	case EventToggle:
		c.toggles++
	case EventRandomizeTable:
		c.tableRandomizations++
	case EventRandomizeCells:
		c.cellRandomizations++
	case EventNewGrid:
		c.newGrids++
	}
}

// ShouldFlush returns true if enough generations have passed to flush the window.
func (c *Collector) ShouldFlush(generation uint64) bool {
	return generation >= c.windowStart+c.windowGenerations
}

// Restart moves the window start, used when the generation counter resets
// under a new grid. Event counters are kept.
func (c *Collector) Restart(generation uint64) {
	c.windowStart = generation
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(generation uint64, s Sample) WindowStats {
	n := len(s.Cells)
	live := 0
	for _, v := range s.Cells {
		live += int(v)
	}
	hist := RecencyHistogram(s.Recency)
	active := len(s.Recency) - int(hist[0])
	recMean, recStd, recP50, recP90 := ComputeRecencyStats(hist)

	stats := WindowStats{
		WindowStart: c.windowStart,
		Generation:  generation,

		Cells:  n,
		Live:   live,
		Active: active,

		RecencyMean: recMean,
		RecencyStd:  recStd,
		RecencyP50:  recP50,
		RecencyP90:  recP90,

		HasShadow: s.HasShadow,

		Toggles:             c.toggles,
		TableRandomizations: c.tableRandomizations,
		CellRandomizations:  c.cellRandomizations,
		NewGrids:            c.newGrids,
	}
	if n > 0 {
		stats.LiveFraction = float64(live) / float64(n)
		stats.ActiveFraction = float64(active) / float64(n)
	}
	if s.HasShadow {
		stats.Divergence = s.Divergence
		if n > 0 {
			stats.DivergenceFraction = float64(s.Divergence) / float64(n)
		}
	}

	// Reset for next window
	c.windowStart = generation
	c.toggles = 0
	c.tableRandomizations = 0
	c.cellRandomizations = 0
	c.newGrids = 0

	return stats
}

// WindowGenerations returns the number of generations per window.
func (c *Collector) WindowGenerations() uint64 {
	return c.windowGenerations
}
