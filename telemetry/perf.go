package telemetry

import (
	"log/slog"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase names within one generation.
const (
	PhaseStepPrimary = "step_primary"
	PhaseStepShadow  = "step_shadow"
	PhaseTelemetry   = "telemetry"
	PhaseRender      = "render"
)

// phases lists every phase in reporting order.
var phases = []string{PhaseStepPrimary, PhaseStepShadow, PhaseTelemetry, PhaseRender}

// Phases returns the phase names in reporting order.
func Phases() []string { return append([]string(nil), phases...) }

// PerfSample holds timing data for a single generation.
type PerfSample struct {
	Duration time.Duration
	Cells    int // cells updated, shadow included
	Phases   map[string]time.Duration
}

// PerfCollector keeps a ring of recent generation timings.
//
// Phases are timed either sequentially with StartPhase, or measured
// elsewhere and added with AddPhase. Durations added while no generation is
// open are credited to the next one, so frame rendering done between
// updates still shows up.
type PerfCollector struct {
	ring  []PerfSample
	next  int
	count int

	open    bool
	start   time.Time
	current map[string]time.Duration
	pending map[string]time.Duration

	phase      string
	phaseStart time.Time

	lastFrame time.Time
	frame     time.Duration
}

// NewPerfCollector keeps the last windowSize generations. Sizes below one
// fall back to 60.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		ring:    make([]PerfSample, windowSize),
		pending: make(map[string]time.Duration),
	}
}

// StartGeneration opens a new sample.
func (p *PerfCollector) StartGeneration() {
	p.start = time.Now()
	p.current = p.pending
	p.pending = make(map[string]time.Duration)
	p.phase = ""
	p.open = true
}

// StartPhase closes the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	p.closePhase(now)
	p.phase, p.phaseStart = phase, now
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase != "" {
		p.current[p.phase] += now.Sub(p.phaseStart)
		p.phase = ""
	}
}

// AddPhase credits d to phase. Durations added this way may overlap each
// other, so phase percentages can sum past 100.
func (p *PerfCollector) AddPhase(phase string, d time.Duration) {
	if !p.open {
		p.pending[phase] += d
		return
	}
	p.current[phase] += d
}

// EndGeneration closes the sample, recording how many cells were updated.
func (p *PerfCollector) EndGeneration(cells int) {
	if !p.open {
		return
	}
	now := time.Now()
	p.closePhase(now)
	p.open = false

	p.ring[p.next] = PerfSample{Duration: now.Sub(p.start), Cells: cells, Phases: p.current}
	p.next = (p.next + 1) % len(p.ring)
	p.count = min(p.count+1, len(p.ring))
}

// RecordFrame marks a presented frame in windowed mode.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frame = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats summarises the collector's window.
type PerfStats struct {
	Generations int // samples in the window

	AvgGeneration time.Duration
	MinGeneration time.Duration
	MaxGeneration time.Duration
	P95Generation time.Duration

	// Average duration and share of the average generation, per phase.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	GenerationsPerSecond float64
	CellUpdatesPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats computes PerfStats over the samples currently held.
func (p *PerfCollector) Stats() PerfStats {
	out := PerfStats{
		Generations:   p.count,
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameDuration: p.frame,
	}
	if p.frame > 0 {
		out.FPS = float64(time.Second) / float64(p.frame)
	}
	if p.count == 0 {
		return out
	}

	durations := make([]float64, p.count)
	var cells int
	phaseSum := make(map[string]time.Duration)
	for i, s := range p.ring[:p.count] {
		durations[i] = float64(s.Duration)
		cells += s.Cells
		for name, d := range s.Phases {
			phaseSum[name] += d
		}
	}
	slices.Sort(durations)

	mean := stat.Mean(durations, nil)
	out.AvgGeneration = time.Duration(mean)
	out.MinGeneration = time.Duration(durations[0])
	out.MaxGeneration = time.Duration(durations[len(durations)-1])
	out.P95Generation = time.Duration(stat.Quantile(0.95, stat.Empirical, durations, nil))

	n := time.Duration(p.count)
	for name, sum := range phaseSum {
		avg := sum / n
		out.PhaseAvg[name] = avg
		if mean > 0 {
			out.PhasePct[name] = float64(avg) / mean * 100
		}
	}
	if mean > 0 {
		out.GenerationsPerSecond = float64(time.Second) / mean
		out.CellUpdatesPerSecond = float64(cells) / float64(p.count) * out.GenerationsPerSecond
	}
	return out
}

// LogStats logs the stats at info level on the default logger.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_gen_us", s.AvgGeneration.Microseconds(),
		"p95_gen_us", s.P95Generation.Microseconds(),
		"max_gen_us", s.MaxGeneration.Microseconds(),
		"gens_per_sec", int(s.GenerationsPerSecond),
		"mcells_per_sec", int(s.CellUpdatesPerSecond / 1e6),
	}
	if s.FPS > 0 {
		attrs = append(attrs, "fps", int(s.FPS))
	}
	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_gen_us", s.AvgGeneration.Microseconds()),
		slog.Int64("min_gen_us", s.MinGeneration.Microseconds()),
		slog.Int64("max_gen_us", s.MaxGeneration.Microseconds()),
		slog.Int64("p95_gen_us", s.P95Generation.Microseconds()),
		slog.Float64("gens_per_sec", s.GenerationsPerSecond),
		slog.Float64("cells_per_sec", s.CellUpdatesPerSecond),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd      uint64  `csv:"window_end"`
	AvgGenUS       int64   `csv:"avg_gen_us"`
	MinGenUS       int64   `csv:"min_gen_us"`
	MaxGenUS       int64   `csv:"max_gen_us"`
	P95GenUS       int64   `csv:"p95_gen_us"`
	GensPerSec     float64 `csv:"gens_per_sec"`
	CellsPerSec    float64 `csv:"cells_per_sec"`
	FPS            float64 `csv:"fps"`
	StepPrimaryPct float64 `csv:"step_primary_pct"`
	StepShadowPct  float64 `csv:"step_shadow_pct"`
	TelemetryPct   float64 `csv:"telemetry_pct"`
	RenderPct      float64 `csv:"render_pct"`
}

// ToCSV flattens s into a perf.csv row.
func (s PerfStats) ToCSV(windowEnd uint64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:      windowEnd,
		AvgGenUS:       s.AvgGeneration.Microseconds(),
		MinGenUS:       s.MinGeneration.Microseconds(),
		MaxGenUS:       s.MaxGeneration.Microseconds(),
		P95GenUS:       s.P95Generation.Microseconds(),
		GensPerSec:     s.GenerationsPerSecond,
		CellsPerSec:    s.CellUpdatesPerSecond,
		FPS:            s.FPS,
		StepPrimaryPct: s.PhasePct[PhaseStepPrimary],
		StepShadowPct:  s.PhasePct[PhaseStepShadow],
		TelemetryPct:   s.PhasePct[PhaseTelemetry],
		RenderPct:      s.PhasePct[PhaseRender],
	}
}
