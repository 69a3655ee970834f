package telemetry

import (
	"log/slog"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of generations.
type WindowStats struct {
	WindowStart uint64 `csv:"-"`
	Generation  uint64 `csv:"generation"`

	// Primary grid, sampled at window end
	Cells          int     `csv:"cells"`
	Live           int     `csv:"live"`
	LiveFraction   float64 `csv:"live_frac"`
	Active         int     `csv:"active"` // recency > 0
	ActiveFraction float64 `csv:"active_frac"`

	// Recency distribution
	RecencyMean float64 `csv:"recency_mean"`
	RecencyStd  float64 `csv:"recency_std"`
	RecencyP50  float64 `csv:"recency_p50"`
	RecencyP90  float64 `csv:"recency_p90"`

	// Comparison shadow
	HasShadow          bool    `csv:"has_shadow"`
	Divergence         int     `csv:"divergence"`
	DivergenceFraction float64 `csv:"divergence_frac"`

	// Interventions during window
	Toggles             int `csv:"toggles"`
	TableRandomizations int `csv:"table_randomizations"`
	CellRandomizations  int `csv:"cell_randomizations"`
	NewGrids            int `csv:"new_grids"`
}

// Histogram counts recency values 0..255.
type Histogram [256]float64

// RecencyHistogram counts how many cells hold each recency value.
func RecencyHistogram(recency []uint8) *Histogram {
	var h Histogram
	for _, r := range recency {
		h[r]++
	}
	return &h
}

// levels holds the x values 0..255 for weighted statistics over a Histogram.
var levels = func() []float64 {
	x := make([]float64, 256)
	for i := range x {
		x[i] = float64(i)
	}
	return x
}()

// ComputeRecencyStats calculates mean, std, and percentiles from a recency
// histogram. The std is the population deviation.
func ComputeRecencyStats(h *Histogram) (mean, std, p50, p90 float64) {
	var total float64
	for _, c := range h {
		total += c
	}
	if total == 0 {
		return 0, 0, 0, 0
	}

	mean, std = stat.PopMeanStdDev(levels, h[:])
	p50 = stat.Quantile(0.5, stat.Empirical, levels, h[:])
	p90 = stat.Quantile(0.9, stat.Empirical, levels, h[:])
	return mean, std, p50, p90
}

// CoefficientOfVariation returns std/mean of values, or 0 when the mean is 0.
func CoefficientOfVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStart),
		slog.Uint64("generation", s.Generation),
		slog.Int("live", s.Live),
		slog.Float64("live_frac", s.LiveFraction),
		slog.Int("active", s.Active),
		slog.Float64("active_frac", s.ActiveFraction),
		slog.Float64("recency_mean", s.RecencyMean),
		slog.Float64("recency_std", s.RecencyStd),
		slog.Float64("recency_p50", s.RecencyP50),
		slog.Float64("recency_p90", s.RecencyP90),
		slog.Bool("has_shadow", s.HasShadow),
		slog.Int("divergence", s.Divergence),
		slog.Float64("divergence_frac", s.DivergenceFraction),
		slog.Int("toggles", s.Toggles),
		slog.Int("table_randomizations", s.TableRandomizations),
		slog.Int("cell_randomizations", s.CellRandomizations),
		slog.Int("new_grids", s.NewGrids),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"generation", s.Generation,
		"live", s.Live,
		"live_frac", s.LiveFraction,
		"active", s.Active,
		"active_frac", s.ActiveFraction,
		"recency_mean", s.RecencyMean,
		"recency_std", s.RecencyStd,
		"recency_p50", s.RecencyP50,
		"recency_p90", s.RecencyP90,
		"has_shadow", s.HasShadow,
		"divergence", s.Divergence,
		"divergence_frac", s.DivergenceFraction,
		"toggles", s.Toggles,
		"table_randomizations", s.TableRandomizations,
		"cell_randomizations", s.CellRandomizations,
		"new_grids", s.NewGrids,
	)
}
