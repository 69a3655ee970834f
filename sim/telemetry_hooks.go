package sim

import (
	"time"

	"github.com/pthm-cable/boolnet/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Simulation) flushTelemetry() {
	gen := s.primary.Generation()
	if !s.collector.ShouldFlush(gen) {
		return
	}

	stats := s.collector.Flush(gen, telemetry.Sample{
		Cells:      s.primary.Cells(),
		Recency:    s.primary.Recency(),
		HasShadow:  s.shadow != nil,
		Divergence: s.Divergence(),
	})
	perfStats := s.perfCollector.Stats()

	if s.statsCallback != nil {
		s.statsCallback(stats)
	}

	if s.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := s.outputManager.WriteTelemetry(stats); err != nil {
		s.logger.Error("failed to write telemetry", "error", err)
	}
	if err := s.outputManager.WritePerf(perfStats, stats.Generation); err != nil {
		s.logger.Error("failed to write perf", "error", err)
	}

	for _, bm := range s.bookmarkDetector.Check(stats) {
		if s.logStats {
			bm.LogBookmark()
		}
		if err := s.outputManager.WriteBookmark(bm); err != nil {
			s.logger.Error("failed to write bookmark", "error", err)
		}
		if s.cfg.Telemetry.SnapshotOnBookmark {
			s.saveSnapshot(&bm)
		}
	}
}

// saveSnapshot writes the current grids to the output directory.
func (s *Simulation) saveSnapshot(bm *telemetry.Bookmark) {
	path, err := s.outputManager.WriteSnapshot(telemetry.NewSnapshot(s.primary, s.shadow, bm))
	if err != nil {
		s.logger.Error("failed to save snapshot", "error", err)
		return
	}
	if path != "" {
		s.logger.Info("snapshot saved", "path", path, "generation", s.primary.Generation())
	}
}

// SaveSnapshot writes the current grids to the output directory and returns
// the file path, or "" when output is disabled.
func (s *Simulation) SaveSnapshot() (string, error) {
	return s.outputManager.WriteSnapshot(telemetry.NewSnapshot(s.primary, s.shadow, nil))
}

// PerfStats returns the rolling performance statistics.
func (s *Simulation) PerfStats() telemetry.PerfStats {
	return s.perfCollector.Stats()
}

// RecordFrame records frame timing for graphics mode.
func (s *Simulation) RecordFrame() {
	s.perfCollector.RecordFrame()
}

// RecordRender adds time spent drawing to the perf window.
func (s *Simulation) RecordRender(d time.Duration) {
	s.perfCollector.AddPhase(telemetry.PhaseRender, d)
}
