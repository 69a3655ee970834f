package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/boolnet/engine"
	"github.com/pthm-cable/boolnet/grid"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds everything needed to rebuild a grid: the configuration it
// was generated from (the topology is regenerated from the seed) and its
// mutable state. The shadow is included when one exists.
type Snapshot struct {
	Version int `json:"version"`

	Config grid.Config `json:"config"`
	State  grid.State  `json:"state"`
	Shadow *grid.State `json:"shadow,omitempty"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// NewSnapshot captures primary and, if non-nil, shadow.
func NewSnapshot(primary, shadow *grid.Grid, bm *Bookmark) *Snapshot {
	s := &Snapshot{
		Version:  SnapshotVersion,
		Config:   primary.Config(),
		State:    primary.State(),
		Bookmark: bm,
	}
	if shadow != nil {
		st := shadow.State()
		s.Shadow = &st
	}
	return s
}

// Restore rebuilds the primary grid and, if the snapshot holds one, the shadow.
func (s *Snapshot) Restore(pool *engine.Pool) (primary, shadow *grid.Grid, err error) {
	if s.Version != SnapshotVersion {
		return nil, nil, fmt.Errorf("snapshot version %d, want %d", s.Version, SnapshotVersion)
	}
	primary, err = grid.New(s.Config, pool)
	if err != nil {
		return nil, nil, fmt.Errorf("rebuild grid: %w", err)
	}
	if s.Shadow != nil {
		shadow = primary.Fork()
		if err := shadow.Restore(*s.Shadow); err != nil {
			return nil, nil, fmt.Errorf("restore shadow: %w", err)
		}
	}
	if err := primary.Restore(s.State); err != nil {
		return nil, nil, fmt.Errorf("restore grid: %w", err)
	}
	return primary, shadow, nil
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.State.Generation)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.State.Generation, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
