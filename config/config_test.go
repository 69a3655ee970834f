package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/boolnet/grid"
	"github.com/pthm-cable/boolnet/topology"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.Width != 1000 || cfg.Grid.Height != 1000 {
		t.Errorf("grid = %dx%d, want 1000x1000", cfg.Grid.Width, cfg.Grid.Height)
	}
	if cfg.Topology.Arity != 3 || cfg.Topology.Radius != 6 {
		t.Errorf("topology arity/radius = %d/%d, want 3/6", cfg.Topology.Arity, cfg.Topology.Radius)
	}
	if cfg.Recency.Window != 20 {
		t.Errorf("recency window = %d, want 20", cfg.Recency.Window)
	}
	if cfg.Engine.MaxWorkers != 4 || !cfg.Engine.PinCores {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Derived.Cells != 1000*1000 {
		t.Errorf("derived cells = %d", cfg.Derived.Cells)
	}

	p := cfg.TopologyPolicy()
	if p != topology.DefaultPolicy() {
		t.Errorf("policy = %+v, want %+v", p, topology.DefaultPolicy())
	}
	if gc := cfg.GridConfig(); gc.Init != grid.Uniform || gc.OnProbability != 0.5 {
		t.Errorf("grid config = %+v", gc)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte("grid:\n  width: 64\ntopology:\n  neighborhood: von_neumann\n  underfill: self\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.Width != 64 {
		t.Errorf("width = %d, want 64", cfg.Grid.Width)
	}
	if cfg.Grid.Height != 1000 {
		t.Errorf("height = %d, want default 1000", cfg.Grid.Height)
	}
	if cfg.TopologyPolicy().Neighborhood != topology.VonNeumann {
		t.Errorf("neighborhood not overridden")
	}
	if cfg.Topology.Arity != 3 {
		t.Errorf("arity = %d, want default 3", cfg.Topology.Arity)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"arity":       "topology:\n  arity: 0\n",
		"window":      "recency:\n  window: 300\n",
		"probability": "rules:\n  true_probability: 0\n",
		"underfill":   "topology:\n  underfill: spill\n",
		"stats":       "telemetry:\n  stats_window: 0\n",
		"speed":       "screen:\n  generations_per_update: 0\n",
		"workers":     "engine:\n  max_workers: -1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			if err := os.WriteFile(path, []byte(body), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want a read error", err)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Grid.Seed = 1234
	cfg.Topology.Arity = 5

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Grid.Seed != 1234 || back.Topology.Arity != 5 {
		t.Fatalf("reloaded = %+v / %+v", back.Grid, back.Topology)
	}
}
