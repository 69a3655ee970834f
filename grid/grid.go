// Package grid owns the state of one Boolean network: its cells, connection
// table, rule table and recency counters.
//
// Cell i sits at (i mod W, i div W). Cells hold 0 or 1. The recency counter of
// a cell climbs by one for every generation in which the cell flipped and
// decays by one otherwise, bounded to [0, Window]; it is display-only and never
// feeds back into the simulation.
package grid

import (
	"errors"
	"fmt"
	"math/rand/v2"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/boolnet/engine"
	"github.com/pthm-cable/boolnet/rules"
	"github.com/pthm-cable/boolnet/topology"
)

// RNG streams derived from the grid seed. Keeping them apart makes the
// topology and rule table independent of the grid's later randomizations.
const (
	streamTopology uint64 = iota + 1
	streamRules
	streamCells
	streamRuntime
)

// MaxWindow is the largest recency window a counter can hold.
const MaxWindow = 255

var (
	// ErrInvalidConfig wraps every construction-time configuration failure.
	ErrInvalidConfig = errors.New("grid: invalid configuration")
	// ErrOutOfRange is returned for coordinates outside the grid.
	ErrOutOfRange = errors.New("grid: coordinates out of range")
)

// CellInit selects how cell states are rolled.
type CellInit string

const (
	// Uniform sets each cell independently with probability Density.
	Uniform CellInit = "uniform"
	// Noise thresholds simplex noise, giving spatially coherent blobs.
	Noise CellInit = "noise"
)

// Config describes a grid.
type Config struct {
	Width, Height int
	Topology      topology.Policy
	// OnProbability is the chance a non-boundary rule entry maps to on.
	OnProbability float64
	// Window is the recency cap L.
	Window     int
	Init       CellInit
	Density    float64
	NoiseScale float64
	Seed       uint64
}

// DefaultConfig mirrors the classic 1000x1000, three-input setup.
func DefaultConfig() Config {
	return Config{
		Width:         1000,
		Height:        1000,
		Topology:      topology.DefaultPolicy(),
		OnProbability: 0.5,
		Window:        20,
		Init:          Uniform,
		Density:       0.5,
		NoiseScale:    0.05,
		Seed:          1,
	}
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("dimensions %dx%d must be positive", c.Width, c.Height))
	}
	if err := rules.ValidateArity(c.Topology.Arity); err != nil {
		errs = append(errs, err)
	}
	if err := c.Topology.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !(c.OnProbability > 0 && c.OnProbability < 1) {
		errs = append(errs, fmt.Errorf("%w: %v", rules.ErrInvalidProbability, c.OnProbability))
	}
	if c.Window < 1 || c.Window > MaxWindow {
		errs = append(errs, fmt.Errorf("recency window %d outside 1..%d", c.Window, MaxWindow))
	}
	switch c.Init {
	case Uniform:
	case Noise:
		if c.NoiseScale <= 0 {
			errs = append(errs, fmt.Errorf("noise scale %v must be positive", c.NoiseScale))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cell init %q", c.Init))
	}
	if c.Density < 0 || c.Density > 1 {
		errs = append(errs, fmt.Errorf("density %v outside [0, 1]", c.Density))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Grid is one Boolean network. It is not safe for concurrent use; mutations
// are only valid between steps.
type Grid struct {
	cfg  Config
	w, h int

	cells       []uint8
	next        []uint8
	recency     []uint8
	nextRecency []uint8

	topo   *topology.Table
	rules  *rules.Table
	window uint8

	src  *rand.PCG
	rng  *rand.Rand
	pool *engine.Pool

	generation uint64
}

// New builds a grid: it generates the topology and rule table from cfg.Seed
// and rolls the initial cells. pool may be nil to step on the caller's
// goroutine.
func New(cfg Config, pool *engine.Pool) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	topo, err := topology.Generate(cfg.Width, cfg.Height, cfg.Topology, newRNG(cfg.Seed, streamTopology))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	tbl, err := rules.Generate(cfg.Topology.Arity, cfg.OnProbability, newRNG(cfg.Seed, streamRules))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	g := newGrid(cfg, topo, tbl, pool)
	g.fillCells(newRNG(cfg.Seed, streamCells))
	return g, nil
}

// Parts is an explicit grid description, used when the topology and rule
// table are chosen by hand rather than generated.
type Parts struct {
	Topology *topology.Table
	Rules    *rules.Table
	Cells    []bool
	Window   int
	Seed     uint64
}

// FromParts builds a grid around a hand-made topology and rule table.
func FromParts(p Parts, pool *engine.Pool) (*Grid, error) {
	if p.Topology == nil || p.Rules == nil {
		return nil, fmt.Errorf("%w: topology and rules are required", ErrInvalidConfig)
	}
	if p.Topology.Arity() != p.Rules.Arity() {
		return nil, fmt.Errorf("%w: topology arity %d, rule arity %d",
			ErrInvalidConfig, p.Topology.Arity(), p.Rules.Arity())
	}
	if err := p.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if len(p.Cells) != p.Topology.Len() {
		return nil, fmt.Errorf("%w: %d cells for a %dx%d topology",
			ErrInvalidConfig, len(p.Cells), p.Topology.Width(), p.Topology.Height())
	}
	if p.Window < 1 || p.Window > MaxWindow {
		return nil, fmt.Errorf("%w: recency window %d outside 1..%d", ErrInvalidConfig, p.Window, MaxWindow)
	}

	cfg := DefaultConfig()
	cfg.Width, cfg.Height = p.Topology.Width(), p.Topology.Height()
	cfg.Topology.Arity = p.Topology.Arity()
	cfg.OnProbability = p.Rules.OnProbability()
	cfg.Window = p.Window
	cfg.Seed = p.Seed

	g := newGrid(cfg, p.Topology, p.Rules, pool)
	for i, on := range p.Cells {
		if on {
			g.cells[i] = 1
		}
	}
	return g, nil
}

func newGrid(cfg Config, topo *topology.Table, tbl *rules.Table, pool *engine.Pool) *Grid {
	n := cfg.Width * cfg.Height
	src := rand.NewPCG(cfg.Seed, streamRuntime)
	return &Grid{
		cfg:         cfg,
		w:           cfg.Width,
		h:           cfg.Height,
		cells:       make([]uint8, n),
		next:        make([]uint8, n),
		recency:     make([]uint8, n),
		nextRecency: make([]uint8, n),
		topo:        topo,
		rules:       tbl,
		window:      uint8(cfg.Window),
		src:         src,
		rng:         rand.New(src),
		pool:        pool,
	}
}

func newRNG(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// Step advances the grid by one generation. If a worker fails the grid is
// left exactly as it was.
func (g *Grid) Step() error {
	err := engine.Step(g.pool, engine.Frame{
		Cur:         g.cells,
		Next:        g.next,
		Recency:     g.recency,
		NextRecency: g.nextRecency,
		Sources:     g.topo.Flat(),
		Arity:       g.topo.Arity(),
		Rules:       g.rules.Entries(),
		Window:      g.window,
	})
	if err != nil {
		return fmt.Errorf("step generation %d: %w", g.generation+1, err)
	}
	g.cells, g.next = g.next, g.cells
	g.recency, g.nextRecency = g.nextRecency, g.recency
	g.generation++
	return nil
}

// Toggle flips the cell at (x, y).
func (g *Grid) Toggle(x, y int) error {
	i, err := g.index(x, y)
	if err != nil {
		return err
	}
	g.cells[i] ^= 1
	return nil
}

// RandomizeCells re-rolls every cell using the configured init mode.
// Recency counters are kept so the re-roll shows up as a burst of activity.
func (g *Grid) RandomizeCells() {
	g.fillCells(g.rng)
}

// RandomizeTable replaces the rule table with a fresh roll of the same arity.
func (g *Grid) RandomizeTable() {
	g.rules = g.rules.Randomize(g.rng)
}

func (g *Grid) fillCells(rng *rand.Rand) {
	switch g.cfg.Init {
	case Noise:
		noise := opensimplex.NewNormalized(rng.Int64())
		scale := g.cfg.NoiseScale
		for y := 0; y < g.h; y++ {
			for x := 0; x < g.w; x++ {
				var v uint8
				if noise.Eval2(float64(x)*scale, float64(y)*scale) < g.cfg.Density {
					v = 1
				}
				g.cells[x+y*g.w] = v
			}
		}
	default:
		for i := range g.cells {
			var v uint8
			if rng.Float64() < g.cfg.Density {
				v = 1
			}
			g.cells[i] = v
		}
	}
}

// Fork returns an independent copy: cells, recency and RNG state are
// duplicated, while the immutable topology and rule table are shared.
func (g *Grid) Fork() *Grid {
	src := *g.src
	f := &Grid{
		cfg:         g.cfg,
		w:           g.w,
		h:           g.h,
		cells:       append([]uint8(nil), g.cells...),
		next:        make([]uint8, len(g.next)),
		recency:     append([]uint8(nil), g.recency...),
		nextRecency: make([]uint8, len(g.nextRecency)),
		topo:        g.topo,
		rules:       g.rules,
		window:      g.window,
		src:         &src,
		pool:        g.pool,
		generation:  g.generation,
	}
	f.rng = rand.New(f.src)
	return f
}

func (g *Grid) index(x, y int) (int, error) {
	if x < 0 || x >= g.w || y < 0 || y >= g.h {
		return 0, fmt.Errorf("%w: (%d,%d) not in %dx%d", ErrOutOfRange, x, y, g.w, g.h)
	}
	return x + y*g.w, nil
}

// Cell reports whether the cell at (x, y) is on.
func (g *Grid) Cell(x, y int) (bool, error) {
	i, err := g.index(x, y)
	if err != nil {
		return false, err
	}
	return g.cells[i] != 0, nil
}

// RecencyAt returns the recency counter at (x, y).
func (g *Grid) RecencyAt(x, y int) (int, error) {
	i, err := g.index(x, y)
	if err != nil {
		return 0, err
	}
	return int(g.recency[i]), nil
}

// DiffersAt reports whether (x, y) holds different states in g and other.
func (g *Grid) DiffersAt(other *Grid, x, y int) (bool, error) {
	if err := g.sameShape(other); err != nil {
		return false, err
	}
	i, err := g.index(x, y)
	if err != nil {
		return false, err
	}
	return g.cells[i] != other.cells[i], nil
}

// CountDiff returns the number of cells whose state differs between g and
// other.
func (g *Grid) CountDiff(other *Grid) (int, error) {
	if err := g.sameShape(other); err != nil {
		return 0, err
	}
	n := 0
	for i, v := range g.cells {
		if v != other.cells[i] {
			n++
		}
	}
	return n, nil
}

func (g *Grid) sameShape(other *Grid) error {
	if other == nil || other.w != g.w || other.h != g.h {
		return fmt.Errorf("%w: grids differ in shape", ErrOutOfRange)
	}
	return nil
}

// Live counts cells that are on.
func (g *Grid) Live() int {
	n := 0
	for _, v := range g.cells {
		n += int(v)
	}
	return n
}

// Active counts cells with a non-zero recency counter.
func (g *Grid) Active() int {
	n := 0
	for _, r := range g.recency {
		if r > 0 {
			n++
		}
	}
	return n
}

// Cells exposes the current cell buffer (0/1 per cell). It is replaced on
// every Step; callers must not hold it across steps or modify it.
func (g *Grid) Cells() []uint8 { return g.cells }

// Recency exposes the current recency counters, under the same rules as Cells.
func (g *Grid) Recency() []uint8 { return g.recency }

// Width returns W.
func (g *Grid) Width() int { return g.w }

// Height returns H.
func (g *Grid) Height() int { return g.h }

// Len returns W*H.
func (g *Grid) Len() int { return len(g.cells) }

// Window returns the recency cap L.
func (g *Grid) Window() int { return int(g.window) }

// Generation returns how many steps the grid has taken.
func (g *Grid) Generation() uint64 { return g.generation }

// Rules returns the current rule table.
func (g *Grid) Rules() *rules.Table { return g.rules }

// Topology returns the connection table.
func (g *Grid) Topology() *topology.Table { return g.topo }

// Config returns the configuration the grid was built from.
func (g *Grid) Config() Config { return g.cfg }

// State is the mutable part of a grid. Together with the Config it was built
// from, it is enough to rebuild the grid exactly.
type State struct {
	Generation uint64  `json:"generation"`
	Rules      []bool  `json:"rules"`
	Cells      []uint8 `json:"cells"`
	Recency    []uint8 `json:"recency"`
}

// State copies out the grid's mutable state.
func (g *Grid) State() State {
	entries := g.rules.Entries()
	tbl := make([]bool, len(entries))
	for i, e := range entries {
		tbl[i] = e != 0
	}
	return State{
		Generation: g.generation,
		Rules:      tbl,
		Cells:      append([]uint8(nil), g.cells...),
		Recency:    append([]uint8(nil), g.recency...),
	}
}

// Restore overwrites the grid's mutable state. The topology is kept, so s
// must come from a grid built with the same Config.
func (g *Grid) Restore(s State) error {
	if len(s.Cells) != len(g.cells) || len(s.Recency) != len(g.recency) {
		return fmt.Errorf("%w: state holds %d cells, grid has %d", ErrInvalidConfig, len(s.Cells), len(g.cells))
	}
	tbl, err := rules.FromEntries(s.Rules)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if tbl, err = tbl.WithOnProbability(g.cfg.OnProbability); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if tbl.Arity() != g.topo.Arity() {
		return fmt.Errorf("%w: rule arity %d, topology arity %d", ErrInvalidConfig, tbl.Arity(), g.topo.Arity())
	}
	for i, v := range s.Cells {
		if v > 1 {
			return fmt.Errorf("%w: cell %d holds %d", ErrInvalidConfig, i, v)
		}
	}
	for i, r := range s.Recency {
		if r > g.window {
			return fmt.Errorf("%w: recency %d at cell %d exceeds window %d", ErrInvalidConfig, r, i, g.window)
		}
	}
	copy(g.cells, s.Cells)
	copy(g.recency, s.Recency)
	g.rules = tbl
	g.generation = s.Generation
	return nil
}
