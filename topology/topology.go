// Package topology generates the fixed connection table of a Boolean network
// grid: for every cell, the ordered tuple of K source cells it reads.
//
// Sources are drawn from a candidate offset set (a square neighbourhood of
// some radius, or the four orthogonal neighbours). For each cell the candidate
// list is shuffled and scanned in order; the first K offsets that land inside
// the grid are accepted in that order. Cells near the border may not find K
// in-bounds candidates; what happens then is chosen by the Underfill policy.
package topology

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// Neighborhood selects the candidate offset set.
type Neighborhood string

const (
	// Square offers every (dx, dy) with |dx|, |dy| <= Radius.
	Square Neighborhood = "square"
	// VonNeumann offers the four orthogonal neighbours regardless of Radius.
	VonNeumann Neighborhood = "von_neumann"
)

// ShuffleMode controls how often the candidate list is shuffled.
type ShuffleMode string

const (
	// PerCell reshuffles the candidates for every cell.
	PerCell ShuffleMode = "per_cell"
	// Once shuffles the candidates a single time and reuses that order.
	Once ShuffleMode = "once"
)

// Underfill decides how a cell with fewer than K in-bounds candidates fills
// its remaining slots.
type Underfill string

const (
	// Wrap fills remaining slots from the skipped out-of-bounds candidates,
	// in shuffled order, wrapped toroidally onto the grid.
	Wrap Underfill = "wrap"
	// SelfLoop points remaining slots at the cell itself.
	SelfLoop Underfill = "self"
	// Reject fails generation with ErrUnderfill.
	Reject Underfill = "reject"
)

var (
	// ErrInvalidPolicy is returned for unusable policies or dimensions.
	ErrInvalidPolicy = errors.New("topology: invalid policy")
	// ErrUnderfill is returned under the Reject policy when a cell cannot
	// find K in-bounds sources.
	ErrUnderfill = errors.New("topology: not enough in-bounds candidates")
)

// Offset is a displacement from a cell to one of its candidate sources.
type Offset struct {
	DX, DY int
}

// Policy describes how connection tuples are chosen.
type Policy struct {
	Arity        int
	Neighborhood Neighborhood
	Radius       int
	ExcludeSelf  bool
	Shuffle      ShuffleMode
	Underfill    Underfill
}

// DefaultPolicy mirrors the classic setup: three sources drawn from a radius 6
// square that includes the cell itself.
func DefaultPolicy() Policy {
	return Policy{
		Arity:        3,
		Neighborhood: Square,
		Radius:       6,
		Shuffle:      PerCell,
		Underfill:    Wrap,
	}
}

// Offsets returns the candidate offsets in canonical (unshuffled) order.
func (p Policy) Offsets() []Offset {
	switch p.Neighborhood {
	case VonNeumann:
		return []Offset{{0, -1}, {0, 1}, {1, 0}, {-1, 0}}
	case Square:
		r := p.Radius
		if r < 0 {
			return nil
		}
		side := 2*r + 1
		offs := make([]Offset, 0, side*side)
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				if p.ExcludeSelf && dx == 0 && dy == 0 {
					continue
				}
				offs = append(offs, Offset{dx, dy})
			}
		}
		return offs
	default:
		return nil
	}
}

// Validate reports whether the policy can produce K sources for an interior
// cell.
func (p Policy) Validate() error {
	switch p.Neighborhood {
	case Square:
		if p.Radius < 0 {
			return fmt.Errorf("%w: radius %d is negative", ErrInvalidPolicy, p.Radius)
		}
	case VonNeumann:
	default:
		return fmt.Errorf("%w: unknown neighborhood %q", ErrInvalidPolicy, p.Neighborhood)
	}
	switch p.Shuffle {
	case PerCell, Once:
	default:
		return fmt.Errorf("%w: unknown shuffle mode %q", ErrInvalidPolicy, p.Shuffle)
	}
	switch p.Underfill {
	case Wrap, SelfLoop, Reject:
	default:
		return fmt.Errorf("%w: unknown underfill policy %q", ErrInvalidPolicy, p.Underfill)
	}
	if p.Arity < 1 {
		return fmt.Errorf("%w: arity %d", ErrInvalidPolicy, p.Arity)
	}
	if n := len(p.Offsets()); n < p.Arity {
		return fmt.Errorf("%w: %d candidate offsets cannot supply arity %d", ErrInvalidPolicy, n, p.Arity)
	}
	return nil
}

// Table is the connection table of one grid. It is immutable once generated.
type Table struct {
	w, h    int
	arity   int
	sources []int32
}

// Generate builds a connection table for a w×h grid. Given the same policy
// and an identically seeded rng, the result is identical.
func Generate(w, h int, p Policy, rng *rand.Rand) (*Table, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrInvalidPolicy, w, h)
	}
	if int64(w)*int64(h) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: grid %dx%d exceeds int32 indexing", ErrInvalidPolicy, w, h)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	k := p.Arity
	order := p.Offsets()
	swap := func(i, j int) { order[i], order[j] = order[j], order[i] }
	if p.Shuffle == Once {
		rng.Shuffle(len(order), swap)
	}

	t := &Table{w: w, h: h, arity: k, sources: make([]int32, w*h*k)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if p.Shuffle == PerCell {
				rng.Shuffle(len(order), swap)
			}
			i := x + y*w
			slots := t.sources[i*k : (i+1)*k]

			n := 0
			for _, o := range order {
				if n == k {
					break
				}
				nx, ny := x+o.DX, y+o.DY
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				slots[n] = int32(nx + ny*w)
				n++
			}
			if n == k {
				continue
			}

			switch p.Underfill {
			case Reject:
				return nil, fmt.Errorf("%w: cell (%d,%d) found %d of %d", ErrUnderfill, x, y, n, k)
			case SelfLoop:
				for ; n < k; n++ {
					slots[n] = int32(i)
				}
			case Wrap:
				// Every in-bounds candidate is already taken, and the list holds
				// at least k offsets, so the skipped ones always cover the rest.
				for _, o := range order {
					if n == k {
						break
					}
					nx, ny := x+o.DX, y+o.DY
					if nx >= 0 && nx < w && ny >= 0 && ny < h {
						continue
					}
					nx = (nx%w + w) % w
					ny = (ny%h + h) % h
					slots[n] = int32(nx + ny*w)
					n++
				}
			}
		}
	}
	return t, nil
}

// Width returns the grid width the table was built for.
func (t *Table) Width() int { return t.w }

// Height returns the grid height the table was built for.
func (t *Table) Height() int { return t.h }

// Arity returns K.
func (t *Table) Arity() int { return t.arity }

// Len returns the number of cells.
func (t *Table) Len() int { return t.w * t.h }

// Sources returns the ordered source tuple of cell i. Callers must not modify
// the returned slice.
func (t *Table) Sources(i int) []int32 {
	return t.sources[i*t.arity : (i+1)*t.arity]
}

// Flat exposes the whole table, K entries per cell in cell order.
func (t *Table) Flat() []int32 { return t.sources }

// FromSources builds a table from explicit tuples, one per cell. Every tuple
// must have the same length and reference cells inside the grid.
func FromSources(w, h int, tuples [][]int) (*Table, error) {
	if w <= 0 || h <= 0 || len(tuples) != w*h {
		return nil, fmt.Errorf("%w: %d tuples for grid %dx%d", ErrInvalidPolicy, len(tuples), w, h)
	}
	k := len(tuples[0])
	if k < 1 {
		return nil, fmt.Errorf("%w: empty tuple", ErrInvalidPolicy)
	}
	t := &Table{w: w, h: h, arity: k, sources: make([]int32, 0, w*h*k)}
	for i, tup := range tuples {
		if len(tup) != k {
			return nil, fmt.Errorf("%w: cell %d has %d sources, want %d", ErrInvalidPolicy, i, len(tup), k)
		}
		for _, s := range tup {
			if s < 0 || s >= w*h {
				return nil, fmt.Errorf("%w: cell %d source %d out of range", ErrInvalidPolicy, i, s)
			}
			t.sources = append(t.sources, int32(s))
		}
	}
	return t, nil
}
