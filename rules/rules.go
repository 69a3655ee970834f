// Package rules builds the lookup table that maps a cell's packed source bits
// to its next state.
//
// A table of arity K has 2^K entries. Entry 0 (every source off) always maps
// to off and entry 2^K-1 (every source on) always maps to on; without these two
// fixed points a quiet or saturated neighbourhood would flip on every
// generation and the grid strobes.
package rules

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// MaxArity bounds K so that the table (2^K entries) stays small enough to live
// in cache next to the cell buffers.
const MaxArity = 16

var (
	// ErrInvalidArity is returned when K is outside [1, MaxArity].
	ErrInvalidArity = errors.New("rules: invalid arity")
	// ErrInvalidProbability is returned when the on-probability is not in (0, 1).
	ErrInvalidProbability = errors.New("rules: on-probability must be in (0, 1)")
	// ErrUnstableTable is returned for a table whose boundary entries are wrong.
	ErrUnstableTable = errors.New("rules: boundary entries violated")
)

// Table is an immutable next-state lookup table. Randomize returns a new
// table, so a Table may be shared between grids.
type Table struct {
	arity   int
	onProb  float64
	entries []uint8
}

// ValidateArity reports whether k is a usable arity.
func ValidateArity(k int) error {
	if k < 1 || k > MaxArity {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidArity, k, MaxArity)
	}
	return nil
}

// Generate rolls a fresh table of the given arity. Every entry other than the
// two boundary entries is on with probability onProb.
func Generate(arity int, onProb float64, rng *rand.Rand) (*Table, error) {
	if err := ValidateArity(arity); err != nil {
		return nil, err
	}
	if !(onProb > 0 && onProb < 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProbability, onProb)
	}
	t := &Table{
		arity:   arity,
		onProb:  onProb,
		entries: make([]uint8, 1<<arity),
	}
	t.fill(rng)
	return t, nil
}

// FromEntries builds a table from explicit entries. len(entries) must be a
// power of two 2^K with K in [1, MaxArity], and the boundary entries must hold.
func FromEntries(entries []bool) (*Table, error) {
	n := len(entries)
	arity := 0
	for 1<<arity < n {
		arity++
	}
	if n == 0 || 1<<arity != n {
		return nil, fmt.Errorf("%w: %d entries is not a power of two", ErrInvalidArity, n)
	}
	if err := ValidateArity(arity); err != nil {
		return nil, err
	}
	t := &Table{arity: arity, onProb: 0.5, entries: make([]uint8, n)}
	for i, on := range entries {
		if on {
			t.entries[i] = 1
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// WithOnProbability returns a copy of t whose later randomizations roll free
// entries on with probability p.
func (t *Table) WithOnProbability(p float64) (*Table, error) {
	if !(p > 0 && p < 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProbability, p)
	}
	return &Table{arity: t.arity, onProb: p, entries: append([]uint8(nil), t.entries...)}, nil
}

// Randomize returns a new table of the same arity and on-probability with
// every entry re-rolled. The receiver is left untouched.
func (t *Table) Randomize(rng *rand.Rand) *Table {
	n := &Table{
		arity:   t.arity,
		onProb:  t.onProb,
		entries: make([]uint8, len(t.entries)),
	}
	n.fill(rng)
	return n
}

// fill rolls each entry, re-rolling the boundary entries until they hold.
func (t *Table) fill(rng *rand.Rand) {
	last := len(t.entries) - 1
	for addr := range t.entries {
		for {
			on := rng.Float64() < t.onProb
			if addr == 0 && on {
				continue
			}
			if addr == last && !on {
				continue
			}
			if on {
				t.entries[addr] = 1
			} else {
				t.entries[addr] = 0
			}
			break
		}
	}
}

// Validate checks the boundary invariant.
func (t *Table) Validate() error {
	last := len(t.entries) - 1
	if t.entries[0] != 0 {
		return fmt.Errorf("%w: entry 0 must be off", ErrUnstableTable)
	}
	if t.entries[last] != 1 {
		return fmt.Errorf("%w: entry %d must be on", ErrUnstableTable, last)
	}
	return nil
}

// Arity returns K.
func (t *Table) Arity() int { return t.arity }

// Len returns 2^K.
func (t *Table) Len() int { return len(t.entries) }

// OnProbability returns the probability used for non-boundary entries.
func (t *Table) OnProbability() float64 { return t.onProb }

// Lookup returns the next state for a packed address.
func (t *Table) Lookup(addr int) bool { return t.entries[addr] != 0 }

// Entries exposes the backing entries (0/1). Callers must not modify them.
func (t *Table) Entries() []uint8 { return t.entries }

// Equal reports whether two tables map every address identically.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.arity != o.arity {
		return false
	}
	for i := range t.entries {
		if t.entries[i] != o.entries[i] {
			return false
		}
	}
	return true
}

// Pack forms a table address from source bits, most significant bit first.
func Pack(bits []uint8) int {
	addr := 0
	for _, b := range bits {
		addr = addr<<1 | int(b&1)
	}
	return addr
}
