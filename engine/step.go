package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidFrame is returned when a Frame's buffers disagree in size.
var ErrInvalidFrame = errors.New("engine: inconsistent frame")

// Frame bundles what one generation reads and writes. Cur and Recency hold
// the previous generation and are never written during the step; Next and
// NextRecency receive the new generation.
type Frame struct {
	Cur         []uint8
	Next        []uint8
	Recency     []uint8
	NextRecency []uint8

	// Sources holds Arity source indices per cell, in cell order.
	Sources []int32
	Arity   int
	// Rules holds 2^Arity next-state entries (0/1).
	Rules []uint8
	// Window caps the recency counters.
	Window uint8
}

func (f *Frame) validate() error {
	n := len(f.Cur)
	switch {
	case f.Arity < 1:
		return fmt.Errorf("%w: arity %d", ErrInvalidFrame, f.Arity)
	case len(f.Next) != n, len(f.Recency) != n, len(f.NextRecency) != n:
		return fmt.Errorf("%w: buffer lengths %d/%d/%d/%d", ErrInvalidFrame,
			n, len(f.Next), len(f.Recency), len(f.NextRecency))
	case len(f.Sources) != n*f.Arity:
		return fmt.Errorf("%w: %d sources for %d cells of arity %d", ErrInvalidFrame, len(f.Sources), n, f.Arity)
	case len(f.Rules) != 1<<f.Arity:
		return fmt.Errorf("%w: %d rule entries for arity %d", ErrInvalidFrame, len(f.Rules), f.Arity)
	}
	return nil
}

// Step computes one synchronous generation. On error the Next buffers are
// partially written and must be discarded.
func Step(p *Pool, f Frame) error {
	if err := f.validate(); err != nil {
		return err
	}
	return p.Run(len(f.Cur), func(lo, hi int) {
		stepRange(&f, lo, hi)
	})
}

// stepRange advances cells [lo, hi). It only writes the [lo, hi) slices of
// the next buffers.
func stepRange(f *Frame, lo, hi int) {
	k := f.Arity
	cur := f.Cur
	rules := f.Rules
	window := int(f.Window)

	src := f.Sources[lo*k : hi*k]
	prev := cur[lo:hi]
	next := f.Next[lo:hi]
	rec := f.Recency[lo:hi]
	nrec := f.NextRecency[lo:hi]

	for j := range next {
		addr := 0
		for _, s := range src[j*k : (j+1)*k] {
			addr = addr<<1 | int(cur[s])
		}
		v := rules[addr]

		// A flip adds two before the unconditional decay of one. The cap
		// sits at window+1 so a flipping cell can actually reach window.
		r := int(rec[j])
		if v != prev[j] {
			r = min(r+2, window+1)
		}
		if r > 0 {
			r--
		}

		next[j] = v
		nrec[j] = uint8(r)
	}
}
