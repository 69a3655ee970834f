package rules

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func TestGenerateBoundaryEntries(t *testing.T) {
	for k := 1; k <= 10; k++ {
		for seed := uint64(0); seed < 20; seed++ {
			tbl, err := Generate(k, 0.5, newRNG(seed))
			if err != nil {
				t.Fatalf("Generate(%d): %v", k, err)
			}
			if tbl.Len() != 1<<k {
				t.Fatalf("len = %d, want %d", tbl.Len(), 1<<k)
			}
			if tbl.Lookup(0) {
				t.Fatalf("k=%d seed=%d: entry 0 is on", k, seed)
			}
			if !tbl.Lookup(tbl.Len() - 1) {
				t.Fatalf("k=%d seed=%d: last entry is off", k, seed)
			}
		}
	}
}

func TestGenerateExtremeProbabilityStillStable(t *testing.T) {
	// Near 0 and near 1 the boundary entries need many re-rolls.
	for _, p := range []float64{0.001, 0.999} {
		tbl, err := Generate(3, p, newRNG(7))
		if err != nil {
			t.Fatal(err)
		}
		if err := tbl.Validate(); err != nil {
			t.Fatalf("p=%v: %v", p, err)
		}
	}
}

func TestRandomizeKeepsInvariant(t *testing.T) {
	rng := newRNG(1)
	tbl, err := Generate(4, 0.5, rng)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 500; i++ {
		next := tbl.Randomize(rng)
		if err := next.Validate(); err != nil {
			t.Fatalf("randomize #%d: %v", i, err)
		}
		if next.Arity() != tbl.Arity() {
			t.Fatalf("arity changed: %d -> %d", tbl.Arity(), next.Arity())
		}
		tbl = next
	}
}

func TestRandomizeLeavesReceiverUntouched(t *testing.T) {
	rng := newRNG(3)
	tbl, _ := Generate(5, 0.5, rng)
	before := append([]uint8(nil), tbl.Entries()...)
	_ = tbl.Randomize(rng)
	for i, v := range tbl.Entries() {
		if v != before[i] {
			t.Fatalf("entry %d changed after Randomize", i)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a, _ := Generate(6, 0.5, newRNG(42))
	b, _ := Generate(6, 0.5, newRNG(42))
	if !a.Equal(b) {
		t.Fatal("same seed produced different tables")
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name  string
		arity int
		prob  float64
		want  error
	}{
		{"zero arity", 0, 0.5, ErrInvalidArity},
		{"negative arity", -2, 0.5, ErrInvalidArity},
		{"arity too large", MaxArity + 1, 0.5, ErrInvalidArity},
		{"probability zero", 3, 0, ErrInvalidProbability},
		{"probability one", 3, 1, ErrInvalidProbability},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.arity, tt.prob, newRNG(0))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFromEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []bool
		want    error
	}{
		{"identity", []bool{false, true}, nil},
		{"all-ones maps off", []bool{false, false}, ErrUnstableTable},
		{"zero maps on", []bool{true, true}, ErrUnstableTable},
		{"not power of two", []bool{false, true, true}, ErrInvalidArity},
		{"empty", nil, ErrInvalidArity},
		{"arity two", []bool{false, true, false, true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := FromEntries(tt.entries)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				for i, on := range tt.entries {
					if tbl.Lookup(i) != on {
						t.Fatalf("entry %d = %v, want %v", i, tbl.Lookup(i), on)
					}
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPackMostSignificantFirst(t *testing.T) {
	tests := []struct {
		bits []uint8
		want int
	}{
		{[]uint8{1}, 1},
		{[]uint8{1, 0, 0}, 4},
		{[]uint8{0, 0, 1}, 1},
		{[]uint8{1, 1, 0}, 6},
		{[]uint8{1, 1, 1, 1}, 15},
	}
	for _, tt := range tests {
		if got := Pack(tt.bits); got != tt.want {
			t.Errorf("Pack(%v) = %d, want %d", tt.bits, got, tt.want)
		}
	}
}

func TestWithOnProbability(t *testing.T) {
	tbl, err := FromEntries([]bool{false, true, true, true})
	if err != nil {
		t.Fatal(err)
	}
	c, err := tbl.WithOnProbability(0.9)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Equal(tbl) || c.OnProbability() != 0.9 {
		t.Fatalf("copy = %v p=%v", c.Entries(), c.OnProbability())
	}
	if _, err := tbl.WithOnProbability(1); !errors.Is(err, ErrInvalidProbability) {
		t.Fatalf("err = %v, want ErrInvalidProbability", err)
	}
}
