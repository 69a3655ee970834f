package engine

import (
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
)

// randomFrame builds an n-cell frame with arbitrary sources and a stable
// rule table.
func randomFrame(seed uint64, n, arity int, window uint8) Frame {
	rng := rand.New(rand.NewPCG(seed, 1))
	f := Frame{
		Cur:         make([]uint8, n),
		Next:        make([]uint8, n),
		Recency:     make([]uint8, n),
		NextRecency: make([]uint8, n),
		Sources:     make([]int32, n*arity),
		Arity:       arity,
		Rules:       make([]uint8, 1<<arity),
		Window:      window,
	}
	for i := range f.Cur {
		f.Cur[i] = uint8(rng.IntN(2))
		f.Recency[i] = uint8(rng.IntN(int(window) + 1))
	}
	for i := range f.Sources {
		f.Sources[i] = int32(rng.IntN(n))
	}
	for i := range f.Rules {
		f.Rules[i] = uint8(rng.IntN(2))
	}
	f.Rules[0] = 0
	f.Rules[len(f.Rules)-1] = 1
	return f
}

func cloneFrame(f Frame) Frame {
	c := f
	c.Cur = append([]uint8(nil), f.Cur...)
	c.Next = make([]uint8, len(f.Next))
	c.Recency = append([]uint8(nil), f.Recency...)
	c.NextRecency = make([]uint8, len(f.NextRecency))
	return c
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, workers int
		want       []Range
	}{
		{10, 3, []Range{{0, 4}, {4, 8}, {8, 10}}},
		{9, 3, []Range{{0, 3}, {3, 6}, {6, 9}}},
		{2, 4, []Range{{0, 1}, {1, 2}}},
		{5, 1, []Range{{0, 5}}},
		{5, 0, []Range{{0, 5}}},
		{0, 4, nil},
	}
	for _, tt := range tests {
		got := Partition(tt.n, tt.workers)
		if len(got) != len(tt.want) {
			t.Fatalf("Partition(%d,%d) = %v, want %v", tt.n, tt.workers, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("Partition(%d,%d) = %v, want %v", tt.n, tt.workers, got, tt.want)
			}
		}
	}
}

func TestPartitionCoversExactlyOnce(t *testing.T) {
	for n := 1; n < 200; n += 7 {
		for w := 1; w <= 9; w++ {
			seen := make([]int, n)
			for _, r := range Partition(n, w) {
				for i := r.Lo; i < r.Hi; i++ {
					seen[i]++
				}
			}
			for i, c := range seen {
				if c != 1 {
					t.Fatalf("n=%d w=%d: index %d covered %d times", n, w, i, c)
				}
			}
		}
	}
}

func TestStepMatchesSequentialForAnyWorkerCount(t *testing.T) {
	const n = 128 * 128
	base := randomFrame(11, n, 3, 20)

	want := cloneFrame(base)
	stepRange(&want, 0, n)

	for workers := 1; workers <= 8; workers++ {
		pool := NewPool(Options{Workers: workers})
		got := cloneFrame(base)
		if err := Step(pool, got); err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		pool.Close()
		for i := range want.Next {
			if got.Next[i] != want.Next[i] {
				t.Fatalf("workers=%d: cell %d = %d, want %d", workers, i, got.Next[i], want.Next[i])
			}
			if got.NextRecency[i] != want.NextRecency[i] {
				t.Fatalf("workers=%d: recency %d = %d, want %d", workers, i, got.NextRecency[i], want.NextRecency[i])
			}
		}
	}
}

func TestStepDoesNotWriteInputs(t *testing.T) {
	f := randomFrame(3, 5000, 4, 10)
	cur := append([]uint8(nil), f.Cur...)
	rec := append([]uint8(nil), f.Recency...)
	pool := NewPool(Options{Workers: 4})
	defer pool.Close()
	if err := Step(pool, f); err != nil {
		t.Fatal(err)
	}
	for i := range cur {
		if f.Cur[i] != cur[i] || f.Recency[i] != rec[i] {
			t.Fatalf("input buffers modified at %d", i)
		}
	}
}

func TestRecencyUpdate(t *testing.T) {
	const window = 5
	for seed := uint64(0); seed < 5; seed++ {
		f := randomFrame(seed, 3000, 2, window)
		if err := Step(nil, f); err != nil {
			t.Fatal(err)
		}
		for i := range f.Next {
			prior := int(f.Recency[i])
			got := int(f.NextRecency[i])
			want := max(prior-1, 0)
			if f.Next[i] != f.Cur[i] {
				want = min(prior+1, window)
			}
			if got != want {
				t.Fatalf("cell %d: recency %d -> %d, want %d (changed=%v)",
					i, prior, got, want, f.Next[i] != f.Cur[i])
			}
			if got > window {
				t.Fatalf("cell %d: recency %d exceeds window", i, got)
			}
		}
	}
}

func TestStepIdentityRule(t *testing.T) {
	// 2x2 grid, each cell reads itself through the identity rule.
	f := Frame{
		Cur:         []uint8{1, 0, 0, 1},
		Next:        make([]uint8, 4),
		Recency:     []uint8{3, 0, 1, 20},
		NextRecency: make([]uint8, 4),
		Sources:     []int32{0, 1, 2, 3},
		Arity:       1,
		Rules:       []uint8{0, 1},
		Window:      20,
	}
	if err := Step(nil, f); err != nil {
		t.Fatal(err)
	}
	wantCells := []uint8{1, 0, 0, 1}
	wantRec := []uint8{2, 0, 0, 19}
	for i := range wantCells {
		if f.Next[i] != wantCells[i] {
			t.Errorf("cell %d = %d, want %d", i, f.Next[i], wantCells[i])
		}
		if f.NextRecency[i] != wantRec[i] {
			t.Errorf("recency %d = %d, want %d", i, f.NextRecency[i], wantRec[i])
		}
	}
}

func TestStepSourceOrderIsMSBFirst(t *testing.T) {
	// One cell reading cells 1 and 2; only address 0b10 maps on.
	f := Frame{
		Cur:         []uint8{0, 1, 0},
		Next:        make([]uint8, 3),
		Recency:     make([]uint8, 3),
		NextRecency: make([]uint8, 3),
		Sources:     []int32{1, 2, 1, 2, 1, 2},
		Arity:       2,
		Rules:       []uint8{0, 0, 1, 1},
		Window:      4,
	}
	if err := Step(nil, f); err != nil {
		t.Fatal(err)
	}
	if f.Next[0] != 1 {
		t.Fatalf("first source must be the most significant bit")
	}
}

func TestStepRejectsInconsistentFrame(t *testing.T) {
	good := randomFrame(1, 16, 2, 4)
	tests := map[string]func(f *Frame){
		"short next":    func(f *Frame) { f.Next = f.Next[:3] },
		"short recency": func(f *Frame) { f.NextRecency = nil },
		"sources":       func(f *Frame) { f.Sources = f.Sources[:5] },
		"rules":         func(f *Frame) { f.Rules = f.Rules[:3] },
		"arity":         func(f *Frame) { f.Arity = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			f := cloneFrame(good)
			mutate(&f)
			if err := Step(nil, f); !errors.Is(err, ErrInvalidFrame) {
				t.Fatalf("err = %v, want ErrInvalidFrame", err)
			}
		})
	}
}

func TestRunPropagatesPanic(t *testing.T) {
	for _, workers := range []int{1, 4} {
		pool := NewPool(Options{Workers: workers})
		err := pool.Run(parallelThreshold*2, func(lo, hi int) {
			if lo == 0 {
				panic("boom")
			}
		})
		if !errors.Is(err, ErrWorkerPanic) {
			t.Fatalf("workers=%d: err = %v, want ErrWorkerPanic", workers, err)
		}
		// The pool survives a panicking chunk.
		if err := pool.Run(parallelThreshold*2, func(lo, hi int) {}); err != nil {
			t.Fatalf("workers=%d: pool unusable after panic: %v", workers, err)
		}
		pool.Close()
	}
}

func TestRunConcurrentCallers(t *testing.T) {
	pool := NewPool(Options{Workers: 3})
	defer pool.Close()

	const n = parallelThreshold * 3
	var wg sync.WaitGroup
	results := make([][]int, 4)
	for c := range results {
		results[c] = make([]int, n)
		wg.Add(1)
		go func(out []int) {
			defer wg.Done()
			if err := pool.Run(n, func(lo, hi int) {
				for i := lo; i < hi; i++ {
					out[i]++
				}
			}); err != nil {
				t.Error(err)
			}
		}(results[c])
	}
	wg.Wait()
	for c, out := range results {
		for i, v := range out {
			if v != 1 {
				t.Fatalf("caller %d index %d visited %d times", c, i, v)
			}
		}
	}
}

func TestPoolRestartsAfterClose(t *testing.T) {
	pool := NewPool(Options{Workers: 2, PinCores: true})
	for round := 0; round < 3; round++ {
		var mu sync.Mutex
		total := 0
		if err := pool.Run(parallelThreshold*2, func(lo, hi int) {
			mu.Lock()
			total += hi - lo
			mu.Unlock()
		}); err != nil {
			t.Fatal(err)
		}
		if total != parallelThreshold*2 {
			t.Fatalf("round %d covered %d cells", round, total)
		}
		pool.Close()
	}
}

func TestNewPoolWorkerCount(t *testing.T) {
	if got := NewPool(Options{Workers: 6}).Workers(); got != 6 {
		t.Fatalf("forced workers = %d, want 6", got)
	}
	if got := NewPool(Options{MaxWorkers: 1}).Workers(); got != 1 {
		t.Fatalf("capped workers = %d, want 1", got)
	}
	var nilPool *Pool
	if nilPool.Workers() != 1 {
		t.Fatal("nil pool must report one worker")
	}
}

func BenchmarkStep(b *testing.B) {
	const n = 512 * 512
	f := randomFrame(1, n, 3, 20)
	pool := NewPool(Options{MaxWorkers: 4, PinCores: true})
	defer pool.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Step(pool, f); err != nil {
			b.Fatal(err)
		}
		f.Cur, f.Next = f.Next, f.Cur
		f.Recency, f.NextRecency = f.NextRecency, f.Recency
	}
}
