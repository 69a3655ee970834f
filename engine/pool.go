// Package engine advances a Boolean network grid by one synchronous
// generation using a long-lived pool of core-pinned workers.
//
// Every step reads a frozen copy of the previous generation and writes into a
// separate next buffer. The cell range is cut into contiguous, disjoint
// chunks; each worker owns the next-buffer slice of its chunk for the duration
// of the step, so no locking is needed. A step returns only after every chunk
// has finished (a barrier), and a panicking chunk turns the whole step into an
// error.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

// parallelThreshold is the minimum cell count to dispatch to workers.
// Below this, running inline is faster than the channel round trip.
const parallelThreshold = 4096

// ErrWorkerPanic is returned when a worker panics mid-step. The step's
// output buffers are incomplete and must not be used.
var ErrWorkerPanic = errors.New("engine: worker panicked")

// Options configures a Pool.
type Options struct {
	// Workers forces an exact worker count. Zero derives it from the
	// available parallelism capped by MaxWorkers.
	Workers int
	// MaxWorkers caps the derived worker count. Zero means no cap.
	MaxWorkers int
	// PinCores pins each worker to a distinct CPU where the platform allows.
	PinCores bool
	Logger   *slog.Logger
}

// Range is a half-open cell index range [Lo, Hi).
type Range struct {
	Lo, Hi int
}

// Partition splits n cells into contiguous ranges of ceil(n/workers) cells.
// Trailing workers may receive nothing, in which case fewer ranges are
// returned.
func Partition(n, workers int) []Range {
	if n <= 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	size := (n + workers - 1) / workers
	ranges := make([]Range, 0, workers)
	for lo := 0; lo < n; lo += size {
		ranges = append(ranges, Range{Lo: lo, Hi: min(lo+size, n)})
	}
	return ranges
}

// chunk is one range of work plus the barrier it reports to.
type chunk struct {
	lo, hi int
	fn     func(lo, hi int)
	done   chan<- error
}

// Pool is a set of persistent workers. Workers start on first use and live
// until Close. Several Run calls may be in flight at once; each waits only
// for its own chunks.
type Pool struct {
	numWorkers int
	cpus       []int
	pin        bool
	logger     *slog.Logger

	mu      sync.Mutex
	work    chan chunk
	stop    chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewPool sizes a pool. No goroutines are started until the first Run.
func NewPool(opts Options) *Pool {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cpus := availableCPUs()

	n := opts.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
		if len(cpus) > 0 && len(cpus) < n {
			n = len(cpus)
		}
		if opts.MaxWorkers > 0 && opts.MaxWorkers < n {
			n = opts.MaxWorkers
		}
	}
	if n < 1 {
		n = 1
	}
	return &Pool{
		numWorkers: n,
		cpus:       cpus,
		pin:        opts.PinCores,
		logger:     logger,
	}
}

// Workers returns the number of workers a step is split across.
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.numWorkers
}

// Run calls fn over [0, n) split into one contiguous range per worker and
// blocks until every range is done. A nil Pool runs fn inline.
func (p *Pool) Run(n int, fn func(lo, hi int)) error {
	if n <= 0 {
		return nil
	}
	if p == nil || p.numWorkers == 1 || n < parallelThreshold {
		return runChunk(chunk{lo: 0, hi: n, fn: fn})
	}

	work := p.start()
	ranges := Partition(n, p.numWorkers)
	done := make(chan error, len(ranges))
	for _, r := range ranges {
		work <- chunk{lo: r.Lo, hi: r.Hi, fn: fn, done: done}
	}

	var firstErr error
	for range ranges {
		if err := <-done; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// start launches the workers if they are not running and returns the work
// channel.
func (p *Pool) start() chan<- chunk {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return p.work
	}

	p.work = make(chan chunk, p.numWorkers)
	p.stop = make(chan struct{})
	p.running = true

	pinning := p.pin && len(p.cpus) > 0
	if p.pin && !pinning {
		p.logger.Debug("core pinning unavailable, workers run unpinned")
	}
	for i := 0; i < p.numWorkers; i++ {
		cpu := -1
		if pinning {
			cpu = p.cpus[i%len(p.cpus)]
		}
		p.wg.Add(1)
		go p.worker(i, cpu, p.work, p.stop)
	}
	p.logger.Info("engine pool started", "workers", p.numWorkers, "pinned", pinning)
	return p.work
}

// Close stops the workers and waits for them to exit. The pool restarts on
// the next Run.
func (p *Pool) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	close(p.stop)
	p.wg.Wait()
	p.running = false
}

// worker pins itself once, then serves chunks until stopped.
func (p *Pool) worker(id, cpu int, work <-chan chunk, stop <-chan struct{}) {
	defer p.wg.Done()
	if cpu >= 0 {
		if err := pinToCPU(cpu); err != nil {
			p.logger.Debug("worker running unpinned", "worker", id, "cpu", cpu, "error", err)
		}
	}
	for {
		select {
		case <-stop:
			return
		case c := <-work:
			c.done <- runChunk(c)
		}
	}
}

func runChunk(c chunk) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: cells [%d,%d): %v", ErrWorkerPanic, c.lo, c.hi, r)
		}
	}()
	c.fn(c.lo, c.hi)
	return nil
}
