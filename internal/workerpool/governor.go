package workerpool

import (
	"fmt"
	"sync"

	"github.com/signstream/vision-pipeline/internal/logger"
	"github.com/signstream/vision-pipeline/internal/sysmon"
	"github.com/signstream/vision-pipeline/pkg/types"
)

// CPU load bands. Above the high mark the pool shrinks to half the
// physical cores; below the low mark it may grow past them.
const (
	highLoadPercent = 80.0
	lowLoadPercent  = 50.0
)

// Governor sizes the encode pool from CPU headroom: shrink under load,
// grow when idle. Resizing drains the old pool and installs a fresh one;
// it runs on the optimizer loop's cadence, never per frame.
type Governor struct {
	mu sync.Mutex

	sampler  sysmon.Sampler
	pool     *Pool
	min      int
	max      int
	physical int
	logical  int
	resizes  uint64
}

// NewGovernor builds the governor and its initial pool. Pool
// construction failure here or during a resize is fatal to the caller.
func NewGovernor(sampler sysmon.Sampler, cfg types.Config) (*Governor, error) {
	cfg = cfg.Normalize()

	physical, err := sampler.CoreCount(false)
	if err != nil {
		return nil, fmt.Errorf("detect physical cores: %w", err)
	}
	logical, err := sampler.CoreCount(true)
	if err != nil {
		return nil, fmt.Errorf("detect logical cores: %w", err)
	}

	max := cfg.WorkerMax
	if max <= 0 {
		max = logical
	}
	g := &Governor{
		sampler:  sampler,
		min:      cfg.WorkerMin,
		max:      max,
		physical: physical,
		logical:  logical,
	}

	initial := g.clamp(physical + 1)
	pool, err := New(initial)
	if err != nil {
		return nil, fmt.Errorf("construct worker pool: %w", err)
	}
	g.pool = pool

	logger.Info("PoolGovernor", "workers=%d (physical=%d logical=%d bounds=[%d,%d])",
		initial, physical, logical, g.min, g.max)
	return g, nil
}

func (g *Governor) clamp(n int) int {
	if n < g.min {
		n = g.min
	}
	if n > g.max {
		n = g.max
	}
	if n < 1 {
		n = 1
	}
	return n
}

// OptimalWorkerCount maps a CPU load sample to a worker count.
// Monotonically non-increasing as load rises through the bands.
func (g *Governor) OptimalWorkerCount(cpuLoad float64) int {
	var n int
	switch {
	case cpuLoad > highLoadPercent:
		n = g.physical / 2
		if n < 1 {
			n = 1
		}
	case cpuLoad < lowLoadPercent:
		n = g.physical + 2
		if n > g.logical {
			n = g.logical
		}
	default:
		n = g.physical + 1
	}
	return g.clamp(n)
}

// MaybeResize swaps in a pool of the optimal size when it differs from
// the current one. The old pool drains in the background; in-flight
// work finishes. Returns whether a resize happened. A pool construction
// failure propagates: the optimizer cannot run without a pool.
func (g *Governor) MaybeResize(cpuLoad float64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	optimal := g.OptimalWorkerCount(cpuLoad)
	if optimal == g.pool.Size() {
		return false, nil
	}

	replacement, err := New(optimal)
	if err != nil {
		return false, fmt.Errorf("resize worker pool to %d: %w", optimal, err)
	}

	old := g.pool
	g.pool = replacement
	g.resizes++
	old.Drain()

	logger.Info("PoolGovernor", "resized %d -> %d workers (cpu %.1f%%)",
		old.Size(), optimal, cpuLoad)
	return true, nil
}

// Pool returns the current pool
func (g *Governor) Pool() *Pool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pool
}

// WorkerCount returns the current pool size
func (g *Governor) WorkerCount() int {
	return g.Pool().Size()
}

// Resizes returns how many pool swaps have occurred
func (g *Governor) Resizes() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resizes
}

// Shutdown drains the current pool and waits for workers to exit
func (g *Governor) Shutdown() {
	pool := g.Pool()
	pool.Drain()
	pool.Wait()
}
