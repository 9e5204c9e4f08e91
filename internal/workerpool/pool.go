package workerpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signstream/vision-pipeline/internal/logger"
)

// Submission errors. Saturation and draining are expected backpressure
// conditions, not failures.
var (
	ErrSaturated = errors.New("worker pool saturated")
	ErrDraining  = errors.New("worker pool draining")
)

// Task is a unit of work executed by a pool worker
type Task func()

// Pool is a bounded worker pool. Submissions are non-blocking: when
// every worker is busy and the queue is full the submit is rejected,
// mirroring the pipeline's drop-rather-than-queue policy.
type Pool struct {
	mu       sync.RWMutex
	tasks    chan Task
	wg       sync.WaitGroup
	size     int
	draining bool
}

// New constructs a pool with the given worker count. A non-positive
// count is a construction error; callers treat it as fatal.
func New(size int) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("invalid worker count %d", size)
	}

	p := &Pool{
		tasks: make(chan Task, size*2),
		size:  size,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	logger.Debug("Pool", "started %d workers", size)
	return p, nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit queues a task without blocking. Returns ErrDraining once the
// pool is shutting down and ErrSaturated when the queue is full.
func (p *Pool) Submit(task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.draining {
		return ErrDraining
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrSaturated
	}
}

// Do runs a task through the pool and waits for it to finish, bounding
// concurrency without unbounded queueing.
func (p *Pool) Do(task Task) error {
	done := make(chan struct{})
	if err := p.Submit(func() {
		defer close(done)
		task()
	}); err != nil {
		return err
	}
	<-done
	return nil
}

// Drain stops intake and lets queued and in-flight work finish.
// Non-blocking; use Wait to observe completion. Idempotent.
func (p *Pool) Drain() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.draining {
		return
	}
	p.draining = true
	close(p.tasks)
}

// Wait blocks until every worker has exited. Call Drain first.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Size returns the worker count the pool was built with
func (p *Pool) Size() int {
	return p.size
}

// QueueDepth returns the number of queued tasks
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}
