// Package parallel runs independent searches on a bounded set of
// goroutines. Each search owns its model and solver, so tasks share
// nothing but what the caller passes them.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool runs submitted tasks on a fixed number of workers.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// NewPool starts a pool of workers goroutines. If workers is 0 or negative,
// it defaults to the number of CPU cores.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{tasks: make(chan func(), workers*2)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit queues task. It blocks while the queue is full and returns the
// context error if ctx ends first.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits until every queued task has run.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// Each runs fn on every job with at most workers running at once and
// returns the errors indexed like jobs.
func Each[T any](ctx context.Context, workers int, jobs []T, fn func(context.Context, T) error) []error {
	errs := make([]error, len(jobs))
	p := NewPool(workers)
	for i, job := range jobs {
		if err := p.Submit(ctx, func() { errs[i] = fn(ctx, job) }); err != nil {
			errs[i] = err
		}
	}
	p.Close()
	return errs
}
