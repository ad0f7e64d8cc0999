// Package async provides bounded worker pool utilities.
package async

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/coachpo/traderdesk/errs"
	"github.com/coachpo/traderdesk/internal/observability"
)

const resource = "lib/async"

// Task represents a unit of work executed by the pool workers.
type Task func(context.Context) error

// Pool is a bounded worker pool that refuses work instead of blocking when
// its queue is full.
type Pool struct {
	logger observability.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan job

	pending sync.WaitGroup
	workers conc.WaitGroup
}

type job struct {
	ctx context.Context
	fn  Task
}

// NewPool creates a worker pool with the given concurrency and queue depth.
func NewPool(workers, queue int, logger observability.Logger) (*Pool, error) {
	if workers <= 0 {
		return nil, errs.New(resource, errs.CodeInvalid, errs.WithMessage("workers must be >0"))
	}
	if queue < 0 {
		queue = 0
	}
	p := &Pool{
		logger: observability.OrDefault(logger),
		jobs:   make(chan job, queue),
	}
	for i := 0; i < workers; i++ {
		p.workers.Go(p.worker)
	}
	return p, nil
}

// Submit schedules the task. It fails fast when the pool is closed or full.
func (p *Pool) Submit(ctx context.Context, fn Task) error {
	if fn == nil {
		return errs.New(resource, errs.CodeInvalid, errs.WithMessage("task must not be nil"))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errs.New(resource, errs.CodeUnavailable, errs.WithMessage("pool closed"))
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("submit context: %w", err)
	}
	p.pending.Add(1)
	select {
	case p.jobs <- job{ctx: ctx, fn: fn}:
		return nil
	default:
		p.pending.Done()
		return errs.New(resource, errs.CodeUnavailable, errs.WithMessage("pool at capacity"))
	}
}

// Close stops accepting new tasks. Queued tasks still run.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
}

// Shutdown closes the pool and waits for queued and in-flight tasks to
// complete or until the context expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.Close()
	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		p.workers.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("shutdown context: %w", ctx.Err())
	case <-done:
		return nil
	}
}

func (p *Pool) worker() {
	for j := range p.jobs {
		p.run(j)
	}
}

func (p *Pool) run(j job) {
	defer p.pending.Done()
	var err error
	var catcher panics.Catcher
	catcher.Try(func() { err = j.fn(j.ctx) })
	if recovered := catcher.Recovered(); recovered != nil {
		p.logger.Error("async task panicked", observability.Err(recovered.AsError()))
		return
	}
	if err != nil {
		p.logger.Debug("async task failed", observability.Err(err))
	}
}
