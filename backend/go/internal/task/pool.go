package task

import (
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/pkg/logger"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull  = errors.New("processing queue is full")
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// Job is a unit of background work. The context lives until the pool shuts down.
type Job func(ctx context.Context)

// Pool runs jobs on a fixed number of workers fed by a bounded queue.
type Pool struct {
	workers int
	queue   chan Job
	log     *logger.Logger

	mu      sync.RWMutex
	closed  bool
	started bool

	eg     *errgroup.Group
	cancel context.CancelFunc
}

// NewPool creates a pool. Non-positive sizes fall back to one worker and an unbuffered queue.
func NewPool(workers, queueSize int, log *logger.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Pool{
		workers: workers,
		queue:   make(chan Job, queueSize),
		log:     log,
	}
}

// Start launches the workers. Calling it twice has no effect.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	// Jobs are not cancelled when the parent context ends; only Shutdown stops the pool.
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.eg = &errgroup.Group{}
	for i := 0; i < p.workers; i++ {
		worker := i
		p.eg.Go(func() error {
			for job := range p.queue {
				p.run(jobCtx, worker, job)
			}
			return nil
		})
	}
	p.log.Info(fmt.Sprintf("Worker pool started with %d workers, queue size %d", p.workers, cap(p.queue)))
}

func (p *Pool) run(ctx context.Context, worker int, job Job) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.WithError(models.ErrorInfo{
				Message: fmt.Sprintf("%v", rec),
				Stack:   string(debug.Stack()),
				Type:    "panic",
			}).Error(fmt.Sprintf("worker %d recovered from panic", worker))
		}
	}()
	job(ctx)
}

// Submit enqueues job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued jobs not yet picked up by a worker.
func (p *Pool) Pending() int {
	return len(p.queue)
}

// Shutdown stops accepting jobs, lets queued jobs drain and waits for the workers.
// If ctx ends first, running jobs see their context cancelled and ctx.Err() is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		_ = p.eg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}
