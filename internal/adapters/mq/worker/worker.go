// Package worker runs background jobs pulled from a queue.
//
// The tracker's network calls are submitted here as jobs; each job resolves a
// future whose continuation posts results back to the session.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/irontrials/internal/adapters/mq/queue"
	"github.com/okian/irontrials/pkg/logger"
	"github.com/okian/irontrials/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 4
	defaultPoolName     = "sync"
	poolShutdownTimeout = 30 * time.Second
)

// Job is a unit of background work.
type Job func(ctx context.Context)

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker runs jobs until its queue closes or it is told to stop.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining its queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker over a job channel.
type InMemoryWorker struct {
	queue Queue
	name  string
	pool  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		name:     "worker",
		pool:     defaultPoolName,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.runJob(ctx, job)
		}
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// runJob executes one job, turning a panic into a logged failure.
func (w *InMemoryWorker) runJob(ctx context.Context, job Job) {
	start := time.Now()
	result := "ok"
	defer func() {
		if r := recover(); r != nil {
			result = "panic"
			w.logger.Error(ctx, "job panicked", logger.Any("panic", r))
		}
		metrics.RecordWorkerJob(w.pool, result, float64(time.Since(start).Milliseconds()))
	}()
	job(ctx)
}

// Pool manages multiple workers sharing one job queue.
type Pool struct {
	name    string
	queue   queue.Queue[Job]
	workers []*InMemoryWorker
	count   int
	started atomic.Bool

	logger logger.Logger
}

// NewPool creates a worker pool reading from q.
func NewPool(q queue.Queue[Job], opts ...PoolOption) *Pool {
	p := &Pool{
		name:  defaultPoolName,
		queue: q,
		count: defaultWorkerCount,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named(p.name + "-pool")
	}

	p.workers = make([]*InMemoryWorker, p.count)
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(
			q,
			WithName(p.name+"-worker-"+strconv.Itoa(i)),
			withPool(p.name),
			WithLogger(p.logger.Named("worker-"+strconv.Itoa(i))),
		)
	}
	return p
}

// Start starts all workers in the pool. Calling it twice has no effect.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(p.name, len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Submit queues job for execution. It reports false when the queue is full
// or closed; the job is then dropped.
func (p *Pool) Submit(ctx context.Context, job Job) bool {
	if p.queue.Enqueue(ctx, job) {
		return true
	}
	p.logger.Warn(ctx, "job dropped", logger.Int("queued", p.queue.Len(ctx)))
	return false
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Shutdown closes the job queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	if !p.started.Load() {
		return nil
	}
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			metrics.UpdateWorkerActiveCount(p.name, 0)
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}
	metrics.UpdateWorkerActiveCount(p.name, 0)
	return nil
}
