package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the buffer cannot accept another job.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueStopped is handed to OnAbandon for jobs still buffered at Stop.
	ErrQueueStopped = errors.New("queue stopped")
)

// Job is one queued unit of work.
type Job[T any] struct {
	ID       string
	Payload  T
	Enqueued time.Time
}

// Handler processes a job. Returned errors are logged; the handler owns any
// per-job bookkeeping.
type Handler[T any] func(context.Context, Job[T]) error

// QueueConfig sizes the pool. OnDepth observes the buffer length after every
// enqueue and dequeue. OnAbandon receives jobs that will never finish: those
// whose handler panicked and those still buffered when the queue stops.
type QueueConfig[T any] struct {
	Workers    int
	BufferSize int
	Logger     *zap.Logger
	OnDepth    func(int)
	OnAbandon  func(Job[T], error)
}

// Queue dispatches jobs to a fixed pool of goroutines without blocking producers.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	cfg     QueueConfig[T]
	logger  *zap.Logger

	jobs chan Job[T]

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

func NewQueue[T any](name string, handler Handler[T], cfg QueueConfig[T]) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue[T]{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job[T], cfg.BufferSize),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(q.cfg.Workers)
	for i := 0; i < q.cfg.Workers; i++ {
		go q.work()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers), zap.Int("buffer", q.cfg.BufferSize))
}

// Stop cancels running jobs, waits for the workers and abandons whatever is still buffered.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()

	abandoned := 0
	for {
		select {
		case job := <-q.jobs:
			abandoned++
			q.abandon(job, ErrQueueStopped)
		default:
			q.depth()
			q.logger.Info("queue stopped", zap.Int("abandoned", abandoned))
			return
		}
	}
}

// Enqueue buffers a job or fails fast with ErrQueueFull.
func (q *Queue[T]) Enqueue(job Job[T]) error {
	q.mu.Lock()
	started, ctx := q.started, q.ctx
	q.mu.Unlock()

	switch {
	case !started:
		return fmt.Errorf("queue %s not started", q.name)
	case ctx.Err() != nil:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueStopped)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case q.jobs <- job:
		q.depth()
		return nil
	default:
		return fmt.Errorf("queue %s: %w", q.name, ErrQueueFull)
	}
}

// Pending reports the number of buffered jobs not yet picked up.
func (q *Queue[T]) Pending() int {
	return len(q.jobs)
}

func (q *Queue[T]) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.depth()
			if q.ctx.Err() != nil {
				q.abandon(job, ErrQueueStopped)
				return
			}
			q.run(job)
		}
	}
}

// run shields the worker from a panicking handler so the pool never shrinks.
func (q *Queue[T]) run(job Job[T]) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("job %s panicked: %v", job.ID, r)
			q.logger.Error("job panicked", zap.String("job_id", job.ID), zap.Any("panic", r))
			q.abandon(job, err)
		}
	}()
	if err := q.handler(q.ctx, job); err != nil {
		q.logger.Warn("job failed", zap.String("job_id", job.ID),
			zap.Duration("waited", time.Since(job.Enqueued)), zap.Error(err))
	}
}

func (q *Queue[T]) abandon(job Job[T], err error) {
	if q.cfg.OnAbandon != nil {
		q.cfg.OnAbandon(job, err)
	}
}

func (q *Queue[T]) depth() {
	if q.cfg.OnDepth != nil {
		q.cfg.OnDepth(len(q.jobs))
	}
}
