// Package worker runs predictions on a single background goroutine so
// interactive callers never block on the pipeline.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Brownie44l1/stethoscope-api/internal/metrics"
	"github.com/Brownie44l1/stethoscope-api/internal/model"
)

var (
	// ErrQueueFull is returned when the pending job queue is at capacity.
	ErrQueueFull = errors.New("worker: queue full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("worker: runner closed")
)

// DefaultQueueSize bounds the number of pending jobs.
const DefaultQueueSize = 4

// Predictor is the blocking pipeline a Runner drives.
type Predictor interface {
	Predict(audioPath string) model.Result
}

type job struct {
	id     string
	path   string
	result chan model.Result
}

// Runner executes jobs one at a time, in submission order. Each job delivers
// exactly one Result on its own channel. A started job always runs to
// completion; giving up on the channel does not cancel it.
type Runner struct {
	predictor Predictor
	logger    *slog.Logger
	metrics   *metrics.Metrics

	jobs chan job
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewRunner starts the background goroutine. queueSize <= 0 uses
// DefaultQueueSize.
func NewRunner(p Predictor, queueSize int, logger *slog.Logger, m *metrics.Metrics) *Runner {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		predictor: p,
		logger:    logger,
		metrics:   m,
		jobs:      make(chan job, queueSize),
		done:      make(chan struct{}),
	}
	go r.loop()
	return r
}

// Submit queues a prediction for audioPath. The returned channel receives
// exactly one Result and is buffered, so the caller may abandon it.
func (r *Runner) Submit(ctx context.Context, audioPath string) (<-chan model.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	j := job{
		id:     uuid.NewString(),
		path:   audioPath,
		result: make(chan model.Result, 1),
	}

	select {
	case r.jobs <- j:
		r.logger.Debug("Job queued", slog.String("job_id", j.id), slog.String("path", audioPath))
		return j.result, nil
	default:
		r.metrics.RecordQueueRejection()
		return nil, ErrQueueFull
	}
}

// Run submits a prediction and waits for it. If ctx ends first the job keeps
// running and its result is discarded.
func (r *Runner) Run(ctx context.Context, audioPath string) (model.Result, error) {
	ch, err := r.Submit(ctx, audioPath)
	if err != nil {
		return model.Result{}, err
	}
	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		return model.Result{}, ctx.Err()
	}
}

// Close stops accepting jobs, drains the queue, and waits for the last job.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-r.done
		return
	}
	r.closed = true
	close(r.jobs)
	r.mu.Unlock()

	<-r.done
}

func (r *Runner) loop() {
	defer close(r.done)

	for j := range r.jobs {
		r.metrics.JobStarted()
		start := time.Now()

		res := r.predictor.Predict(j.path)

		r.metrics.JobFinished()
		r.logger.Debug("Job finished",
			slog.String("job_id", j.id),
			slog.String("outcome", res.Outcome.String()),
			slog.Duration("elapsed", time.Since(start)),
		)
		j.result <- res
	}
}
