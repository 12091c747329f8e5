// Package queue provides a bounded worker queue for background report
// jobs. Workers are reused across jobs to avoid goroutine churn, and
// every enqueued job is tracked by a unique ID so callers can wait for
// completion or poll its status.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vulndesk/vulndesk/pkg/defaults"
)

// ErrClosed is returned by Enqueue after Close has been called.
var ErrClosed = errors.New("queue: closed")

// TaskFunc is the unit of work a job executes. The job argument carries
// the assigned ID so tasks can persist it before doing real work.
type TaskFunc func(ctx context.Context, job *Job) error

// Status describes where a job is in its lifecycle.
type Status int32

const (
	StatusQueued Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
)

// String returns the lowercase name used in logs and API responses.
func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Job is a tracked unit of background work.
type Job struct {
	// ID is assigned at enqueue time and never changes.
	ID string

	// Name is a short human-readable label for logs.
	Name string

	// EnqueuedAt is when the job entered the queue.
	EnqueuedAt time.Time

	fn     TaskFunc
	status int32
	done   chan struct{}

	// err is written once, before done is closed. Readers must observe
	// the done channel first.
	err error
}

// Status returns the job's current lifecycle state.
func (j *Job) Status() Status {
	return Status(atomic.LoadInt32(&j.status))
}

// Done returns a channel that is closed when the job finishes,
// regardless of outcome.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the job's terminal error, or nil if it succeeded or has
// not finished yet.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job finishes or the context is cancelled.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Queue manages a fixed pool of worker goroutines that execute jobs in
// enqueue order. Workers are started lazily as jobs arrive.
type Queue struct {
	workers int32
	jobs    chan *Job

	running int32
	closed  int32

	wg  sync.WaitGroup
	log *slog.Logger

	// base context handed to every job; cancelled only after the queue
	// has drained, so in-flight jobs are never aborted by Close.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a queue with the given number of workers. Sizes outside
// the configured bounds are clamped rather than rejected.
func New(workers int, log *slog.Logger) *Queue {
	if workers < defaults.WorkersMinimal {
		workers = defaults.WorkersDefault
	}
	if workers > defaults.WorkersMax {
		workers = defaults.WorkersMax
	}
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		workers: int32(workers),
		jobs:    make(chan *Job, defaults.QueueDepth),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Enqueue registers fn under a fresh job ID and schedules it. The
// returned job can be waited on. Enqueue blocks only when the backlog
// is full and all workers are busy.
func (q *Queue) Enqueue(name string, fn TaskFunc) (*Job, error) {
	if atomic.LoadInt32(&q.closed) == 1 {
		return nil, ErrClosed
	}

	job := &Job{
		ID:         uuid.NewString(),
		Name:       name,
		EnqueuedAt: time.Now().UTC(),
		fn:         fn,
		done:       make(chan struct{}),
	}

	// Spawn a worker if we are below capacity.
	for {
		running := atomic.LoadInt32(&q.running)
		if running >= atomic.LoadInt32(&q.workers) {
			break
		}
		if atomic.CompareAndSwapInt32(&q.running, running, running+1) {
			q.wg.Add(1)
			go q.worker()
			break
		}
	}

	select {
	case q.jobs <- job:
	default:
		q.log.Warn("job backlog full, enqueue blocking", "job", name, "waiting", len(q.jobs))
		q.jobs <- job
	}
	return job, nil
}

// worker drains the job channel until it is closed.
func (q *Queue) worker() {
	defer func() {
		atomic.AddInt32(&q.running, -1)
		q.wg.Done()
	}()

	for job := range q.jobs {
		q.run(job)
	}
}

// run executes a single job, converting panics into job failures so a
// misbehaving task never kills its worker.
func (q *Queue) run(job *Job) {
	atomic.StoreInt32(&job.status, int32(StatusRunning))

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("queue: job %s panicked: %v", job.ID, r)
			}
		}()
		err = job.fn(q.ctx, job)
	}()

	job.err = err
	if err != nil {
		atomic.StoreInt32(&job.status, int32(StatusFailed))
		q.log.Error("job failed", "job", job.Name, "job_id", job.ID, "error", err)
	} else {
		atomic.StoreInt32(&job.status, int32(StatusSucceeded))
	}
	close(job.done)
}

// Running returns the current number of live workers.
func (q *Queue) Running() int {
	return int(atomic.LoadInt32(&q.running))
}

// Waiting returns the number of jobs queued but not yet picked up.
func (q *Queue) Waiting() int {
	return len(q.jobs)
}

// Close stops accepting new jobs, waits for the backlog to drain, then
// releases the base context. Safe to call more than once.
func (q *Queue) Close() {
	if !atomic.CompareAndSwapInt32(&q.closed, 0, 1) {
		return
	}
	close(q.jobs)
	q.wg.Wait()
	q.cancel()
}

// IsClosed reports whether Close has been called.
func (q *Queue) IsClosed() bool {
	return atomic.LoadInt32(&q.closed) == 1
}
