package queue

// Concurrency and safety tests for the job queue. Verifies no deadlocks,
// no panics on double-close, and no races under concurrent Enqueue/Close.

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vulndesk/vulndesk/pkg/testutil"
)

func TestQueue_DoubleClose_NoPanic(t *testing.T) {
	t.Parallel()

	q := New(2, nil)
	q.Close()
	q.Close()

	if !q.IsClosed() {
		t.Error("IsClosed() = false after double Close")
	}
}

// TestQueue_ConcurrentEnqueueAndClose verifies no deadlock when Enqueue
// and Close race.
func TestQueue_ConcurrentEnqueueAndClose(t *testing.T) {
	t.Parallel()

	testutil.AssertTimeout(t, "Enqueue+Close race", 5*time.Second, func() {
		q := New(4, nil)
		var executed int64

		done := make(chan struct{})
		for i := 0; i < 20; i++ {
			go func() {
				defer func() { recover() }() // don't fail on close-related panics
				for {
					select {
					case <-done:
						return
					default:
						q.Enqueue("race", func(ctx context.Context, job *Job) error {
							atomic.AddInt64(&executed, 1)
							return nil
						})
					}
				}
			}()
		}

		time.Sleep(50 * time.Millisecond)

		// Close while enqueues are in flight.
		q.Close()
		close(done)
	})
}

// TestQueue_ConcurrentEnqueue_NoRace verifies concurrent Enqueue has no
// data races. Run with -race flag.
func TestQueue_ConcurrentEnqueue_NoRace(t *testing.T) {
	t.Parallel()

	q := New(4, nil)

	var total int64
	testutil.RunConcurrently(25, func(i int) {
		for j := 0; j < 40; j++ {
			q.Enqueue("fanout", func(ctx context.Context, job *Job) error {
				atomic.AddInt64(&total, 1)
				return nil
			})
		}
	})

	// Close drains the backlog, so every enqueued job has run by now.
	q.Close()
	if total != 25*40 {
		t.Errorf("executed %d jobs, want %d", total, 25*40)
	}
}

// TestQueue_CloseReleasesWorkers verifies worker goroutines exit once the
// queue is closed instead of lingering.
func TestQueue_CloseReleasesWorkers(t *testing.T) {
	tracker := testutil.TrackGoroutines()

	q := New(8, nil)
	for i := 0; i < 30; i++ {
		q.Enqueue("burst", func(ctx context.Context, job *Job) error {
			time.Sleep(time.Millisecond)
			return nil
		})
	}
	q.Close()

	tracker.CheckLeaks(t, 2)
}
