package queue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEnqueue_RunsJobs(t *testing.T) {
	q := New(4, nil)
	defer q.Close()

	var counter int64
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		_, err := q.Enqueue("count", func(ctx context.Context, job *Job) error {
			defer wg.Done()
			atomic.AddInt64(&counter, 1)
			return nil
		})
		if err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	wg.Wait()
	if counter != 50 {
		t.Errorf("Expected 50 executions, got %d", counter)
	}
}

func TestJob_WaitReturnsTaskError(t *testing.T) {
	q := New(1, nil)
	defer q.Close()

	want := errors.New("conversion blew up")
	job, err := q.Enqueue("boom", func(ctx context.Context, job *Job) error {
		return want
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := job.Wait(ctx); !errors.Is(err, want) {
		t.Errorf("Wait() = %v, want %v", err, want)
	}
	if job.Status() != StatusFailed {
		t.Errorf("Status() = %v, want %v", job.Status(), StatusFailed)
	}
}

func TestJob_WaitHonorsContext(t *testing.T) {
	q := New(1, nil)
	defer q.Close()

	release := make(chan struct{})
	job, _ := q.Enqueue("slow", func(ctx context.Context, job *Job) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := job.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want deadline exceeded", err)
	}
	close(release)
}

func TestJob_IDAssignedBeforeRun(t *testing.T) {
	q := New(1, nil)
	defer q.Close()

	var seen string
	job, _ := q.Enqueue("id", func(ctx context.Context, job *Job) error {
		seen = job.ID
		return nil
	})

	if err := job.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if seen == "" || seen != job.ID {
		t.Errorf("task saw ID %q, caller saw %q", seen, job.ID)
	}
}

func TestRun_RecoversPanic(t *testing.T) {
	q := New(1, nil)
	defer q.Close()

	job, _ := q.Enqueue("panics", func(ctx context.Context, job *Job) error {
		panic("template exploded")
	})

	err := job.Wait(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("Wait() = %v, want panic error", err)
	}

	// Worker must survive the panic and pick up the next job.
	next, _ := q.Enqueue("after", func(ctx context.Context, job *Job) error {
		return nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := next.Wait(ctx); err != nil {
		t.Errorf("job after panic failed: %v", err)
	}
}

func TestClose_DrainsBacklog(t *testing.T) {
	q := New(2, nil)

	var counter int64
	for i := 0; i < 10; i++ {
		q.Enqueue("drain", func(ctx context.Context, job *Job) error {
			atomic.AddInt64(&counter, 1)
			return nil
		})
	}

	q.Close()
	if counter != 10 {
		t.Errorf("Expected all 10 jobs to finish before Close returned, got %d", counter)
	}
	if !q.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}

	if _, err := q.Enqueue("late", func(ctx context.Context, job *Job) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Enqueue after Close = %v, want ErrClosed", err)
	}
}

func TestStatus_String(t *testing.T) {
	cases := map[Status]string{
		StatusQueued:    "queued",
		StatusRunning:   "running",
		StatusSucceeded: "succeeded",
		StatusFailed:    "failed",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", s, got, want)
		}
	}
}
