package notify

import (
	"context"
	"sync"
)

// Recorder captures events in memory so tests can assert on what was
// delivered without standing up a webhook receiver.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify appends the event and never fails.
func (r *Recorder) Notify(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
