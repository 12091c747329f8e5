package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Waiter animates a spinner on stderr while a background job runs.
// On non-terminal output it prints the message once and stays quiet.
type Waiter struct {
	message string
	writer  io.Writer

	done     chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
	frameIdx int
}

// NewWaiter creates a waiter with the given status message.
func NewWaiter(message string) *Waiter {
	return &Waiter{
		message: message,
		writer:  os.Stderr,
	}
}

// Start begins the spinner animation. Safe to call twice.
func (w *Waiter) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.done = make(chan struct{})
	w.mu.Unlock()

	if IsSilent() {
		return
	}
	if !StderrIsTerminal() {
		fmt.Fprintf(w.writer, "  %s %s...\n", Symbols.Bullet, w.message)
		return
	}

	w.wg.Add(1)
	go w.spin()
}

// Stop halts the animation and clears the spinner line.
func (w *Waiter) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.done)
	w.mu.Unlock()

	w.wg.Wait()

	if !IsSilent() && StderrIsTerminal() {
		fmt.Fprint(w.writer, "\r\033[K")
	}
}

// Elapse runs fn under the waiter, stopping the spinner before it returns.
func (w *Waiter) Elapse(fn func() error) error {
	w.Start()
	defer w.Stop()
	return fn()
}

func (w *Waiter) spin() {
	defer w.wg.Done()

	spinner := DefaultSpinner()
	ticker := time.NewTicker(spinner.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			frame := spinner.Frames[w.frameIdx%len(spinner.Frames)]
			w.frameIdx++
			fmt.Fprintf(w.writer, "\r  %s %s...", SpinnerStyle.Render(frame), w.message)
		}
	}
}
