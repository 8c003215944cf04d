// Package timer implements the presentation timer: a two-state
// start/stop machine that ticks once per second while running and reports
// formatted elapsed time through callbacks.
package timer

import (
	"fmt"
	"sync"
	"time"
)

// Timer is the presentation elapsed-time clock. Elapsed time does not
// persist across Stop/Start; Start always begins from zero.
type Timer struct {
	mu      sync.Mutex
	running bool
	elapsed int // seconds
	stop    chan struct{}

	interval time.Duration

	onUpdate func(formatted string)
	onStop   func()
}

// New creates a stopped timer. onUpdate receives an MM:SS string once per
// second while running; onStop fires when the timer is stopped. Either
// callback may be nil.
func New(onUpdate func(string), onStop func()) *Timer {
	return &Timer{
		interval: time.Second,
		onUpdate: onUpdate,
		onStop:   onStop,
	}
}

// NewWithInterval is New with a custom tick interval, for tests.
func NewWithInterval(interval time.Duration, onUpdate func(string), onStop func()) *Timer {
	t := New(onUpdate, onStop)
	t.interval = interval
	return t
}

// Start resets elapsed time to zero and begins ticking. Starting a running
// timer restarts it from zero.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.running {
		close(t.stop)
	}
	t.running = true
	t.elapsed = 0
	t.stop = make(chan struct{})
	stop := t.stop
	update := t.onUpdate
	t.mu.Unlock()

	if update != nil {
		update(Format(0))
	}

	go t.run(stop)
}

// Stop cancels ticking and resets elapsed time. Stopping a stopped timer is
// a no-op.
func (t *Timer) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.elapsed = 0
	close(t.stop)
	onStop := t.onStop
	t.mu.Unlock()

	if onStop != nil {
		onStop()
	}
}

// Toggle starts the timer if stopped and stops it if running.
func (t *Timer) Toggle() {
	if t.Running() {
		t.Stop()
	} else {
		t.Start()
	}
}

// Running reports whether the timer is ticking.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Elapsed returns the elapsed whole seconds.
func (t *Timer) Elapsed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

func (t *Timer) run(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			if !t.running || t.stop != stop {
				t.mu.Unlock()
				return
			}
			t.elapsed++
			elapsed := t.elapsed
			update := t.onUpdate
			t.mu.Unlock()

			if update != nil {
				update(Format(elapsed))
			}
		}
	}
}

// Format renders whole seconds as MM:SS. Hours spill into the minute field.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
