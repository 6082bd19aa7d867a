package store

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid calls so only the last one within the interval
// runs. It backs search-as-you-type so keystrokes don't become request storms.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = 300 * time.Millisecond
	}
	return &Debouncer{interval: interval}
}

// Do schedules fn, cancelling any previously scheduled call.
func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, fn)
}

// Stop cancels any pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
