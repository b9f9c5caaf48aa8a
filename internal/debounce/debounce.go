// Package debounce coalesces bursts of calls into a single delayed call per key.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiescence window applied when none is configured.
const DefaultDelay = 2 * time.Second

// Func receives the latest payload scheduled for key once the window elapses.
type Func[K comparable, P any] func(key K, payload P)

type call[P any] struct {
	timer   *time.Timer
	gen     uint64
	payload P
}

// Debouncer runs fn for a key only after no new payload has been scheduled for
// that key during the delay. A newer Schedule replaces the pending payload and
// restarts the window.
type Debouncer[K comparable, P any] struct {
	delay time.Duration
	fn    Func[K, P]

	mu      sync.Mutex
	gen     uint64
	pending map[K]*call[P]
	stopped bool
	running sync.WaitGroup
}

// New creates a Debouncer. A non-positive delay falls back to DefaultDelay.
func New[K comparable, P any](delay time.Duration, fn Func[K, P]) *Debouncer[K, P] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[K, P]{
		delay:   delay,
		fn:      fn,
		pending: make(map[K]*call[P]),
	}
}

func (d *Debouncer[K, P]) Delay() time.Duration { return d.delay }

// Schedule replaces any pending call for key. It returns false after Stop.
func (d *Debouncer[K, P]) Schedule(key K, payload P) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return false
	}
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending[key] = &call[P]{
		gen:     gen,
		payload: payload,
		timer:   time.AfterFunc(d.delay, func() { d.fire(key, gen) }),
	}
	return true
}

// Cancel drops the pending call for key and reports whether there was one.
func (d *Debouncer[K, P]) Cancel(key K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(d.pending, key)
	return true
}

func (d *Debouncer[K, P]) Pending(key K) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Flush runs the pending call for key now, on the caller's goroutine.
func (d *Debouncer[K, P]) Flush(key K) bool {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok {
		d.mu.Unlock()
		return false
	}
	p.timer.Stop()
	delete(d.pending, key)
	d.running.Add(1)
	d.mu.Unlock()

	defer d.running.Done()
	d.fn(key, p.payload)
	return true
}

// Stop drops every pending call, rejects further schedules and waits for
// calls already running to return.
func (d *Debouncer[K, P]) Stop() {
	d.mu.Lock()
	d.stopped = true
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()

	d.running.Wait()
}

func (d *Debouncer[K, P]) fire(key K, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.gen != gen || d.stopped {
		// superseded or cancelled after the timer had already fired
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.running.Add(1)
	d.mu.Unlock()

	defer d.running.Done()
	d.fn(key, p.payload)
}
