package debounce

import (
	"sync"
	"time"

	"github.com/galtspace/geo-explorer/internal/adapter"
)

// DefaultDelay is used when a registry is created with a non-positive delay
const DefaultDelay = time.Second

// Registry runs at most one delayed function per key. A Trigger while a timer for the same key
// is pending is dropped, so a burst of triggers collapses into a single run that happens Delay
// after the first of them.
type Registry struct {
	clock adapter.Clock
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*entry
	stopped bool
}

type entry struct {
	timer adapter.Timer
}

// New creates a registry firing delay after the first trigger of a key
func New(clock adapter.Clock, delay time.Duration) *Registry {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Registry{
		clock:   clock,
		delay:   delay,
		pending: make(map[string]*entry),
	}
}

// Delay returns the time between the first trigger of a key and the run
func (r *Registry) Delay() time.Duration {
	return r.delay
}

// Trigger schedules fn for key unless a run of key is already pending.
// It reports whether a new timer was started.
func (r *Registry) Trigger(key string, fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return false
	}
	if _, ok := r.pending[key]; ok {
		return false
	}

	e := &entry{}
	r.pending[key] = e
	e.timer = r.clock.AfterFunc(r.delay, func() {
		r.mu.Lock()
		current, ok := r.pending[key]
		if !ok || current != e {
			r.mu.Unlock()
			return
		}
		delete(r.pending, key)
		r.mu.Unlock()

		fn()
	})
	return true
}

// Pending reports whether a run of key is scheduled
func (r *Registry) Pending(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.pending[key]
	return ok
}

// Len returns the number of pending keys
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}

// Stop cancels every pending run. Triggers after Stop are ignored.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopped = true
	for key, e := range r.pending {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(r.pending, key)
	}
}
