// Package keylock serializes work on the same key while letting different keys proceed in parallel.
package keylock

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker is a registry of per-key mutexes. Entries are reference counted and
// removed once no goroutine holds or waits on them.
type Locker struct {
	entries *xsync.MapOf[string, *entry]
}

// New creates an empty Locker
func New() *Locker {
	return &Locker{entries: xsync.NewMapOf[string, *entry]()}
}

// Lock blocks until key is held and returns the function that releases it
func (l *Locker) Lock(key string) func() {
	e, _ := l.entries.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			old = &entry{}
		}
		old.refs++
		return old, false
	})

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			l.entries.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
				if !loaded {
					return nil, true
				}
				old.refs--
				return old, old.refs <= 0
			})
		})
	}
}

// Size returns the number of keys currently held or waited on
func (l *Locker) Size() int {
	return l.entries.Size()
}
