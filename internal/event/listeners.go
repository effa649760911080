package event

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Listeners is a copy-on-write list of callbacks.
//
// Readers take a Snapshot without locking and may iterate it while other
// goroutines add or remove entries; writers replace the whole slice.
// Entries are compared with ==, so their dynamic types must be comparable
// (typically pointers).
type Listeners[T any] struct {
	mu    sync.Mutex // serialises writers
	items atomic.Pointer[[]T]
}

// Add appends v unless it is already present. It reports whether the list
// changed.
func (l *Listeners[T]) Add(v T) (bool, error) {
	if err := checkComparable(v); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.Snapshot()
	for _, existing := range current {
		if any(existing) == any(v) {
			return false, nil
		}
	}

	next := make([]T, len(current), len(current)+1)
	copy(next, current)
	next = append(next, v)
	l.items.Store(&next)
	return true, nil
}

// Remove deletes v. Removing an absent entry is a no-op.
func (l *Listeners[T]) Remove(v T) bool {
	if checkComparable(v) != nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.Snapshot()
	for i, existing := range current {
		if any(existing) != any(v) {
			continue
		}
		next := make([]T, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		l.items.Store(&next)
		return true
	}
	return false
}

// Snapshot returns the current entries. The slice must not be modified.
func (l *Listeners[T]) Snapshot() []T {
	if p := l.items.Load(); p != nil {
		return *p
	}
	return nil
}

// Len returns the number of entries.
func (l *Listeners[T]) Len() int {
	return len(l.Snapshot())
}

func checkComparable(v any) error {
	if v == nil {
		return ErrNilSubscriber
	}
	if !reflect.TypeOf(v).Comparable() {
		return ErrNotComparable
	}
	return nil
}
