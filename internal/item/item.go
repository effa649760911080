package item

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-automation/internal/event"
	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// StateChangeListener is notified about state writes on an item.
type StateChangeListener interface {
	// StateChanged is called when the new state differs from the old one.
	StateChanged(item *Item, oldState, newState types.State)

	// StateUpdated is called on every state write, changed or not.
	StateUpdated(item *Item, newState types.State)
}

// Item is a live item: its definition plus the current state and the
// listeners interested in it.
//
// Thread Safety: all methods are safe for concurrent use. Listeners are
// called on the goroutine that set the state.
type Item struct {
	def Definition

	mu             sync.RWMutex
	state          types.State
	stateUpdatedAt *time.Time

	listeners event.Listeners[StateChangeListener]
}

// New creates an item from its definition. The definition's last known
// state becomes the initial state.
func New(def Definition) *Item {
	cp := def.DeepCopy()
	state := cp.State
	if state == nil {
		state = types.Null
	}
	return &Item{
		def:            *cp,
		state:          state,
		stateUpdatedAt: cp.StateUpdatedAt,
	}
}

func (i *Item) Name() string       { return i.def.Name }
func (i *Item) Label() string      { return i.def.Label }
func (i *Item) Type() Type         { return i.def.Type }
func (i *Item) Protocol() Protocol { return i.def.Protocol }
func (i *Item) Address() string    { return i.def.Address }

// HasTag reports whether the item carries tag.
func (i *Item) HasTag(tag string) bool {
	for _, t := range i.def.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// State returns the current state.
func (i *Item) State() types.State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Definition returns a copy of the definition including the current state.
func (i *Item) Definition() *Definition {
	i.mu.RLock()
	defer i.mu.RUnlock()

	d := i.def.DeepCopy()
	d.State = i.state
	if i.stateUpdatedAt != nil {
		t := *i.stateUpdatedAt
		d.StateUpdatedAt = &t
	}
	return d
}

// SetState stores state and notifies every listener: StateUpdated always,
// StateChanged only when the value differs from the previous state.
func (i *Item) SetState(state types.State) {
	now := time.Now().UTC()

	i.mu.Lock()
	old := i.state
	i.state = state
	i.stateUpdatedAt = &now
	i.mu.Unlock()

	changed := !types.Equal(old, state)
	for _, l := range i.listeners.Snapshot() {
		l.StateUpdated(i, state)
		if changed {
			l.StateChanged(i, old, state)
		}
	}
}

// AddStateChangeListener registers l. Adding the same listener twice has
// no effect.
func (i *Item) AddStateChangeListener(l StateChangeListener) error {
	_, err := i.listeners.Add(l)
	return err
}

// RemoveStateChangeListener unregisters l.
func (i *Item) RemoveStateChangeListener(l StateChangeListener) {
	i.listeners.Remove(l)
}

// ListenerCount returns the number of registered listeners.
func (i *Item) ListenerCount() int {
	return i.listeners.Len()
}
