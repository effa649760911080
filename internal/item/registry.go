package item

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-automation/internal/event"
	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RegistryChangeListener is notified when the set of items changes.
type RegistryChangeListener interface {
	// AllItemsChanged is called after the registry reloaded every item.
	// oldNames lists the items known before the reload.
	AllItemsChanged(oldNames []string)

	// ItemAdded is called after an item was added.
	ItemAdded(item *Item)

	// ItemRemoved is called after an item was removed.
	ItemRemoved(item *Item)
}

// Registry provides item management with caching and thread safety.
// It wraps a Repository and keeps the live Item objects in memory.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by the CRUD operations.
//
// All public methods are thread-safe. Listeners are called after the
// cache lock has been released.
type Registry struct {
	repo    Repository
	cache   map[string]*Item // Live items by name
	cacheMu sync.RWMutex     // Protects cache
	logger  Logger

	listeners event.Listeners[RegistryChangeListener]
}

// NewRegistry creates a new item registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Item),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// AddRegistryChangeListener registers l.
func (r *Registry) AddRegistryChangeListener(l RegistryChangeListener) error {
	_, err := r.listeners.Add(l)
	return err
}

// RemoveRegistryChangeListener unregisters l.
func (r *Registry) RemoveRegistryChangeListener(l RegistryChangeListener) {
	r.listeners.Remove(l)
}

// RefreshCache reloads all items from the repository, replacing the live
// items, and notifies AllItemsChanged.
func (r *Registry) RefreshCache(ctx context.Context) error {
	defs, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading items: %w", err)
	}

	r.cacheMu.Lock()
	oldNames := make([]string, 0, len(r.cache))
	for name := range r.cache {
		oldNames = append(oldNames, name)
	}
	r.cache = make(map[string]*Item, len(defs))
	for i := range defs {
		r.cache[defs[i].Name] = New(defs[i])
	}
	r.cacheMu.Unlock()

	sort.Strings(oldNames)
	r.logger.Info("item cache refreshed", "count", len(defs))

	for _, l := range r.listeners.Snapshot() {
		l.AllItemsChanged(oldNames)
	}
	return nil
}

// GetItem returns the live item with the given name.
// Returns ErrItemNotFound if the item does not exist.
func (r *Registry) GetItem(name string) (*Item, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	it, ok := r.cache[name]
	if !ok {
		return nil, ErrItemNotFound
	}
	return it, nil
}

// GetItems returns every live item ordered by name.
func (r *Registry) GetItems() []*Item {
	r.cacheMu.RLock()
	items := make([]*Item, 0, len(r.cache))
	for _, it := range r.cache {
		items = append(items, it)
	}
	r.cacheMu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].Name() < items[j].Name()
	})
	return items
}

// GetItemState returns the current state of the named item.
func (r *Registry) GetItemState(name string) (types.State, error) {
	it, err := r.GetItem(name)
	if err != nil {
		return nil, err
	}
	return it.State(), nil
}

// GetItemCount returns the number of cached items.
func (r *Registry) GetItemCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// CreateItem validates and persists a new item, then notifies ItemAdded.
func (r *Registry) CreateItem(ctx context.Context, d *Definition) (*Item, error) {
	if err := ValidateDefinition(d); err != nil {
		return nil, err
	}
	if err := r.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	it := New(*d)
	r.cacheMu.Lock()
	r.cache[d.Name] = it
	r.cacheMu.Unlock()

	r.logger.Info("item created", "name", d.Name, "type", d.Type, "protocol", d.Protocol)
	for _, l := range r.listeners.Snapshot() {
		l.ItemAdded(it)
	}
	return it, nil
}

// UpdateItem replaces an item's definition. The live item is replaced by a
// new one carrying over the current state; listeners see the old item
// removed and the new one added.
func (r *Registry) UpdateItem(ctx context.Context, d *Definition) (*Item, error) {
	if err := ValidateDefinition(d); err != nil {
		return nil, err
	}
	old, err := r.GetItem(d.Name)
	if err != nil {
		return nil, err
	}
	if err := r.repo.Update(ctx, d); err != nil {
		return nil, err
	}

	current := old.Definition()
	next := d.DeepCopy()
	next.State = current.State
	next.StateUpdatedAt = current.StateUpdatedAt
	next.CreatedAt = current.CreatedAt
	it := New(*next)

	r.cacheMu.Lock()
	r.cache[d.Name] = it
	r.cacheMu.Unlock()

	r.logger.Info("item updated", "name", d.Name)
	for _, l := range r.listeners.Snapshot() {
		l.ItemRemoved(old)
		l.ItemAdded(it)
	}
	return it, nil
}

// DeleteItem removes an item and notifies ItemRemoved.
func (r *Registry) DeleteItem(ctx context.Context, name string) error {
	if err := r.repo.Delete(ctx, name); err != nil {
		return err
	}

	r.cacheMu.Lock()
	it, ok := r.cache[name]
	delete(r.cache, name)
	r.cacheMu.Unlock()

	r.logger.Info("item deleted", "name", name)
	if !ok {
		return nil
	}
	for _, l := range r.listeners.Snapshot() {
		l.ItemRemoved(it)
	}
	return nil
}

// SetItemState sets the state of a live item, which notifies its
// listeners, and then stores it as the last known state.
func (r *Registry) SetItemState(ctx context.Context, name string, state types.State) error {
	it, err := r.GetItem(name)
	if err != nil {
		return err
	}

	it.SetState(state)

	d := it.Definition()
	if err := r.repo.UpdateState(ctx, name, state, *d.StateUpdatedAt); err != nil {
		return fmt.Errorf("persisting state of %s: %w", name, err)
	}

	r.logger.Debug("item state updated", "name", name, "state", types.Format(state))
	return nil
}
