package item

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// setupTestDB creates an in-memory SQLite database with the items table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE items (
			name TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			protocol TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			state TEXT,
			state_updated_at TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// testDefinition returns a valid switch item definition.
func testDefinition(name string) *Definition {
	return &Definition{
		Name:     name,
		Label:    name + " label",
		Type:     TypeSwitch,
		Protocol: ProtocolKNX,
		Address:  "1/0/1",
		Tags:     []string{"lighting"},
	}
}

// mockRepository is an in-memory Repository.
type mockRepository struct {
	mu       sync.Mutex
	defs     map[string]Definition
	states   map[string]types.State
	stateErr error
}

func newMockRepository(defs ...*Definition) *mockRepository {
	r := &mockRepository{
		defs:   make(map[string]Definition),
		states: make(map[string]types.State),
	}
	for _, d := range defs {
		r.defs[d.Name] = *d.DeepCopy()
	}
	return r
}

func (r *mockRepository) GetByName(_ context.Context, name string) (*Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.defs[name]
	if !ok {
		return nil, ErrItemNotFound
	}
	return d.DeepCopy(), nil
}

func (r *mockRepository) List(_ context.Context) ([]Definition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defs := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		defs = append(defs, *d.DeepCopy())
	}
	return defs, nil
}

func (r *mockRepository) Create(_ context.Context, d *Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[d.Name]; ok {
		return ErrItemExists
	}
	r.defs[d.Name] = *d.DeepCopy()
	return nil
}

func (r *mockRepository) Update(_ context.Context, d *Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[d.Name]; !ok {
		return ErrItemNotFound
	}
	r.defs[d.Name] = *d.DeepCopy()
	return nil
}

func (r *mockRepository) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[name]; !ok {
		return ErrItemNotFound
	}
	delete(r.defs, name)
	return nil
}

func (r *mockRepository) UpdateState(_ context.Context, name string, state types.State, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stateErr != nil {
		return r.stateErr
	}
	r.states[name] = state
	return nil
}

func (r *mockRepository) storedState(name string) types.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[name]
}

// recordingListener captures item and registry notifications.
type recordingListener struct {
	mu         sync.Mutex
	changes    []string
	updates    []string
	added      []string
	removed    []string
	allChanged [][]string
}

func (l *recordingListener) StateChanged(it *Item, oldState, newState types.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changes = append(l.changes, it.Name()+":"+types.Format(oldState)+"->"+types.Format(newState))
}

func (l *recordingListener) StateUpdated(it *Item, newState types.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, it.Name()+":"+types.Format(newState))
}

func (l *recordingListener) AllItemsChanged(oldNames []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allChanged = append(l.allChanged, oldNames)
}

func (l *recordingListener) ItemAdded(it *Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.added = append(l.added, it.Name())
}

func (l *recordingListener) ItemRemoved(it *Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removed = append(l.removed, it.Name())
}
