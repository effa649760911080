package automation

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/gray-logic-automation/internal/event"
	"github.com/nerrad567/gray-logic-automation/internal/item"
	"github.com/nerrad567/gray-logic-automation/internal/scheduler"
	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// setupTestDB creates an in-memory SQLite database with the rule_models table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE rule_models (
			name TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			checksum TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// mustParse parses a YAML rule model or fails the test.
func mustParse(t *testing.T, name, src string) *RuleModel {
	t.Helper()
	m, err := ParseModel(name, []byte(src))
	if err != nil {
		t.Fatalf("ParseModel(%s): %v", name, err)
	}
	return m
}

const lightingModel = `
rules:
  - name: hall light follows motion
    triggers:
      - type: change
        item: HallMotion
        to: "ON"
    script: sendCommand("HallLight", "ON")
  - name: door opened
    triggers:
      - type: change
        item: Door1
    script: log("door", previousState)
`

// ─── Mock Dependencies ──────────────────────────────────────────────────────

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger captures log calls.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) count(level, msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			n++
		}
	}
	return n
}

// execution is one recorded script run.
type execution struct {
	name string
	vars map[string]any
}

// mockScripts records executions and fails or panics on request.
type mockScripts struct {
	mu      sync.Mutex
	execs   []execution
	fail    map[string]error
	panicOn map[string]bool
	block   map[string]bool
}

func newMockScripts() *mockScripts {
	return &mockScripts{
		fail:    make(map[string]error),
		panicOn: make(map[string]bool),
		block:   make(map[string]bool),
	}
}

func (m *mockScripts) Execute(ctx context.Context, name, _ string, vars map[string]any) error {
	m.mu.Lock()
	m.execs = append(m.execs, execution{name: name, vars: vars})
	err := m.fail[name]
	p := m.panicOn[name]
	b := m.block[name]
	m.mu.Unlock()

	if p {
		panic("script exploded")
	}
	if b {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

func (m *mockScripts) executions(name string) []execution {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []execution
	for _, e := range m.execs {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func (m *mockScripts) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.execs)
}

type delayedJob struct {
	owner scheduler.Owner
	job   scheduler.Job
	delay time.Duration
}

// inlineJobs runs submitted jobs on the caller and records delayed jobs
// without running them.
type inlineJobs struct {
	mu        sync.Mutex
	submitted int
	delayed   []delayedJob
	cancelled []scheduler.Owner
	rejectErr error
}

func (j *inlineJobs) Submit(job scheduler.Job) error {
	j.mu.Lock()
	if j.rejectErr != nil {
		j.mu.Unlock()
		return j.rejectErr
	}
	j.submitted++
	j.mu.Unlock()

	job(context.Background())
	return nil
}

func (j *inlineJobs) SubmitDelayed(owner scheduler.Owner, job scheduler.Job, delay time.Duration) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.delayed = append(j.delayed, delayedJob{owner: owner, job: job, delay: delay})
	return nil
}

func (j *inlineJobs) CancelJobs(owner scheduler.Owner) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cancelled = append(j.cancelled, owner)
	kept := j.delayed[:0]
	for _, d := range j.delayed {
		if d.owner != owner {
			kept = append(kept, d)
		}
	}
	j.delayed = kept
}

func (j *inlineJobs) pending() []delayedJob {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]delayedJob(nil), j.delayed...)
}

// mockItems is an in-memory ItemRegistry.
type mockItems struct {
	mu        sync.Mutex
	items     map[string]*item.Item
	listeners []item.RegistryChangeListener
}

func newMockItems(names ...string) *mockItems {
	m := &mockItems{items: make(map[string]*item.Item)}
	for _, n := range names {
		m.items[n] = newTestItem(n, types.Null)
	}
	return m
}

func newTestItem(name string, state types.State) *item.Item {
	return item.New(item.Definition{
		Name:     name,
		Type:     item.TypeSwitch,
		Protocol: item.ProtocolVirtual,
		State:    state,
	})
}

func (m *mockItems) GetItems() []*item.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*item.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

func (m *mockItems) GetItem(name string) (*item.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[name]; ok {
		return it, nil
	}
	return nil, item.ErrItemNotFound
}

func (m *mockItems) AddRegistryChangeListener(l item.RegistryChangeListener) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
	return nil
}

func (m *mockItems) RemoveRegistryChangeListener(l item.RegistryChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

func (m *mockItems) snapshot() []item.RegistryChangeListener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]item.RegistryChangeListener(nil), m.listeners...)
}

func (m *mockItems) add(it *item.Item) {
	m.mu.Lock()
	m.items[it.Name()] = it
	m.mu.Unlock()
	for _, l := range m.snapshot() {
		l.ItemAdded(it)
	}
}

func (m *mockItems) remove(name string) {
	m.mu.Lock()
	it := m.items[name]
	delete(m.items, name)
	m.mu.Unlock()
	for _, l := range m.snapshot() {
		l.ItemRemoved(it)
	}
}

func (m *mockItems) replaceAll(items ...*item.Item) {
	m.mu.Lock()
	old := make([]string, 0, len(m.items))
	for name := range m.items {
		old = append(old, name)
	}
	m.items = make(map[string]*item.Item)
	for _, it := range items {
		m.items[it.Name()] = it
	}
	m.mu.Unlock()
	for _, l := range m.snapshot() {
		l.AllItemsChanged(old)
	}
}

// mockModels is an in-memory ModelRepository.
type mockModels struct {
	mu        sync.Mutex
	models    map[string]*RuleModel
	listeners []ModelChangeListener
}

func newMockModels(models ...*RuleModel) *mockModels {
	m := &mockModels{models: make(map[string]*RuleModel)}
	for _, rm := range models {
		m.models[rm.Name] = rm
	}
	return m
}

func (m *mockModels) GetAllModelNamesOfType(kind string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name := range m.models {
		if len(name) > len(kind) && name[len(name)-len(kind)-1:] == "."+kind {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (m *mockModels) GetModel(name string) *RuleModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.models[name].DeepCopy()
}

func (m *mockModels) AddModelChangeListener(l ModelChangeListener) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
	return nil
}

func (m *mockModels) RemoveModelChangeListener(l ModelChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

func (m *mockModels) put(rm *RuleModel, kind ModelEventType) {
	m.mu.Lock()
	m.models[rm.Name] = rm
	listeners := append([]ModelChangeListener(nil), m.listeners...)
	m.mu.Unlock()
	for _, l := range listeners {
		l.ModelChanged(rm.Name, kind)
	}
}

func (m *mockModels) delete(name string) {
	m.mu.Lock()
	delete(m.models, name)
	listeners := append([]ModelChangeListener(nil), m.listeners...)
	m.mu.Unlock()
	for _, l := range listeners {
		l.ModelChanged(name, ModelRemoved)
	}
}

// mockCommands is a CommandSource that delivers synchronously.
type mockCommands struct {
	mu   sync.Mutex
	subs []event.CommandSubscriber
}

func (m *mockCommands) SubscribeCommand(s event.CommandSubscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, s)
	return nil
}

func (m *mockCommands) UnsubscribeCommand(s event.CommandSubscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.subs {
		if existing == s {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return
		}
	}
}

func (m *mockCommands) send(itemName string, cmd types.Command) {
	m.mu.Lock()
	subs := append([]event.CommandSubscriber(nil), m.subs...)
	m.mu.Unlock()
	for _, s := range subs {
		_ = s.ReceiveCommand(event.NewCommandEvent(itemName, cmd))
	}
}

func (m *mockCommands) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// staticContext binds ruleName and one global value.
type staticContext struct{}

func (staticContext) GlobalContext(rule *Rule) map[string]any {
	return map[string]any{"ruleName": rule.Name, "site": "test-site"}
}

// ─── Engine fixture ─────────────────────────────────────────────────────────

type testEnv struct {
	engine   *Engine
	items    *mockItems
	models   *mockModels
	scripts  *mockScripts
	jobs     *inlineJobs
	commands *mockCommands
	triggers *TriggerManager
	logger   *recordingLogger
}

// setupEngine builds an enabled engine over mocks. mutate may adjust the
// options before the engine is created.
func setupEngine(t *testing.T, items *mockItems, models *mockModels, mutate ...func(*Options)) *testEnv {
	t.Helper()

	env := &testEnv{
		items:    items,
		models:   models,
		scripts:  newMockScripts(),
		jobs:     &inlineJobs{},
		commands: &mockCommands{},
		triggers: NewTriggerManager(),
		logger:   &recordingLogger{},
	}
	opts := Options{
		Enabled:  true,
		Items:    env.items,
		Models:   env.models,
		Triggers: env.triggers,
		Scripts:  env.scripts,
		Context:  staticContext{},
		Commands: env.commands,
		Jobs:     env.jobs,
		Logger:   env.logger,
	}
	for _, m := range mutate {
		m(&opts)
	}

	engine, err := NewEngine(opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	env.engine = engine
	return env
}

var errScript = errors.New("script failed")
