package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/nerrad567/gray-logic-automation/internal/event"
	"github.com/nerrad567/gray-logic-automation/internal/item"
	"github.com/nerrad567/gray-logic-automation/internal/scheduler"
	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// DefaultRuleTimeout bounds a single rule execution when Options.RuleTimeout
// is not set.
const DefaultRuleTimeout = 30 * time.Second

// ItemRegistry is what the engine needs from the item registry.
// Implemented by *item.Registry.
type ItemRegistry interface {
	GetItems() []*item.Item
	GetItem(name string) (*item.Item, error)
	AddRegistryChangeListener(l item.RegistryChangeListener) error
	RemoveRegistryChangeListener(l item.RegistryChangeListener)
}

// ModelRepository is the source of rule models. Implemented by
// *ModelRegistry.
type ModelRepository interface {
	GetAllModelNamesOfType(kind string) []string
	// GetModel returns nil when the model is unknown.
	GetModel(name string) *RuleModel
	AddModelChangeListener(l ModelChangeListener) error
	RemoveModelChangeListener(l ModelChangeListener)
}

// TriggerMatcher keeps trigger registrations and matches events against
// them. Implemented by *TriggerManager.
type TriggerMatcher interface {
	AddRuleModel(m *RuleModel)
	RemoveRuleModel(m *RuleModel)
	RemoveRule(t TriggerType, rule *Rule)
	GetRules(t TriggerType, q Query) []*Rule
	ClearAll()
}

// ScriptEngine compiles and runs rule scripts. Implemented by
// *script.Engine.
type ScriptEngine interface {
	Execute(ctx context.Context, name, source string, vars map[string]any) error
}

// CommandSource delivers command events. Implemented by *event.Bus.
type CommandSource interface {
	SubscribeCommand(s event.CommandSubscriber) error
	UnsubscribeCommand(s event.CommandSubscriber)
}

// JobScheduler runs rule executions and timer jobs. Implemented by
// *scheduler.Scheduler.
type JobScheduler interface {
	Submit(job scheduler.Job) error
	SubmitDelayed(owner scheduler.Owner, job scheduler.Job, delay time.Duration) error
	CancelJobs(owner scheduler.Owner)
}

// Options configures an Engine. Every collaborator is required.
type Options struct {
	// Enabled is the administrative switch. A disabled engine answers
	// lifecycle calls but never loads or runs rules.
	Enabled bool

	// RuleTimeout bounds each rule execution. Defaults to DefaultRuleTimeout.
	RuleTimeout time.Duration

	Items    ItemRegistry
	Models   ModelRepository
	Triggers TriggerMatcher
	Scripts  ScriptEngine
	Context  ContextProvider
	Commands CommandSource
	Jobs     JobScheduler

	Logger Logger
	Meter  metric.Meter
}

// EngineState is the lifecycle state of the engine.
type EngineState int

// Engine states.
const (
	StateInactive EngineState = iota
	StateActive
)

func (s EngineState) String() string {
	if s == StateActive {
		return "active"
	}
	return "inactive"
}

// Engine runs rules in reaction to item state changes, commands, model
// changes and timers.
//
// While active it listens to every known item, to the item registry, to
// the model repository and to the command bus. Matched rules run
// asynchronously on the job scheduler, each with its own evaluation
// context; startup and shutdown rules run synchronously on the caller.
//
// Thread Safety: all methods are safe for concurrent use.
type Engine struct {
	opts    Options
	logger  Logger
	metrics *engineMetrics

	mu       sync.Mutex // guards state, models, attached
	state    EngineState
	models   map[string]*RuleModel
	attached map[string]*item.Item

	// running is true while active and enabled; event callbacks read it
	// without taking mu.
	running atomic.Bool

	startupMu sync.Mutex // serialises startup rule runs
	timerMu   sync.Mutex // serialises timer arming
	timerGen  atomic.Uint64
}

// NewEngine creates an inactive engine.
func NewEngine(opts Options) (*Engine, error) {
	deps := []struct {
		name    string
		missing bool
	}{
		{"item registry", opts.Items == nil},
		{"model repository", opts.Models == nil},
		{"trigger matcher", opts.Triggers == nil},
		{"script engine", opts.Scripts == nil},
		{"context provider", opts.Context == nil},
		{"command source", opts.Commands == nil},
		{"job scheduler", opts.Jobs == nil},
	}
	for _, d := range deps {
		if d.missing {
			return nil, fmt.Errorf("%w: %s", ErrMissingDependency, d.name)
		}
	}

	if opts.RuleTimeout <= 0 {
		opts.RuleTimeout = DefaultRuleTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	metrics := noopEngineMetrics()
	if opts.Meter != nil {
		m, err := newEngineMetrics(opts.Meter)
		if err != nil {
			return nil, fmt.Errorf("creating rule metrics: %w", err)
		}
		metrics = m
	}

	return &Engine{
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		models:   make(map[string]*RuleModel),
		attached: make(map[string]*item.Item),
	}, nil
}

// State returns the lifecycle state.
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Activate loads every rule model, starts listening for events, arms timer
// triggers and runs the startup rules before returning.
func (e *Engine) Activate(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateActive {
		e.mu.Unlock()
		return ErrAlreadyActive
	}
	e.state = StateActive

	if !e.opts.Enabled {
		e.mu.Unlock()
		e.logger.Info("rule engine disabled, rules will not run")
		return nil
	}

	if err := e.subscribeLocked(); err != nil {
		e.unsubscribeLocked()
		e.state = StateInactive
		e.mu.Unlock()
		return err
	}

	for _, name := range e.opts.Models.GetAllModelNamesOfType(ModelKind) {
		m := e.opts.Models.GetModel(name)
		if m == nil {
			continue
		}
		e.opts.Triggers.AddRuleModel(m)
		e.models[name] = m
	}
	for _, it := range e.opts.Items.GetItems() {
		e.attachLocked(it)
	}
	models, items := len(e.models), len(e.attached)
	e.running.Store(true)
	e.mu.Unlock()

	e.logger.Info("rule engine activated", "models", models, "items", items)

	e.armTimers()
	e.runStartupRules(ctx)
	return nil
}

// Deactivate runs the shutdown rules, cancels timers and drops every
// trigger registration and listener.
func (e *Engine) Deactivate(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateActive {
		e.mu.Unlock()
		return ErrNotActive
	}
	wasRunning := e.running.Load()
	e.mu.Unlock()

	if wasRunning {
		for _, rule := range e.opts.Triggers.GetRules(TriggerShutdown, Query{}) {
			e.run(ctx, rule, TriggerShutdown, nil)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.running.Store(false)
	e.state = StateInactive
	if !wasRunning {
		return nil
	}

	e.timerMu.Lock()
	e.timerGen.Add(1)
	e.opts.Jobs.CancelJobs(TimerOwner)
	e.timerMu.Unlock()

	e.unsubscribeLocked()
	for name := range e.attached {
		e.detachLocked(name)
	}
	e.opts.Triggers.ClearAll()
	e.models = make(map[string]*RuleModel)

	e.logger.Info("rule engine deactivated")
	return nil
}

func (e *Engine) subscribeLocked() error {
	if err := e.opts.Items.AddRegistryChangeListener(e); err != nil {
		return fmt.Errorf("subscribing to item registry: %w", err)
	}
	if err := e.opts.Models.AddModelChangeListener(e); err != nil {
		return fmt.Errorf("subscribing to model repository: %w", err)
	}
	if err := e.opts.Commands.SubscribeCommand(e); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}
	return nil
}

func (e *Engine) unsubscribeLocked() {
	e.opts.Items.RemoveRegistryChangeListener(e)
	e.opts.Models.RemoveModelChangeListener(e)
	e.opts.Commands.UnsubscribeCommand(e)
}

// ─── Item listeners ─────────────────────────────────────────────────────────

func (e *Engine) attachLocked(it *item.Item) {
	name := it.Name()
	if prev, ok := e.attached[name]; ok {
		if prev == it {
			return
		}
		prev.RemoveStateChangeListener(e)
	}
	if err := it.AddStateChangeListener(e); err != nil {
		e.logger.Error("attaching to item failed", "item", name, "error", err)
		return
	}
	e.attached[name] = it
}

func (e *Engine) detachLocked(name string) {
	if it, ok := e.attached[name]; ok {
		it.RemoveStateChangeListener(e)
		delete(e.attached, name)
	}
}

// AttachedItems returns the number of items the engine listens to.
func (e *Engine) AttachedItems() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.attached)
}

// ItemAdded attaches to the new item and runs pending startup rules.
func (e *Engine) ItemAdded(it *item.Item) {
	if !e.running.Load() {
		return
	}
	e.mu.Lock()
	e.attachLocked(it)
	e.mu.Unlock()

	e.runStartupRules(context.Background())
}

// ItemRemoved detaches from the removed item.
func (e *Engine) ItemRemoved(it *item.Item) {
	if !e.running.Load() {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if cur, ok := e.attached[it.Name()]; ok && cur == it {
		e.detachLocked(it.Name())
	}
}

// AllItemsChanged re-attaches to the current item set and runs pending
// startup rules.
func (e *Engine) AllItemsChanged(_ []string) {
	if !e.running.Load() {
		return
	}
	e.mu.Lock()
	for name := range e.attached {
		e.detachLocked(name)
	}
	for _, it := range e.opts.Items.GetItems() {
		e.attachLocked(it)
	}
	e.mu.Unlock()

	e.runStartupRules(context.Background())
}

// StateChanged runs change rules with the previous state bound.
func (e *Engine) StateChanged(it *item.Item, oldState, newState types.State) {
	if !e.running.Load() {
		return
	}
	e.fire(TriggerChange,
		Query{Item: it.Name(), OldState: oldState, NewState: newState},
		map[string]any{VarPreviousState: oldState},
	)
}

// StateUpdated runs update rules.
func (e *Engine) StateUpdated(it *item.Item, newState types.State) {
	if !e.running.Load() {
		return
	}
	e.fire(TriggerUpdate, Query{Item: it.Name(), NewState: newState}, nil)
}

// ReceiveCommand runs command rules with the command bound. Commands for
// unknown items are ignored.
func (e *Engine) ReceiveCommand(ev event.CommandEvent) error {
	if !e.running.Load() {
		return nil
	}
	if _, err := e.opts.Items.GetItem(ev.ItemName()); err != nil {
		return nil
	}
	e.fire(TriggerCommand,
		Query{Item: ev.ItemName(), Command: ev.Command()},
		map[string]any{VarReceivedCommand: ev.Command()},
	)
	return nil
}

// ─── Model changes ──────────────────────────────────────────────────────────

// ModelChanged applies an added, removed or modified rule model. Names
// without the .rules extension are ignored.
func (e *Engine) ModelChanged(name string, kind ModelEventType) {
	if !IsRuleModel(name) || !e.running.Load() {
		return
	}

	additive := false
	e.mu.Lock()
	if old, ok := e.models[name]; ok {
		e.opts.Triggers.RemoveRuleModel(old)
		delete(e.models, name)
	}
	if kind == ModelAdded || kind == ModelModified {
		if m := e.opts.Models.GetModel(name); m != nil {
			e.opts.Triggers.AddRuleModel(m)
			e.models[name] = m
			additive = true
		} else {
			e.logger.Warn("rule model vanished before it could be loaded", "model", name)
		}
	}
	e.mu.Unlock()

	e.logger.Info("rule model applied", "model", name, "change", kind)

	e.armTimers()
	if additive {
		e.runStartupRules(context.Background())
	}
}

// ─── Execution ──────────────────────────────────────────────────────────────

// runStartupRules runs every pending startup rule in turn and removes its
// startup registration whether it succeeded or not.
func (e *Engine) runStartupRules(ctx context.Context) {
	e.startupMu.Lock()
	defer e.startupMu.Unlock()

	for _, rule := range e.opts.Triggers.GetRules(TriggerStartup, Query{}) {
		if !e.running.Load() {
			return
		}
		e.run(ctx, rule, TriggerStartup, nil)
		e.opts.Triggers.RemoveRule(TriggerStartup, rule)
	}
}

// fire submits one job per matching rule.
func (e *Engine) fire(t TriggerType, q Query, vars map[string]any) {
	for _, rule := range e.opts.Triggers.GetRules(t, q) {
		rule := rule
		err := e.opts.Jobs.Submit(func(ctx context.Context) {
			e.run(ctx, rule, t, vars)
		})
		if err != nil {
			e.logger.Warn("rule execution rejected", "rule", rule.Name, "model", rule.Model, "trigger", t, "error", err)
		}
	}
}

// run executes one rule with a fresh evaluation context. Every failure is
// logged and contained here.
func (e *Engine) run(ctx context.Context, rule *Rule, t TriggerType, vars map[string]any) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.RuleTimeout)
	defer cancel()

	executionID := GenerateID()
	start := time.Now()
	outcome := outcomeSuccess

	defer func() {
		if r := recover(); r != nil {
			outcome = outcomeFailure
			e.logger.Error("rule panicked",
				"rule", rule.Name,
				"model", rule.Model,
				"trigger", t,
				"execution_id", executionID,
				"panic", r,
			)
		}
		e.metrics.record(rule, t, outcome, time.Since(start))
	}()

	ec := NewEvaluationContext(e.opts.Context.GlobalContext(rule))
	for k, v := range vars {
		ec.Set(k, v)
	}

	err := e.opts.Scripts.Execute(ctx, rule.ID(), rule.Script, ec.Vars())
	if err != nil {
		outcome = outcomeFailure
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = outcomeTimeout
		}
		e.logger.Error("rule failed",
			"rule", rule.Name,
			"model", rule.Model,
			"trigger", t,
			"execution_id", executionID,
			"error", err,
			"cause", rootCause(err),
		)
		return
	}

	e.logger.Debug("rule executed",
		"rule", rule.Name,
		"model", rule.Model,
		"trigger", t,
		"execution_id", executionID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// rootCause follows the Unwrap chain to the innermost error.
func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
