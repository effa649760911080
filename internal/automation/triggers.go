package automation

import (
	"sync"

	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// Query carries the event values a trigger is matched against.
type Query struct {
	Item     string
	OldState types.State
	NewState types.State
	Command  types.Command
}

type registration struct {
	rule    *Rule
	trigger Trigger
}

// TriggerManager indexes rules by trigger type and answers which rules
// match an event.
//
// A model is added or removed under a single write lock, so a concurrent
// GetRules never observes a model half registered.
type TriggerManager struct {
	mu     sync.RWMutex
	byType map[TriggerType][]registration
	models map[string]*RuleModel
}

// NewTriggerManager creates an empty trigger manager.
func NewTriggerManager() *TriggerManager {
	return &TriggerManager{
		byType: make(map[TriggerType][]registration),
		models: make(map[string]*RuleModel),
	}
}

// AddRuleModel registers every trigger of every rule in m. A model already
// registered under the same name is replaced.
func (tm *TriggerManager) AddRuleModel(m *RuleModel) {
	if m == nil {
		return
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, ok := tm.models[m.Name]; ok {
		tm.removeModelLocked(m.Name)
	}
	tm.models[m.Name] = m
	for _, r := range m.Rules {
		for _, t := range r.Triggers {
			tm.byType[t.Type] = append(tm.byType[t.Type], registration{rule: r, trigger: t})
		}
	}
}

// RemoveRuleModel unregisters every rule loaded from the model named m.Name.
func (tm *TriggerManager) RemoveRuleModel(m *RuleModel) {
	if m == nil {
		return
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.removeModelLocked(m.Name)
}

func (tm *TriggerManager) removeModelLocked(name string) {
	delete(tm.models, name)
	for t, regs := range tm.byType {
		tm.byType[t] = filter(regs, func(reg registration) bool {
			return reg.rule.Model != name
		})
	}
}

// RemoveRule unregisters rule from trigger type t only. Other trigger types
// of the rule stay registered.
func (tm *TriggerManager) RemoveRule(t TriggerType, rule *Rule) {
	if rule == nil {
		return
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	id := rule.ID()
	tm.byType[t] = filter(tm.byType[t], func(reg registration) bool {
		return reg.rule.ID() != id
	})
}

// GetRules returns the rules with a trigger of type t matching q, in
// registration order and without duplicates.
func (tm *TriggerManager) GetRules(t TriggerType, q Query) []*Rule {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	var (
		rules []*Rule
		seen  = make(map[*Rule]struct{})
	)
	for _, reg := range tm.byType[t] {
		if _, dup := seen[reg.rule]; dup {
			continue
		}
		if !matches(reg.trigger, q) {
			continue
		}
		seen[reg.rule] = struct{}{}
		rules = append(rules, reg.rule)
	}
	return rules
}

// ClearAll drops every registration.
func (tm *TriggerManager) ClearAll() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.byType = make(map[TriggerType][]registration)
	tm.models = make(map[string]*RuleModel)
}

// Count returns the number of registrations for trigger type t.
func (tm *TriggerManager) Count(t TriggerType) int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.byType[t])
}

func matches(t Trigger, q Query) bool {
	switch t.Type {
	case TriggerChange:
		return t.Item == q.Item && valueMatches(t.From, q.OldState) && valueMatches(t.To, q.NewState)
	case TriggerUpdate:
		return t.Item == q.Item && valueMatches(t.State, q.NewState)
	case TriggerCommand:
		return t.Item == q.Item && valueMatches(t.Command, q.Command)
	case TriggerStartup, TriggerShutdown, TriggerTimer:
		return true
	default:
		return false
	}
}

// valueMatches compares an optional trigger value with an event value.
func valueMatches(want string, got any) bool {
	if want == "" {
		return true
	}
	return types.Equal(types.Parse(want), got) || want == types.Format(got)
}

func filter(regs []registration, keep func(registration) bool) []registration {
	out := regs[:0:0]
	for _, reg := range regs {
		if keep(reg) {
			out = append(out, reg)
		}
	}
	return out
}
