package automation

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/nerrad567/gray-logic-automation/internal/types"
)

// Well-known variable names bound for the firing event.
const (
	VarReceivedCommand = "receivedCommand"
	VarPreviousState   = "previousState"
)

// EvaluationContext holds the variables visible to one rule execution.
// It is created per execution and never shared.
type EvaluationContext struct {
	vars map[string]any
}

// NewEvaluationContext layers a fresh variable set over global.
// Later Set calls never modify global.
func NewEvaluationContext(global map[string]any) *EvaluationContext {
	vars := make(map[string]any, len(global)+1)
	maps.Copy(vars, global)
	return &EvaluationContext{vars: vars}
}

// Set binds name to v.
func (c *EvaluationContext) Set(name string, v any) {
	c.vars[name] = v
}

// Get returns the value bound to name.
func (c *EvaluationContext) Get(name string) (any, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Vars returns the bindings for the script engine.
func (c *EvaluationContext) Vars() map[string]any {
	return c.vars
}

// ContextProvider supplies the global bindings visible to a rule.
type ContextProvider interface {
	GlobalContext(rule *Rule) map[string]any
}

// EventPublisher is the part of the event bus rule scripts can reach.
type EventPublisher interface {
	SendCommand(item string, command types.Command)
	PostCommand(item string, command types.Command)
	PostUpdate(item string, state types.State)
}

// ItemStates looks up current item states.
type ItemStates interface {
	GetItemState(name string) (types.State, error)
}

// DefaultContextProvider exposes the bus and item states to scripts:
//
//	sendCommand(item, command)  synchronous command
//	postCommand(item, command)  asynchronous command
//	postUpdate(item, state)     asynchronous state update
//	state(item)                 current state of item
//	log(...)                    info log line tagged with the rule name
//	ruleName                    name of the running rule
type DefaultContextProvider struct {
	bus    EventPublisher
	items  ItemStates
	logger Logger
}

// NewDefaultContextProvider creates a context provider over bus and items.
func NewDefaultContextProvider(bus EventPublisher, items ItemStates, logger Logger) *DefaultContextProvider {
	if logger == nil {
		logger = noopLogger{}
	}
	return &DefaultContextProvider{bus: bus, items: items, logger: logger}
}

// GlobalContext returns a new binding map for rule.
func (p *DefaultContextProvider) GlobalContext(rule *Rule) map[string]any {
	name := rule.Name
	return map[string]any{
		"ruleName": name,
		"sendCommand": func(args ...any) (any, error) {
			item, value, err := p.itemAndValue("sendCommand", args)
			if err != nil {
				return nil, err
			}
			p.bus.SendCommand(item, value)
			return nil, nil
		},
		"postCommand": func(args ...any) (any, error) {
			item, value, err := p.itemAndValue("postCommand", args)
			if err != nil {
				return nil, err
			}
			p.bus.PostCommand(item, value)
			return nil, nil
		},
		"postUpdate": func(args ...any) (any, error) {
			item, value, err := p.itemAndValue("postUpdate", args)
			if err != nil {
				return nil, err
			}
			p.bus.PostUpdate(item, value)
			return nil, nil
		},
		"state": func(args ...any) (any, error) {
			if len(args) != 1 {
				return nil, errors.New("state: expected 1 argument")
			}
			item, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("state: item name must be a string, got %T", args[0])
			}
			return p.items.GetItemState(item)
		},
		"log": func(args ...any) (any, error) {
			parts := make([]string, len(args))
			for i, a := range args {
				parts[i] = types.Format(a)
			}
			p.logger.Info("rule log", "rule", name, "message", strings.Join(parts, " "))
			return nil, nil
		},
	}
}

func (p *DefaultContextProvider) itemAndValue(fn string, args []any) (string, any, error) {
	if len(args) != 2 {
		return "", nil, fmt.Errorf("%s: expected 2 arguments, got %d", fn, len(args))
	}
	item, ok := args[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("%s: item name must be a string, got %T", fn, args[0])
	}
	if _, err := p.items.GetItemState(item); err != nil {
		return "", nil, fmt.Errorf("%s %q: %w", fn, item, err)
	}
	value := args[1]
	if s, ok := value.(string); ok {
		value = types.Parse(s)
	}
	return item, value, nil
}
