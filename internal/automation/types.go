package automation

import "strings"

// ModelKind is the model type handled by the rule engine. Model names
// carry it as their extension, for example "lighting.rules".
const ModelKind = "rules"

// modelExtension is the file extension of rule models.
const modelExtension = "." + ModelKind

// IsRuleModel reports whether name refers to a rule model.
func IsRuleModel(name string) bool {
	return strings.HasSuffix(name, modelExtension) && len(name) > len(modelExtension)
}

// TriggerType is the category of condition under which a rule runs.
type TriggerType string

// Trigger types.
const (
	// TriggerStartup fires once per activation, and again whenever new
	// items or models appear while the rule is still pending.
	TriggerStartup TriggerType = "startup"

	// TriggerShutdown fires when the engine is deactivated.
	TriggerShutdown TriggerType = "shutdown"

	// TriggerChange fires when an item's state changes to a different value.
	TriggerChange TriggerType = "change"

	// TriggerUpdate fires on every state update, changed or not.
	TriggerUpdate TriggerType = "update"

	// TriggerCommand fires when an item receives a command.
	TriggerCommand TriggerType = "command"

	// TriggerTimer fires on a cron schedule.
	TriggerTimer TriggerType = "timer"
)

// AllTriggerTypes returns all valid trigger types.
func AllTriggerTypes() []TriggerType {
	return []TriggerType{
		TriggerStartup, TriggerShutdown, TriggerChange,
		TriggerUpdate, TriggerCommand, TriggerTimer,
	}
}

// Trigger is a single trigger specification of a rule.
//
// Optional value fields (From, To, State, Command) are compared with the
// formatted item value, so "ON" matches the switch state ON and "21.5"
// matches the number 21.5. An empty field matches anything.
type Trigger struct {
	Type    TriggerType `yaml:"type" json:"type"`
	Item    string      `yaml:"item,omitempty" json:"item,omitempty"`
	From    string      `yaml:"from,omitempty" json:"from,omitempty"`
	To      string      `yaml:"to,omitempty" json:"to,omitempty"`
	State   string      `yaml:"state,omitempty" json:"state,omitempty"`
	Command string      `yaml:"command,omitempty" json:"command,omitempty"`
	Cron    string      `yaml:"cron,omitempty" json:"cron,omitempty"`
}

// Rule is a named script with the triggers that run it.
type Rule struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Triggers    []Trigger `yaml:"triggers" json:"triggers"`
	Script      string    `yaml:"script" json:"script"`

	// Model is the name of the model the rule was loaded from.
	Model string `yaml:"-" json:"model"`
}

// ID returns the rule's identity, unique across models.
func (r *Rule) ID() string {
	return r.Model + "/" + r.Name
}

// HasTrigger reports whether the rule registers under t.
func (r *Rule) HasTrigger(t TriggerType) bool {
	for _, tr := range r.Triggers {
		if tr.Type == t {
			return true
		}
	}
	return false
}

// DeepCopy creates an independent copy of the rule.
func (r *Rule) DeepCopy() *Rule {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Triggers != nil {
		cp.Triggers = make([]Trigger, len(r.Triggers))
		copy(cp.Triggers, r.Triggers)
	}
	return &cp
}

// RuleModel is a named collection of rules loaded from one source.
type RuleModel struct {
	Name  string  `yaml:"-" json:"name"`
	Rules []*Rule `yaml:"rules" json:"rules"`
}

// DeepCopy creates an independent copy of the model.
func (m *RuleModel) DeepCopy() *RuleModel {
	if m == nil {
		return nil
	}
	cp := &RuleModel{Name: m.Name}
	if m.Rules != nil {
		cp.Rules = make([]*Rule, len(m.Rules))
		for i, r := range m.Rules {
			cp.Rules[i] = r.DeepCopy()
		}
	}
	return cp
}

// ModelEventType is the kind of change reported for a model.
type ModelEventType string

// Model change kinds.
const (
	ModelAdded    ModelEventType = "added"
	ModelRemoved  ModelEventType = "removed"
	ModelModified ModelEventType = "modified"
)

// ModelChangeListener is notified when a model is added, removed or modified.
type ModelChangeListener interface {
	ModelChanged(name string, kind ModelEventType)
}
