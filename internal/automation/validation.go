package automation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Validation constants.
const (
	maxModelNameLength = 128
	maxNameLength      = 100
	maxDescriptionLen  = 500
	maxRules           = 200
	maxTriggers        = 20
	maxScriptLength    = 64 * 1024
)

// cronParser accepts standard five-field cron expressions and descriptors
// such as @hourly.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Pre-computed validation set for O(1) trigger type lookups.
var validTriggerTypes map[TriggerType]struct{}

func init() {
	validTriggerTypes = make(map[TriggerType]struct{}, len(AllTriggerTypes()))
	for _, t := range AllTriggerTypes() {
		validTriggerTypes[t] = struct{}{}
	}
}

// ValidateModel performs comprehensive validation on a rule model.
// Returns an error describing the first validation failure found.
func ValidateModel(m *RuleModel) error {
	if m == nil {
		return ErrInvalidModel
	}
	if err := ValidateModelName(m.Name); err != nil {
		return err
	}
	if len(m.Rules) > maxRules {
		return fmt.Errorf("%w: exceeds maximum of %d rules", ErrInvalidModel, maxRules)
	}

	seen := make(map[string]struct{}, len(m.Rules))
	for i, r := range m.Rules {
		if err := ValidateRule(r); err != nil {
			return fmt.Errorf("rule[%d]: %w", i, err)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateRule, r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// ValidateModelName checks that name is a rule model name.
func ValidateModelName(name string) error {
	if !IsRuleModel(name) {
		return fmt.Errorf("%w: %q must end with %s", ErrInvalidModelName, name, modelExtension)
	}
	if len(name) > maxModelNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidModelName, maxModelNameLength)
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: %q must not contain path separators", ErrInvalidModelName, name)
	}
	return nil
}

// ValidateRule checks a single rule.
func ValidateRule(r *Rule) error {
	if r == nil {
		return ErrInvalidRule
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidRule)
	}
	if len(r.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidRule, maxNameLength)
	}
	if len(r.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidRule, maxDescriptionLen)
	}
	if strings.TrimSpace(r.Script) == "" {
		return fmt.Errorf("%w: %q has no script", ErrInvalidRule, r.Name)
	}
	if len(r.Script) > maxScriptLength {
		return fmt.Errorf("%w: %q script exceeds %d bytes", ErrInvalidRule, r.Name, maxScriptLength)
	}
	if len(r.Triggers) == 0 {
		return fmt.Errorf("%w: %q has no triggers", ErrInvalidRule, r.Name)
	}
	if len(r.Triggers) > maxTriggers {
		return fmt.Errorf("%w: %q exceeds %d triggers", ErrInvalidRule, r.Name, maxTriggers)
	}
	for i, t := range r.Triggers {
		if err := ValidateTrigger(t); err != nil {
			return fmt.Errorf("%q trigger[%d]: %w", r.Name, i, err)
		}
	}
	return nil
}

// ValidateTrigger checks a single trigger specification.
func ValidateTrigger(t Trigger) error {
	if _, ok := validTriggerTypes[t.Type]; !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTrigger, t.Type)
	}

	switch t.Type {
	case TriggerChange, TriggerUpdate, TriggerCommand:
		if t.Item == "" {
			return fmt.Errorf("%w: %s trigger requires an item", ErrInvalidTrigger, t.Type)
		}
	case TriggerTimer:
		if t.Cron == "" {
			return fmt.Errorf("%w: timer trigger requires a cron expression", ErrInvalidTrigger)
		}
		if _, err := cronParser.Parse(t.Cron); err != nil {
			return fmt.Errorf("%w: cron %q: %w", ErrInvalidTrigger, t.Cron, err)
		}
	case TriggerStartup, TriggerShutdown:
	}

	if t.Type != TriggerChange && (t.From != "" || t.To != "") {
		return fmt.Errorf("%w: from/to only apply to change triggers", ErrInvalidTrigger)
	}
	if t.Type != TriggerUpdate && t.State != "" {
		return fmt.Errorf("%w: state only applies to update triggers", ErrInvalidTrigger)
	}
	if t.Type != TriggerCommand && t.Command != "" {
		return fmt.Errorf("%w: command only applies to command triggers", ErrInvalidTrigger)
	}
	if t.Type != TriggerTimer && t.Cron != "" {
		return fmt.Errorf("%w: cron only applies to timer triggers", ErrInvalidTrigger)
	}
	return nil
}

// GenerateID creates a new UUID for a rule execution.
func GenerateID() string {
	return uuid.New().String()
}
