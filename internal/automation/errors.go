package automation

import "errors"

// Domain errors for the automation package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, automation.ErrModelNotFound) {
//	    // handle not found case
//	}
var (
	// ErrModelNotFound is returned when a rule model does not exist.
	ErrModelNotFound = errors.New("automation: model not found")

	// ErrInvalidModel is returned when a rule model fails to parse or validate.
	ErrInvalidModel = errors.New("automation: invalid model")

	// ErrInvalidModelName is returned when a model name lacks the .rules extension.
	ErrInvalidModelName = errors.New("automation: invalid model name")

	// ErrInvalidRule is returned when a rule is invalid.
	ErrInvalidRule = errors.New("automation: invalid rule")

	// ErrDuplicateRule is returned when a model defines two rules with one name.
	ErrDuplicateRule = errors.New("automation: duplicate rule name")

	// ErrInvalidTrigger is returned when a trigger is invalid.
	ErrInvalidTrigger = errors.New("automation: invalid trigger")

	// ErrAlreadyActive is returned when activating an active engine.
	ErrAlreadyActive = errors.New("automation: engine already active")

	// ErrNotActive is returned when deactivating an inactive engine.
	ErrNotActive = errors.New("automation: engine not active")

	// ErrMissingDependency is returned by NewEngine when a collaborator is nil.
	ErrMissingDependency = errors.New("automation: missing dependency")
)
