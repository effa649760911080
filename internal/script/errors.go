package script

import (
	"errors"
	"fmt"
)

// ErrCompile is returned when a script does not parse.
var ErrCompile = errors.New("script: compile error")

// ExecutionError reports a script that failed while running.
type ExecutionError struct {
	// Script is the name the script was executed under.
	Script string

	// Cause is the underlying failure: a Lua runtime error, an error
	// returned by a bound Go function, or the context error on timeout.
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("script %q failed: %v", e.Script, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}
