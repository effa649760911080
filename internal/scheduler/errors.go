package scheduler

import "errors"

var (
	// ErrNotActive is returned when a job is submitted before Activate or
	// after Deactivate.
	ErrNotActive = errors.New("scheduler: not active")

	// ErrAlreadyActive is returned by Activate when the pools are running.
	ErrAlreadyActive = errors.New("scheduler: already active")

	// ErrInvalidInterval is returned for a non-positive repeat interval.
	ErrInvalidInterval = errors.New("scheduler: invalid interval")

	// ErrNilJob is returned when a nil job is submitted.
	ErrNilJob = errors.New("scheduler: nil job")
)
