package scheduler

import "errors"

var (
	// ErrEmptyGraph is returned by Initialize when there is nothing to schedule.
	// The scheduler stays uninitialized and Initialize may be retried.
	ErrEmptyGraph = errors.New("scheduler: graph has no vertices")

	// ErrAlreadyInitialized is returned by a second Initialize call. A new
	// stage attempt needs a new Scheduler.
	ErrAlreadyInitialized = errors.New("scheduler: already initialized")
)
