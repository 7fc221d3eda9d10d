package engine

import (
	"errors"

	"grapetimer/pkg/schederr"
)

var (
	// ErrStopped is returned by Spawn once the pool has been stopped.
	ErrStopped = schederr.New(schederr.KindAllocTicker, "scheduling pool stopped")

	// ErrTaskNotFound is returned by StopTask for an id with no live loop.
	ErrTaskNotFound = schederr.New(schederr.KindOther, "task not found")

	// ErrInvalidWorkers is returned by Rebuild for a non-positive worker count.
	ErrInvalidWorkers = errors.New("worker count must be positive")

	// ErrNilTask is returned by Spawn for a nil task.
	ErrNilTask = errors.New("task is nil")

	errNoCadence = schederr.New(schederr.KindBadFormat, "task has neither cadence nor positive interval")
)
