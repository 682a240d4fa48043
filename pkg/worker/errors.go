package worker

import "errors"

var (
	// ErrNilProcessor indicates the pool was created without a processor.
	ErrNilProcessor = errors.New("worker pool processor cannot be nil")

	// ErrPoolNotStarted indicates work was submitted before Start.
	ErrPoolNotStarted = errors.New("worker pool not started")

	// ErrPoolAlreadyStarted indicates a second Start call.
	ErrPoolAlreadyStarted = errors.New("worker pool already started")

	// ErrPoolStopped indicates work was submitted after Stop or Drain.
	ErrPoolStopped = errors.New("worker pool stopped")

	// ErrQueueFull indicates the work queue is saturated.
	ErrQueueFull = errors.New("worker pool queue full")

	// ErrStopTimeout indicates workers did not finish within the timeout.
	ErrStopTimeout = errors.New("worker pool stop timeout")
)
