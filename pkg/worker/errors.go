package worker

import "errors"

// Sentinel errors for worker operations
var (
	// ErrNilProcessor indicates a nil processing function was provided
	ErrNilProcessor = errors.New("processor function cannot be nil")

	// ErrWorkerClosed indicates the worker has been closed
	ErrWorkerClosed = errors.New("worker closed")

	// ErrStopTimeout indicates the loop didn't exit within the timeout and was abandoned
	ErrStopTimeout = errors.New("timeout waiting for worker to stop")

	// ErrStopPending indicates a loop abandoned by a timed out stop is still running
	ErrStopPending = errors.New("previous worker loop still running")
)
