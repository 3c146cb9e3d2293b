// Package buffer provides a generic, bounded, thread-safe FIFO used as the
// input queue of background workers.
//
// When the buffer is full the configured OverflowPolicy decides what happens
// to a new item: it is refused (DropNewest), it evicts the oldest queued item
// (DropOldest), or the writer waits for space (Block). Statistics are always
// collected; Prometheus export is opt-in through WithMetrics.
package buffer

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrFull is returned by Write when a DropNewest buffer refuses an item, and
// by WriteWithTimeout when a Block buffer stays full past the timeout.
var ErrFull = stderrors.New("buffer full")

// Buffer is a bounded FIFO of T.
type Buffer[T any] interface {
	// Write adds an item, applying the overflow policy when full. A Block
	// buffer waits indefinitely.
	Write(item T) error

	// WriteWithTimeout is Write with an upper bound on the wait of a Block
	// buffer. Other policies never wait.
	WriteWithTimeout(item T, timeout time.Duration) error

	// Read removes the oldest item. The bool is false when empty.
	Read() (T, bool)

	// Drain removes and returns every queued item.
	Drain() []T

	Size() int
	Capacity() int
	IsFull() bool
	IsEmpty() bool

	// Stats returns the live statistics of the buffer.
	Stats() *Statistics

	// Close wakes blocked writers. Later writes fail.
	Close() error
}

// OverflowPolicy defines how the buffer behaves when it reaches capacity.
type OverflowPolicy int

const (
	// DropNewest refuses the incoming item.
	DropNewest OverflowPolicy = iota

	// DropOldest evicts the oldest queued item to admit the new one.
	DropOldest

	// Block waits for space.
	Block
)

// String returns the configuration spelling of the policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropNewest:
		return "drop_new"
	case DropOldest:
		return "drop_oldest"
	case Block:
		return "block"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a configuration string to an OverflowPolicy. The empty
// string selects DropNewest.
func ParsePolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop_new", "drop_newest", "reject":
		return DropNewest, nil
	case "drop_oldest":
		return DropOldest, nil
	case "block":
		return Block, nil
	default:
		return DropNewest, fmt.Errorf("unknown overflow policy %q", s)
	}
}

// DropCallback is called, outside the buffer lock, with every item the buffer
// discards: refused newcomers and evicted old items alike.
type DropCallback[T any] func(item T)

// NewCircularBuffer creates a buffer holding at most capacity items. A
// capacity below one is raised to one.
func NewCircularBuffer[T any](capacity int, options ...Option[T]) (Buffer[T], error) {
	opts := applyOptions(options...)
	return newCircularBuffer(capacity, opts)
}
