package buffer

import (
	"sync"
	"time"

	"github.com/c360/visionflow/errors"
)

type circularBuffer[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	stats    *Statistics
	metrics  *bufferMetrics
	opts     *bufferOptions[T]

	notFull *sync.Cond
	closed  bool
}

func newCircularBuffer[T any](capacity int, opts *bufferOptions[T]) (*circularBuffer[T], error) {
	if capacity <= 0 {
		capacity = 1
	}

	var metrics *bufferMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newCircularBuffer", "metrics registration")
		}
	}

	cb := &circularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		metrics:  metrics,
		opts:     opts,
	}
	cb.notFull = sync.NewCond(&cb.mu)
	return cb, nil
}

func (cb *circularBuffer[T]) Write(item T) error {
	return cb.write(item, -1)
}

func (cb *circularBuffer[T]) WriteWithTimeout(item T, timeout time.Duration) error {
	if timeout < 0 {
		timeout = 0
	}
	return cb.write(item, timeout)
}

// write applies the overflow policy. A negative timeout means wait forever.
func (cb *circularBuffer[T]) write(item T, timeout time.Duration) error {
	var dropped []T
	defer func() {
		if cb.opts.dropCallback != nil {
			for _, d := range dropped {
				cb.opts.dropCallback(d)
			}
		}
	}()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.closed {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "Write", "buffer closed")
	}

	if cb.size == cb.capacity {
		cb.stats.overflow()
		cb.metrics.recordOverflow()

		switch cb.opts.overflowPolicy {
		case DropNewest:
			cb.stats.reject()
			cb.metrics.recordDrop()
			dropped = append(dropped, item)
			return ErrFull

		case DropOldest:
			dropped = append(dropped, cb.pop())
			cb.stats.drop()
			cb.metrics.recordDrop()

		case Block:
			if err := cb.waitForSpace(timeout); err != nil {
				return err
			}
		}
	}

	cb.items[cb.head] = item
	cb.head = (cb.head + 1) % cb.capacity
	cb.size++

	cb.stats.write(cb.size)
	cb.metrics.recordSize(cb.size, cb.capacity, true)
	return nil
}

// waitForSpace must be called with mu held.
func (cb *circularBuffer[T]) waitForSpace(timeout time.Duration) error {
	var expired bool
	if timeout >= 0 {
		timer := time.AfterFunc(timeout, func() {
			cb.mu.Lock()
			expired = true
			cb.mu.Unlock()
			cb.notFull.Broadcast()
		})
		defer timer.Stop()
	}

	for cb.size == cb.capacity && !cb.closed {
		if expired {
			cb.stats.reject()
			return ErrFull
		}
		cb.notFull.Wait()
	}

	if cb.closed {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "Write",
			"buffer closed during blocking wait")
	}
	return nil
}

// pop must be called with mu held and size > 0.
func (cb *circularBuffer[T]) pop() T {
	var zero T
	item := cb.items[cb.tail]
	cb.items[cb.tail] = zero
	cb.tail = (cb.tail + 1) % cb.capacity
	cb.size--
	return item
}

func (cb *circularBuffer[T]) Read() (T, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.size == 0 {
		var zero T
		return zero, false
	}

	item := cb.pop()
	cb.stats.read(cb.size)
	cb.metrics.recordSize(cb.size, cb.capacity, false)
	cb.notFull.Signal()
	return item, true
}

func (cb *circularBuffer[T]) Drain() []T {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.size == 0 {
		return nil
	}

	out := make([]T, 0, cb.size)
	for cb.size > 0 {
		out = append(out, cb.pop())
		cb.stats.read(cb.size)
	}
	cb.head, cb.tail = 0, 0
	cb.metrics.recordSize(0, cb.capacity, false)
	cb.notFull.Broadcast()
	return out
}

func (cb *circularBuffer[T]) Size() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.size
}

func (cb *circularBuffer[T]) Capacity() int {
	return cb.capacity
}

func (cb *circularBuffer[T]) IsFull() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.size == cb.capacity
}

func (cb *circularBuffer[T]) IsEmpty() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.size == 0
}

func (cb *circularBuffer[T]) Stats() *Statistics {
	return cb.stats
}

func (cb *circularBuffer[T]) Close() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.closed {
		return nil
	}
	cb.closed = true
	cb.notFull.Broadcast()

	if cb.metrics != nil {
		cb.metrics.unregister()
	}
	return nil
}
