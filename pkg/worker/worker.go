package worker

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"dario.cat/mergo"

	"github.com/c360/visionflow/metric"
	"github.com/c360/visionflow/pkg/buffer"
)

// Params is the parameter snapshot handed to the processing function.
type Params map[string]any

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	if p == nil {
		return Params{}
	}
	return maps.Clone(p)
}

// ProcessFunc turns one input item into one output item.
type ProcessFunc[In, Out any] func(ctx context.Context, item In, params Params) (Out, error)

// Config controls queueing and shutdown behavior.
type Config struct {
	QueueSize    int
	Overflow     buffer.OverflowPolicy
	BlockTimeout time.Duration
	PollInterval time.Duration
	StopTimeout  time.Duration
	// Isolated pins the loop to its own OS thread and detaches it from the
	// caller's context.
	Isolated bool
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		QueueSize:    10,
		Overflow:     buffer.DropNewest,
		BlockTimeout: 50 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		StopTimeout:  2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = d.BlockTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = d.StopTimeout
	}
	return c
}

// Option configures optional worker dependencies.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics *metric.MetricsRegistry
}

// WithLogger sets the logger for item failures and lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRegistry exports queue and item metrics under the worker name.
func WithMetricsRegistry(registry *metric.MetricsRegistry) Option {
	return func(o *options) {
		o.metrics = registry
	}
}

type controlKind int

const (
	controlStop controlKind = iota
	controlParams
)

type control struct {
	kind   controlKind
	params Params
}

// Worker processes items one at a time on a dedicated goroutine.
type Worker[In, Out any] struct {
	name    string
	cfg     Config
	process ProcessFunc[In, Out]
	logger  *slog.Logger
	metrics *metric.Metrics

	queue   buffer.Buffer[In]
	out     chan Out
	control chan control
	wake    chan struct{}

	paramsMu sync.RWMutex
	params   Params

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	abandoned   chan struct{} // loop left running by a timed out Stop
	closed      bool
	alive       atomic.Bool

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

// New creates a stopped worker. The initial params are copied.
func New[In, Out any](
	name string, process ProcessFunc[In, Out], params Params, cfg Config, opts ...Option,
) (*Worker[In, Out], error) {
	if process == nil {
		return nil, ErrNilProcessor
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	cfg = cfg.withDefaults()

	bufOpts := []buffer.Option[In]{buffer.WithOverflowPolicy[In](cfg.Overflow)}
	if o.metrics != nil {
		bufOpts = append(bufOpts, buffer.WithMetrics[In](o.metrics, name))
	}
	queue, err := buffer.NewCircularBuffer[In](cfg.QueueSize, bufOpts...)
	if err != nil {
		return nil, fmt.Errorf("worker %s: create queue: %w", name, err)
	}

	return &Worker[In, Out]{
		name:    name,
		cfg:     cfg,
		process: process,
		logger:  o.logger.With("worker", name),
		metrics: o.metrics.CoreMetrics(),
		queue:   queue,
		out:     make(chan Out, 1),
		control: make(chan control, 16),
		wake:    make(chan struct{}, 1),
		params:  params.Clone(),
	}, nil
}

// Start launches the processing loop. Calling Start on a running worker is a
// no-op.
func (w *Worker[In, Out]) Start(ctx context.Context) error {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if w.closed {
		return ErrWorkerClosed
	}
	if w.alive.Load() {
		return nil
	}
	if w.abandoned != nil {
		select {
		case <-w.abandoned:
			w.abandoned = nil
		case <-time.After(w.cfg.StopTimeout):
			return ErrStopPending
		}
	}

	if w.cfg.Isolated {
		ctx = context.WithoutCancel(ctx)
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.alive.Store(true)

	// a stop left over from an abandoned run must not end this one
	for len(w.control) > 0 {
		if c := <-w.control; c.kind == controlParams {
			w.applyParams(c.params)
		}
	}

	go w.loop(loopCtx, w.done)
	w.logger.Debug("Worker started", "isolated", w.cfg.Isolated, "queue_size", w.cfg.QueueSize,
		"overflow", w.cfg.Overflow.String())
	return nil
}

// Submit enqueues an item following the overflow policy. Under block it waits
// up to the configured BlockTimeout.
func (w *Worker[In, Out]) Submit(item In) bool {
	return w.SubmitTimeout(item, w.cfg.BlockTimeout)
}

// SubmitTimeout enqueues an item, waiting up to timeout under the block
// policy. It reports whether the item was queued.
func (w *Worker[In, Out]) SubmitTimeout(item In, timeout time.Duration) bool {
	if err := w.queue.WriteWithTimeout(item, timeout); err != nil {
		return false
	}
	w.submitted.Add(1)
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// Poll returns the pending result, if any. It never blocks.
func (w *Worker[In, Out]) Poll() (Out, bool) {
	select {
	case out := <-w.out:
		return out, true
	default:
		var zero Out
		return zero, false
	}
}

// UpdateParams merges partial into the live parameters. The change applies
// from the next item taken off the queue.
func (w *Worker[In, Out]) UpdateParams(partial Params) {
	if len(partial) == 0 {
		return
	}
	snapshot := partial.Clone()
	if !w.alive.Load() {
		w.applyParams(snapshot)
		return
	}
	select {
	case w.control <- control{kind: controlParams, params: snapshot}:
	default:
		// control backlog: merge directly, still copied before each item
		w.applyParams(snapshot)
	}
}

func (w *Worker[In, Out]) applyParams(partial Params) {
	w.paramsMu.Lock()
	defer w.paramsMu.Unlock()
	if err := mergo.Merge(&w.params, partial, mergo.WithOverride); err != nil {
		w.logger.Warn("Parameter merge failed", "error", err)
	}
}

// Params returns a copy of the live parameters.
func (w *Worker[In, Out]) Params() Params {
	w.paramsMu.RLock()
	defer w.paramsMu.RUnlock()
	return w.params.Clone()
}

// IsAlive reports whether the loop is running.
func (w *Worker[In, Out]) IsAlive() bool {
	return w.alive.Load()
}

// IsReady reports whether the worker is alive with room in both the input
// queue and the output slot.
func (w *Worker[In, Out]) IsReady() bool {
	return w.alive.Load() && !w.queue.IsFull() && len(w.out) < cap(w.out)
}

// QueueSize returns the number of items waiting.
func (w *Worker[In, Out]) QueueSize() int {
	return w.queue.Size()
}

// Stop asks the loop to exit after the current item and waits up to timeout.
// Queued items are discarded.
func (w *Worker[In, Out]) Stop(timeout time.Duration) error {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()
	return w.stopLocked(timeout)
}

func (w *Worker[In, Out]) stopLocked(timeout time.Duration) error {
	if !w.alive.Load() || w.done == nil {
		return nil
	}

	select {
	case w.control <- control{kind: controlStop}:
	default:
		w.cancel()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case <-w.done:
	case <-timer.C:
		w.logger.Warn("Worker did not stop in time, abandoning loop", "timeout", timeout)
		w.abandoned = w.done
		err = ErrStopTimeout
	}

	w.cancel()
	w.alive.Store(false)
	w.done = nil
	w.queue.Drain()
	return err
}

// Close stops the worker with the configured StopTimeout and releases the
// queue. Safe to call more than once.
func (w *Worker[In, Out]) Close() error {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	err := w.stopLocked(w.cfg.StopTimeout)
	_ = w.queue.Close()
	return err
}

// Stats returns current worker statistics
func (w *Worker[In, Out]) Stats() Stats {
	bs := w.queue.Stats()
	return Stats{
		QueueSize:  w.cfg.QueueSize,
		QueueDepth: w.queue.Size(),
		Submitted:  w.submitted.Load(),
		Processed:  w.processed.Load(),
		Failed:     w.failed.Load(),
		Dropped:    bs.Drops(),
		Rejected:   bs.Rejects(),
	}
}

// Stats represents worker statistics
type Stats struct {
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
	Rejected   int64 `json:"rejected"`
}

func (w *Worker[In, Out]) loop(ctx context.Context, done chan struct{}) {
	if w.cfg.Isolated {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	defer func() {
		close(done)
		// exit without Stop, e.g. the caller's context ended
		w.lifecycleMu.Lock()
		if w.done == done {
			w.alive.Store(false)
			w.done = nil
			w.cancel()
		}
		w.lifecycleMu.Unlock()
	}()

	timer := time.NewTimer(w.cfg.PollInterval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil || !w.drainControl() {
			return
		}

		item, ok := w.queue.Read()
		if !ok {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.cfg.PollInterval)

			select {
			case <-ctx.Done():
				return
			case c := <-w.control:
				if !w.handleControl(c) {
					return
				}
			case <-w.wake:
			case <-timer.C:
			}
			continue
		}

		out, ok := w.run(ctx, item)
		if ctx.Err() != nil {
			// stopped mid-item: the result is discarded
			return
		}
		if !ok {
			continue
		}
		if !w.deliver(ctx, out) {
			return
		}
	}
}

// drainControl applies every pending command. It returns false on stop.
func (w *Worker[In, Out]) drainControl() bool {
	for {
		select {
		case c := <-w.control:
			if !w.handleControl(c) {
				return false
			}
		default:
			return true
		}
	}
}

func (w *Worker[In, Out]) handleControl(c control) bool {
	switch c.kind {
	case controlStop:
		return false
	case controlParams:
		w.applyParams(c.params)
	}
	return true
}

// run calls the processing function, converting a panic into a failure.
func (w *Worker[In, Out]) run(ctx context.Context, item In) (out Out, ok bool) {
	params := w.Params()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			w.failed.Add(1)
			w.metrics.RecordWorkerItem(w.name, "panic", time.Since(start))
			w.logger.Warn("Worker item panicked", "panic", fmt.Sprint(r))
			ok = false
		}
	}()

	out, err := w.process(ctx, item, params)
	if err != nil {
		w.failed.Add(1)
		w.metrics.RecordWorkerItem(w.name, "error", time.Since(start))
		w.logger.Warn("Worker item failed", "error", err)
		return out, false
	}

	w.processed.Add(1)
	w.metrics.RecordWorkerItem(w.name, "success", time.Since(start))
	return out, true
}

// deliver places a result in the output slot, waiting while it is occupied.
// It returns false when the loop should exit.
func (w *Worker[In, Out]) deliver(ctx context.Context, out Out) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		select {
		case w.out <- out:
			return true
		case <-ctx.Done():
			return false
		case c := <-w.control:
			if !w.handleControl(c) {
				return false
			}
		}
	}
}
