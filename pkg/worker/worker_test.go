package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/visionflow/metric"
	"github.com/c360/visionflow/pkg/buffer"
)

func echo(_ context.Context, item int, params Params) (int, error) {
	if off, ok := params["offset"].(int); ok {
		return item + off, nil
	}
	return item, nil
}

func waitResult[Out any](t *testing.T, w *Worker[int, Out]) Out {
	t.Helper()
	var out Out
	require.Eventually(t, func() bool {
		var ok bool
		out, ok = w.Poll()
		return ok
	}, time.Second, 2*time.Millisecond)
	return out
}

func TestNew_NilProcessor(t *testing.T) {
	_, err := New[int, int]("nil", nil, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilProcessor)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 10, cfg.QueueSize)
	assert.Equal(t, buffer.DropNewest, cfg.Overflow)
	assert.Equal(t, 50*time.Millisecond, cfg.BlockTimeout)
	assert.Equal(t, 2*time.Second, cfg.StopTimeout)
}

func TestWorker_ProcessAndPoll(t *testing.T) {
	w, err := New("echo", echo, Params{"offset": 10}, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	_, ok := w.Poll()
	assert.False(t, ok)

	require.True(t, w.Submit(1))
	assert.Equal(t, 11, waitResult(t, w))

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Submitted)
	assert.Equal(t, int64(1), stats.Processed)
}

func TestWorker_StartIsIdempotent(t *testing.T) {
	w, err := New("idem", echo, nil, DefaultConfig())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsAlive())
}

func TestWorker_RejectNewBackpressure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueSize = 2
	w, err := New("reject", echo, nil, cfg)
	require.NoError(t, err)
	defer w.Close()

	// not started, so nothing drains the queue
	require.True(t, w.Submit(1))
	require.True(t, w.Submit(2))
	assert.False(t, w.Submit(3))
	assert.Equal(t, 2, w.QueueSize())
	assert.Equal(t, int64(1), w.Stats().Rejected)

	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, 1, waitResult(t, w))
	assert.Equal(t, 2, waitResult(t, w))
}

func TestWorker_DropOldestBackpressure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueSize = 2
	cfg.Overflow = buffer.DropOldest
	w, err := New("drop", echo, nil, cfg)
	require.NoError(t, err)
	defer w.Close()

	require.True(t, w.Submit(1))
	require.True(t, w.Submit(2))
	assert.True(t, w.Submit(3))
	assert.Equal(t, 2, w.QueueSize())
	assert.Equal(t, int64(1), w.Stats().Dropped)

	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, 2, waitResult(t, w))
	assert.Equal(t, 3, waitResult(t, w))
}

func TestWorker_BlockWithTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueSize = 1
	cfg.Overflow = buffer.Block
	w, err := New("block", echo, nil, cfg)
	require.NoError(t, err)
	defer w.Close()

	require.True(t, w.Submit(1))

	start := time.Now()
	assert.False(t, w.SubmitTimeout(2, 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestWorker_FaultIsolation(t *testing.T) {
	process := func(_ context.Context, item int, _ Params) (int, error) {
		switch item {
		case -1:
			return 0, errors.New("bad item")
		case -2:
			panic("exploded")
		}
		return item * 2, nil
	}

	w, err := New("faulty", process, nil, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	require.True(t, w.Submit(-1))
	require.True(t, w.Submit(-2))
	require.True(t, w.Submit(4))

	assert.Equal(t, 8, waitResult(t, w))
	assert.True(t, w.IsAlive())
	assert.True(t, w.IsReady())
	assert.Equal(t, int64(2), w.Stats().Failed)
}

func TestWorker_UpdateParamsAppliesToNextItem(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	process := func(_ context.Context, item int, params Params) (int, error) {
		if calls.Add(1) == 1 {
			<-release
		}
		return item + params["offset"].(int), nil
	}

	w, err := New("params", process, Params{"offset": 1}, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	require.True(t, w.Submit(100))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	w.UpdateParams(Params{"offset": 5})
	require.True(t, w.Submit(200))
	close(release)

	// the in-flight item kept its snapshot
	assert.Equal(t, 101, waitResult(t, w))
	assert.Equal(t, 205, waitResult(t, w))
	assert.Equal(t, 5, w.Params()["offset"])
}

func TestWorker_UpdateParamsBeforeStart(t *testing.T) {
	w, err := New("cold", echo, Params{"offset": 1, "keep": true}, DefaultConfig())
	require.NoError(t, err)
	defer w.Close()

	w.UpdateParams(Params{"offset": 2})
	p := w.Params()
	assert.Equal(t, 2, p["offset"])
	assert.Equal(t, true, p["keep"])

	// snapshot is a copy
	p["offset"] = 99
	assert.Equal(t, 2, w.Params()["offset"])
}

func TestWorker_IsReadyReflectsOutputSlot(t *testing.T) {
	w, err := New("slot", echo, nil, DefaultConfig())
	require.NoError(t, err)
	assert.False(t, w.IsReady(), "not alive before start")

	require.NoError(t, w.Start(context.Background()))
	defer w.Close()
	assert.True(t, w.IsReady())

	require.True(t, w.Submit(1))
	require.Eventually(t, func() bool { return !w.IsReady() }, time.Second, time.Millisecond)

	_, ok := w.Poll()
	require.True(t, ok)
	assert.True(t, w.IsReady())
}

func TestWorker_StopDiscardsQueue(t *testing.T) {
	block := make(chan struct{})
	process := func(ctx context.Context, item int, _ Params) (int, error) {
		<-block
		return item, nil
	}

	w, err := New("stop", process, nil, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.True(t, w.Submit(1))
	require.True(t, w.Submit(2))
	close(block)

	require.NoError(t, w.Stop(time.Second))
	assert.False(t, w.IsAlive())
	assert.Equal(t, 0, w.QueueSize())

	// restartable after a clean stop
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsAlive())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Start(context.Background()), ErrWorkerClosed)
}

func TestWorker_StopTimeoutForcesTermination(t *testing.T) {
	process := func(ctx context.Context, item int, _ Params) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}

	cfg := DefaultConfig()
	cfg.Isolated = true
	w, err := New("stuck", process, nil, cfg)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.True(t, w.Submit(1))
	require.Eventually(t, func() bool { return w.QueueSize() == 0 }, time.Second, time.Millisecond)

	err = w.Stop(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrStopTimeout)
	assert.False(t, w.IsAlive())
	assert.False(t, w.IsReady())
}

func TestWorker_RestartAfterStopTimeoutDiscardsStaleItem(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var inflight, maxInflight atomic.Int32

	process := func(_ context.Context, item int, _ Params) (int, error) {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			m := maxInflight.Load()
			if n <= m || maxInflight.CompareAndSwap(m, n) {
				break
			}
		}
		if item == 1 {
			started <- struct{}{}
			<-release
		}
		return item, nil
	}

	cfg := DefaultConfig()
	cfg.StopTimeout = 20 * time.Millisecond
	w, err := New("restart", process, nil, cfg)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Start(context.Background()))

	require.True(t, w.Submit(1))
	<-started
	assert.ErrorIs(t, w.Stop(10*time.Millisecond), ErrStopTimeout)

	// the abandoned loop still holds item 1
	assert.ErrorIs(t, w.Start(context.Background()), ErrStopPending)
	assert.False(t, w.IsAlive())

	close(release)
	require.Eventually(t, func() bool {
		return w.Start(context.Background()) == nil
	}, time.Second, 5*time.Millisecond)

	for i := 2; i <= 11; i++ {
		require.True(t, w.Submit(i))
		assert.Equal(t, i, waitResult(t, w))
	}

	_, ok := w.Poll()
	assert.False(t, ok)
	assert.Equal(t, int32(1), maxInflight.Load())
}

func TestWorker_IsolatedIgnoresCallerCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Isolated = true
	w, err := New("iso", echo, nil, cfg)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	require.True(t, w.Submit(7))
	assert.Equal(t, 7, waitResult(t, w))
}

func TestWorker_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	w, err := New("metered", echo, nil, DefaultConfig(), WithMetricsRegistry(registry))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	require.True(t, w.Submit(1))
	waitResult(t, w)
	require.NoError(t, w.Close())

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["visionflow_worker_items_total"])

	// queue metrics are released on close
	assert.False(t, names["visionflow_buffer_writes_total"])
}

func TestWorker_CallerCancelEndsLoop(t *testing.T) {
	w, err := New("scoped", echo, nil, DefaultConfig())
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return !w.IsAlive() }, time.Second, time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.IsAlive())
}
