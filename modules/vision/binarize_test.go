package vision

import (
	"encoding/json"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/metric"
	"github.com/c360/visionflow/pkg/worker"
	"github.com/c360/visionflow/surface"
	"github.com/c360/visionflow/testutil"
)

func newRegistry(t *testing.T) *component.Registry {
	t.Helper()
	reg := component.NewRegistry(
		component.WithSurface(surface.NewMemory()),
		component.WithMetrics(metric.NewMetricsRegistry()),
		component.WithWorkerDefaults(worker.Config{PollInterval: time.Millisecond}),
	)
	require.NoError(t, Register(reg))
	require.NoError(t, testutil.RegisterRecorder(reg, "test.sink", component.NoOutputs, component.AllPortTypes()...))
	t.Cleanup(reg.Clear)
	return reg
}

func newBinarize(t *testing.T, reg *component.Registry, raw string) *BinarizeModule {
	t.Helper()
	var cfg json.RawMessage
	if raw != "" {
		cfg = json.RawMessage(raw)
	}
	m, err := reg.CreateModule(BinarizeKind, cfg, component.Placement{})
	require.NoError(t, err)
	return m.(*BinarizeModule)
}

func TestBinarizeModule_EmitsAllOutputs(t *testing.T) {
	reg := newRegistry(t)
	bin := newBinarize(t, reg, "")
	m, err := reg.CreateModule("test.sink", nil, component.Placement{})
	require.NoError(t, err)
	rec := m.(*testutil.Recorder)

	for _, port := range []string{"Pair", "Mask", "Frame"} {
		require.NoError(t, bin.ConnectE(rec, component.PortName(port)))
	}

	require.True(t, bin.IsReady())
	frame := darkSquare()
	require.True(t, bin.Input(component.Message{Payload: component.FramePayload{Image: frame}, DataType: component.Frame}))
	require.True(t, rec.WaitForMessages(3, 2*time.Second))

	msgs := rec.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, component.Frame, msgs[0].DataType)
	assert.Equal(t, component.Mask, msgs[1].DataType)
	assert.Equal(t, component.FrameMaskPair, msgs[2].DataType)

	assert.Equal(t, image.Image(frame), msgs[0].Payload.(component.FramePayload).Image)
	mask := msgs[1].Payload.(component.MaskPayload).Mask
	require.NotNil(t, mask)
	assert.Equal(t, uint8(255), mask.GrayAt(20, 20).Y)
	pair := msgs[2].Payload.(component.FrameMaskPairPayload)
	assert.Same(t, mask, pair.Mask)

	assert.Equal(t, int64(1), bin.Stats().Processed)
}

func TestBinarizeModule_RefusesOtherInput(t *testing.T) {
	reg := newRegistry(t)
	bin := newBinarize(t, reg, "")

	assert.False(t, bin.Input(component.Message{Payload: component.TextPayload{Text: "x"}}))
	assert.False(t, bin.Input(component.Message{Payload: component.FramePayload{}}))
}

func TestBinarizeModule_Params(t *testing.T) {
	reg := newRegistry(t)
	bin := newBinarize(t, reg, `{"blur":5,"block_size":11,"bin_thresh":3,"erosion":1}`)
	assert.Equal(t, ThresholdParams{Blur: 5, BlockSize: 11, Offset: 3, Closing: 1}, bin.Params())

	bin.SetParams(ThresholdParams{Blur: 2, BlockSize: 30, Offset: 7, Closing: 0})
	assert.Eventually(t, func() bool {
		return bin.Params() == ThresholdParams{Blur: 3, BlockSize: 31, Offset: 7, Closing: 0}
	}, 2*time.Second, time.Millisecond)

	params := bin.Serialize().Params
	assert.Equal(t, 31, params["block_size"])
	assert.Equal(t, 7, params["bin_thresh"])
}

func TestBinarizeModule_SchemaBounds(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.CreateModule(BinarizeKind, json.RawMessage(`{"block_size":99}`), component.Placement{})
	assert.Error(t, err)
}

func TestBinarizeModule_CloseStopsWorker(t *testing.T) {
	reg := newRegistry(t)
	bin := newBinarize(t, reg, "")
	require.True(t, bin.IsReady())

	require.NoError(t, bin.Close())
	assert.False(t, bin.IsReady())
	assert.Equal(t, 0, reg.Len())
	assert.NoError(t, bin.Close())
}
