package vision

import (
	"context"
	"encoding/json"
	"image"
	"reflect"
	"sync"
	"time"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/config"
	"github.com/c360/visionflow/errors"
	"github.com/c360/visionflow/pkg/worker"
)

// BinarizeKind is the kind id of Binarize
const BinarizeKind = "computer_vision.binarize"

// BinarizeConfig is the persisted configuration of BinarizeModule
type BinarizeConfig struct {
	Label     string `json:"label" schema:"type:string,description:Window label,category:basic"`
	Blur      int    `json:"blur" schema:"type:int,description:Blur size,min:1,max:25,default:3,category:basic"`
	BlockSize int    `json:"block_size" schema:"type:int,description:Adaptive block size,min:3,max:51,default:25,category:basic"`
	BinThresh int    `json:"bin_thresh" schema:"type:int,description:Offset below the local mean,min:0,max:50,default:15,category:basic"`
	Erosion   int    `json:"erosion" schema:"type:int,description:Closing passes,min:0,max:5,default:0"`
}

func (c BinarizeConfig) params() ThresholdParams {
	return ThresholdParams{Blur: c.Blur, BlockSize: c.BlockSize, Offset: c.BinThresh, Closing: c.Erosion}.Normalize()
}

// Result is one processed frame
type Result struct {
	Frame image.Image
	Mask  *image.Gray
}

// BinarizeModule thresholds incoming frames on a worker and emits the frame,
// its mask and the pair.
type BinarizeModule struct {
	*component.Base

	worker       *worker.Worker[image.Image, Result]
	pollInterval time.Duration

	monitorMu sync.Mutex
	stop      chan struct{}
	done      chan struct{}
}

var binarizeOutputs = component.Outputs{
	{Name: "Frame", Type: component.Frame},
	{Name: "Mask", Type: component.Mask},
	{Name: "Pair", Type: component.FrameMaskPair},
}

// NewBinarize is the factory for BinarizeKind
func NewBinarize(raw json.RawMessage, deps component.Dependencies) (component.Module, error) {
	d := DefaultThresholdParams()
	cfg := BinarizeConfig{Blur: d.Blur, BlockSize: d.BlockSize, BinThresh: d.Offset, Erosion: d.Closing}
	if err := component.SafeUnmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	m := &BinarizeModule{pollInterval: deps.Worker.PollInterval}
	if m.pollInterval <= 0 {
		m.pollInterval = worker.DefaultConfig().PollInterval
	}

	b, err := component.NewBase(component.BaseConfig{
		Kind:        BinarizeKind,
		DisplayName: "Binarize",
		Label:       cfg.Label,
		Outputs:     binarizeOutputs,
		Accepts:     []component.PortType{component.Frame},
		Persist: func() map[string]any {
			p := m.Params()
			return map[string]any{
				"blur": p.Blur, "block_size": p.BlockSize, "bin_thresh": p.Offset, "erosion": p.Closing,
			}
		},
		Readiness: component.ReadinessFunc(func() bool { return m.worker.IsReady() }),
	}, deps)
	if err != nil {
		return nil, err
	}

	w, err := worker.New("binarize_"+b.ID(), processFrame, toWorkerParams(cfg.params()), deps.Worker,
		worker.WithLogger(b.Logger()), worker.WithMetricsRegistry(deps.MetricsRegistry))
	if err != nil {
		_ = b.Close()
		return nil, errors.Wrap(err, "Binarize", "New", "worker creation")
	}
	m.worker = w
	m.Base = b

	for _, name := range []string{"blur", "block_size", "bin_thresh", "erosion"} {
		if _, err := b.AddElement(name); err != nil {
			_ = w.Close()
			_ = b.Close()
			return nil, err
		}
	}
	b.OnClose(w.Close)
	b.OnClose(m.stopMonitor)
	return m, nil
}

// Start launches the worker and the monitor that emits its results
func (m *BinarizeModule) Start(ctx context.Context) error {
	if err := m.worker.Start(ctx); err != nil {
		return errors.Wrap(err, "Binarize", "Start", "worker start")
	}

	m.monitorMu.Lock()
	defer m.monitorMu.Unlock()
	if m.done != nil {
		return nil
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.monitor(ctx, m.stop, m.done)
	return nil
}

func (m *BinarizeModule) monitor(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			for {
				res, ok := m.worker.Poll()
				if !ok {
					break
				}
				m.EmitEach(map[string]component.Payload{
					"Frame": component.FramePayload{Image: res.Frame},
					"Mask":  component.MaskPayload{Mask: res.Mask},
					"Pair":  component.FrameMaskPairPayload{Frame: res.Frame, Mask: res.Mask},
				})
			}
		}
	}
}

func (m *BinarizeModule) stopMonitor() error {
	m.monitorMu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.monitorMu.Unlock()

	if done == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

// Input queues a frame. It reports false when the frame is missing or the
// worker refused it.
func (m *BinarizeModule) Input(msg component.Message) bool {
	p, ok := msg.Payload.(component.FramePayload)
	if !ok {
		return m.Base.Input(msg)
	}
	if p.Image == nil {
		return false
	}
	return m.worker.Submit(p.Image)
}

// SetParams changes the thresholding from the next frame on
func (m *BinarizeModule) SetParams(p ThresholdParams) {
	m.worker.UpdateParams(toWorkerParams(p.Normalize()))
}

// Params returns the live thresholding parameters
func (m *BinarizeModule) Params() ThresholdParams {
	return fromWorkerParams(m.worker.Params())
}

// Stats returns the worker statistics
func (m *BinarizeModule) Stats() worker.Stats { return m.worker.Stats() }

func processFrame(_ context.Context, frame image.Image, params worker.Params) (Result, error) {
	return Result{Frame: frame, Mask: Binarize(frame, fromWorkerParams(params))}, nil
}

func toWorkerParams(p ThresholdParams) worker.Params {
	return worker.Params{"blur": p.Blur, "block_size": p.BlockSize, "bin_thresh": p.Offset, "erosion": p.Closing}
}

func fromWorkerParams(wp worker.Params) ThresholdParams {
	d := DefaultThresholdParams()
	return ThresholdParams{
		Blur:      config.GetInt(wp, "blur", d.Blur),
		BlockSize: config.GetInt(wp, "block_size", d.BlockSize),
		Offset:    config.GetInt(wp, "bin_thresh", d.Offset),
		Closing:   config.GetInt(wp, "erosion", d.Closing),
	}.Normalize()
}

// Register adds the vision kinds to reg
func Register(reg *component.Registry) error {
	return reg.RegisterWithConfig(component.RegistrationConfig{
		Kind:        BinarizeKind,
		DisplayName: "Binarize",
		Description: "Adaptive threshold producing a mask of dark detail",
		Version:     "1.0.0",
		Factory:     NewBinarize,
		Schema:      component.GenerateConfigSchema(reflect.TypeOf(BinarizeConfig{})),
		Outputs:     binarizeOutputs,
		Accepts:     []component.PortType{component.Frame},
	})
}
