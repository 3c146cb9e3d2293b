package component

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/visionflow/errors"
	"github.com/c360/visionflow/metric"
)

// BaseConfig declares the static shape of a module kind
type BaseConfig struct {
	Kind        string
	DisplayName string
	Label       string
	Outputs     Outputs
	Accepts     []PortType
	// Persist returns the kind's persistent parameters. The label is always
	// persisted and need not be included.
	Persist func() map[string]any
	// Readiness backs IsReady. Nil means always ready.
	Readiness Readiness
}

// Base implements the Module contract apart from Input. Concrete kinds embed
// it and shadow Input.
type Base struct {
	id        string
	kind      string
	className string
	label     string
	winID     string
	pos       [2]int
	size      [2]int
	outputs   Outputs
	accepts   []PortType
	persist   func() map[string]any
	readiness Readiness

	surface Surface
	logger  *slog.Logger
	metrics *metric.Metrics

	mu          sync.RWMutex
	visible     bool
	connections map[string][]Module
	self        Module
	registry    *Registry
	closers     []func() error
	closed      bool
	closing     bool // set when Close begins, before edge cleanup
	closeOnce   sync.Once
	closeErr    error

	mergeMu          sync.Mutex
	mergedInto       Module
	originalChildren []string
}

// NewBase validates the declaration and opens the module's window.
func NewBase(cfg BaseConfig, deps Dependencies) (*Base, error) {
	if err := ValidateKindName(cfg.Kind); err != nil {
		return nil, errors.WrapFatal(err, "Base", "NewBase", "kind validation")
	}
	if err := cfg.Outputs.validate(); err != nil {
		return nil, errors.Wrap(err, "Base", "NewBase", cfg.Kind+" outputs")
	}
	for _, t := range cfg.Accepts {
		if !t.Valid() {
			return nil, errors.WrapFatal(fmt.Errorf("%w: accepted type %q", errors.ErrInvalidConfig, t),
				"Base", "NewBase", cfg.Kind+" accepted types")
		}
	}

	p := deps.Placement
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	label := cfg.Label
	if label == "" {
		label = cfg.DisplayName
	}
	if label == "" {
		label = cfg.Kind
	}
	className := cfg.DisplayName
	if className == "" {
		className = cfg.Kind
	}

	b := &Base{
		id:          id,
		kind:        cfg.Kind,
		className:   className,
		label:       label,
		winID:       label + "_" + id,
		pos:         [2]int{10, 10},
		size:        [2]int{-1, -1},
		visible:     true,
		outputs:     slices.Clone(cfg.Outputs),
		accepts:     slices.Clone(cfg.Accepts),
		persist:     cfg.Persist,
		readiness:   cfg.Readiness,
		surface:     deps.GetSurface(),
		logger:      deps.GetLoggerWithComponent(cfg.Kind).With("module_id", id),
		metrics:     deps.MetricsRegistry.CoreMetrics(),
		connections: make(map[string][]Module, len(cfg.Outputs)),
	}
	if b.readiness == nil {
		b.readiness = alwaysReady{}
	}
	if p.Pos != nil {
		b.pos = *p.Pos
	}
	if p.Size != nil {
		b.size = *p.Size
	}
	if p.Visible != nil {
		b.visible = *p.Visible
	}
	for _, port := range b.outputs {
		b.connections[port.Name] = nil
	}

	if err := b.surface.CreateWindow(b.winID, b.label, b.visible); err != nil {
		return nil, errors.Wrap(err, "Base", "NewBase", "window creation")
	}
	return b, nil
}

func (b *Base) base() *Base { return b }

// ID returns the instance id
func (b *Base) ID() string { return b.id }

// Kind returns the kind id the module was built from
func (b *Base) Kind() string { return b.kind }

// ClassName returns the display name of the kind
func (b *Base) ClassName() string { return b.className }

// Label returns the window label
func (b *Base) Label() string { return b.label }

// WindowID returns the id of the module's own window on the surface
func (b *Base) WindowID() string { return b.winID }

// Logger returns the module-scoped logger
func (b *Base) Logger() *slog.Logger { return b.logger }

// Surface returns the rendering collaborator
func (b *Base) Surface() Surface { return b.surface }

// AddElement places a named element in the module's window and returns its id
func (b *Base) AddElement(name string) (string, error) {
	element := b.winID + "/" + name
	if err := b.surface.AddElement(b.winID, element); err != nil {
		return "", errors.Wrap(err, "Base", "AddElement", name)
	}
	return element, nil
}

// SetReadiness replaces the readiness capability. Kinds that build their
// worker after the base call this before the module is registered.
func (b *Base) SetReadiness(r Readiness) {
	if r == nil {
		r = alwaysReady{}
	}
	b.mu.Lock()
	b.readiness = r
	b.mu.Unlock()
}

// OnClose registers a release step run by Close, last registered first
func (b *Base) OnClose(fn func() error) {
	b.mu.Lock()
	b.closers = append(b.closers, fn)
	b.mu.Unlock()
}

// Input is the fallback for kinds that accept nothing
func (b *Base) Input(msg Message) bool {
	b.logger.Debug("Unsupported input ignored", "data_type", msg.DataType)
	return false
}

// Emit delivers payload on port
func (b *Base) Emit(port string, payload Payload) {
	b.mu.RLock()
	p, ok := b.outputs.ByName(port)
	targets := slices.Clone(b.connections[port])
	b.mu.RUnlock()

	if !ok {
		b.logger.Debug("Emit on undeclared port", "port", port)
		return
	}

	msg := Message{Payload: payload, DataType: p.Type}
	for _, target := range targets {
		b.metrics.RecordEmission(b.kind, port)
		if !target.Input(msg) {
			b.metrics.RecordInputRefused(target.Kind())
			b.logger.Debug("Target refused input", "port", port, "target", target.ID())
		}
	}
}

// EmitEach emits several ports in declaration order
func (b *Base) EmitEach(payloads map[string]Payload) {
	for _, port := range b.outputs {
		if payload, ok := payloads[port.Name]; ok {
			b.Emit(port.Name, payload)
		}
	}
}

// Connect adds an edge and reports success
func (b *Base) Connect(target Module, out OutputRef) bool {
	return b.ConnectE(target, out) == nil
}

// ConnectE adds an edge, returning why it was refused
func (b *Base) ConnectE(target Module, out OutputRef) error {
	if target == nil || target.base() == nil {
		return errors.WrapInvalid(errors.ErrUnknownModule, "Base", "Connect", "target validation")
	}
	if target.base() == b {
		b.metrics.RecordConnectRejected("self")
		return errors.WrapInvalid(errors.ErrSelfConnection, "Base", "Connect", "target validation")
	}

	port, err := b.outputs.Resolve(out)
	if err != nil {
		b.metrics.RecordConnectRejected("unknown_port")
		b.logger.Error("Output port not found", "output", out.String())
		return err
	}

	accepted := target.AcceptedTypes()
	if !Accepts(accepted, port.Type) {
		b.metrics.RecordConnectRejected("incompatible")
		b.logger.Warn("Incompatible types", "output", port.Name, "output_type", port.Type,
			"target", target.ID(), "accepted", accepted)
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s does not accept %s", errors.ErrIncompatiblePort, target.Kind(), port.Type),
			"Base", "Connect", "type check")
	}

	// the target check runs under b.mu: a target that starts closing after it
	// still has to take b.mu to remove its edges
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closing {
		return errors.WrapInvalid(errors.ErrModuleClosed, "Base", "Connect", "source state")
	}
	if target.base().isClosing() {
		b.metrics.RecordConnectRejected("closed")
		return errors.WrapInvalid(errors.ErrModuleClosed, "Base", "Connect", "target state")
	}
	if !containsModule(b.connections[port.Name], target) {
		b.connections[port.Name] = append(b.connections[port.Name], target)
	}
	return nil
}

// Disconnect removes one edge. It reports whether the edge existed.
func (b *Base) Disconnect(target Module, port string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	targets := b.connections[port]
	i := slices.IndexFunc(targets, sameModule(target))
	if i < 0 {
		return false
	}
	b.connections[port] = slices.Delete(targets, i, i+1)
	return true
}

// DisconnectTarget removes target from every output
func (b *Base) DisconnectTarget(target Module) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for port, targets := range b.connections {
		b.connections[port] = slices.DeleteFunc(targets, sameModule(target))
	}
}

// Connections returns a copy of the edge lists keyed by port name
func (b *Base) Connections() map[string][]Module {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string][]Module, len(b.connections))
	for port, targets := range b.connections {
		out[port] = slices.Clone(targets)
	}
	return out
}

// OutputPorts returns the declared outputs in order
func (b *Base) OutputPorts() Outputs { return slices.Clone(b.outputs) }

// AcceptedTypes returns the accepted input types. Empty means any.
func (b *Base) AcceptedTypes() []PortType { return slices.Clone(b.accepts) }

// IsReady reports whether the module can take more input
func (b *Base) IsReady() bool {
	b.mu.RLock()
	r := b.readiness
	b.mu.RUnlock()
	return r.IsReady()
}

// OutputsReady is true when every connected target is ready
func (b *Base) OutputsReady() bool {
	for _, targets := range b.Connections() {
		for _, t := range targets {
			if !t.IsReady() {
				return false
			}
		}
	}
	return true
}

// Serialize returns the persisted form of the module
func (b *Base) Serialize() Record {
	params := map[string]any{"label": b.label}
	if b.persist != nil {
		maps.Copy(params, b.persist())
	}
	if target := b.MergedInto(); target != nil {
		params[MergedIntoParam] = target.ID()
	}

	b.mu.RLock()
	visible := b.visible
	b.mu.RUnlock()

	return Record{
		Module:    b.kind,
		ClassName: b.className,
		UUID:      b.id,
		Pos:       b.pos,
		Size:      b.size,
		Visible:   visible,
		Params:    params,
	}
}

// Close stops background work, leaves any merge, unregisters the module and
// removes its window.
func (b *Base) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closing = true
		closers := slices.Clone(b.closers)
		registry, self := b.registry, b.self
		b.mu.Unlock()

		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}

		if b.IsMerged() {
			b.RestoreContents()
		}
		if registry != nil && self != nil {
			registry.Unregister(self)
		}

		b.mu.Lock()
		b.closed = true
		clear(b.connections)
		b.mu.Unlock()

		b.surface.DeleteWindow(b.winID)
		b.closeErr = stderrors.Join(errs...)
		b.logger.Debug("Module closed")
	})
	return b.closeErr
}

// IsClosed reports whether Close has run
func (b *Base) IsClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

func (b *Base) isClosing() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closing
}

func (b *Base) setVisible(v bool) {
	b.mu.Lock()
	b.visible = v
	b.mu.Unlock()
	if v {
		b.surface.Show(b.winID)
	} else {
		b.surface.Hide(b.winID)
	}
}

func (b *Base) bind(self Module, registry *Registry) {
	b.mu.Lock()
	b.self = self
	b.registry = registry
	b.mu.Unlock()
}

func sameModule(target Module) func(Module) bool {
	tb := target.base()
	return func(m Module) bool { return m.base() == tb }
}

func containsModule(list []Module, target Module) bool {
	return slices.ContainsFunc(list, sameModule(target))
}
