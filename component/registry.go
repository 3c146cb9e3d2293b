package component

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/c360/visionflow/errors"
	"github.com/c360/visionflow/metric"
	"github.com/c360/visionflow/pkg/worker"
)

// Factory creates a module from its persisted parameters. Factories do no I/O;
// background work belongs in Starter.Start.
type Factory func(rawConfig json.RawMessage, deps Dependencies) (Module, error)

// Catalog maps kind ids to factories
type Catalog map[string]Factory

// KindInfo describes an available module kind
type KindInfo struct {
	Kind        string       `json:"kind"`
	DisplayName string       `json:"display_name"`
	Description string       `json:"description"`
	Version     string       `json:"version"`
	Schema      ConfigSchema `json:"schema"`
	Outputs     Outputs      `json:"outputs"`
	Accepts     []PortType   `json:"accepts"`
}

// Registration holds factory and metadata for a module kind
type Registration struct {
	KindInfo
	Factory Factory `json:"-"`
}

// RegistrationConfig is what a kind package passes to RegisterWithConfig
type RegistrationConfig struct {
	Kind        string       // Kind id, e.g. "basic_ui.hello_world"
	DisplayName string       // Class name shown in menus and persisted as class_name
	Description string       // Human-readable description
	Version     string       // Kind version
	Factory     Factory      // Factory function
	Schema      ConfigSchema // Parameter schema
	Outputs     Outputs      // Declared outputs, for menus and graph tooling
	Accepts     []PortType   // Accepted input types
}

// Registry is the kind catalog plus the set of live modules. Unregistering a
// module removes it as a target from every other live module.
type Registry struct {
	kinds   map[string]*Registration
	live    []Module
	byID    map[string]Module
	ctx     context.Context
	surface Surface
	logger  *slog.Logger
	metrics *metric.MetricsRegistry
	worker  worker.Config
	mu      sync.RWMutex
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithSurface sets the surface handed to every module the registry creates
func WithSurface(s Surface) RegistryOption {
	return func(r *Registry) { r.surface = s }
}

// WithLogger sets the registry logger, also handed to created modules
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics sets the metrics registry handed to created modules
func WithMetrics(m *metric.MetricsRegistry) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// WithWorkerDefaults sets the worker configuration handed to created modules
func WithWorkerDefaults(cfg worker.Config) RegistryOption {
	return func(r *Registry) { r.worker = cfg }
}

// WithContext sets the context passed to Starter.Start
func WithContext(ctx context.Context) RegistryOption {
	return func(r *Registry) {
		if ctx != nil {
			r.ctx = ctx
		}
	}
}

// NewRegistry creates a new empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		kinds:  make(map[string]*Registration),
		byID:   make(map[string]Module),
		ctx:    context.Background(),
		logger: slog.Default(),
		worker: worker.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "registry")
	return r
}

// RegisterWithConfig registers a module kind.
//
//	registry.RegisterWithConfig(component.RegistrationConfig{
//	    Kind:        "basic_ui.hello_world",
//	    DisplayName: "Hello world",
//	    Factory:     NewHelloWorld,
//	    Outputs:     component.Outputs{{Name: "Text", Type: component.Text}},
//	    Accepts:     []component.PortType{component.Trigger},
//	})
func (r *Registry) RegisterWithConfig(config RegistrationConfig) error {
	return r.RegisterFactory(config.Kind, &Registration{
		KindInfo: KindInfo{
			Kind:        config.Kind,
			DisplayName: config.DisplayName,
			Description: config.Description,
			Version:     config.Version,
			Schema:      config.Schema,
			Outputs:     slices.Clone(config.Outputs),
			Accepts:     slices.Clone(config.Accepts),
		},
		Factory: config.Factory,
	})
}

// RegisterFactory registers a kind. Returns an error if the kind id is
// malformed, the factory is nil, or the kind is already registered.
func (r *Registry) RegisterFactory(kind string, registration *Registration) error {
	if err := ValidateKindName(kind); err != nil {
		return errors.Wrap(err, "Registry", "RegisterFactory", "kind validation")
	}
	if registration == nil || registration.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "factory function validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[kind]; exists {
		return errors.WrapInvalid(fmt.Errorf("kind '%s' is already registered", kind),
			"Registry", "RegisterFactory", "duplicate kind check")
	}
	registration.Kind = kind
	r.kinds[kind] = registration
	return nil
}

// Discover returns the factories whose kind id starts with prefix. An empty
// prefix returns the whole catalog.
func (r *Registry) Discover(prefix string) Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	catalog := make(Catalog, len(r.kinds))
	for kind, reg := range r.kinds {
		if strings.HasPrefix(kind, prefix) {
			catalog[kind] = reg.Factory
		}
	}
	return catalog
}

// GetFactory returns the factory for a kind
func (r *Registry) GetFactory(kind string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.kinds[kind]
	if !ok {
		return nil, false
	}
	return reg.Factory, true
}

// Kind returns the metadata of a registered kind
func (r *Registry) Kind(kind string) (KindInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.kinds[kind]
	if !ok {
		return KindInfo{}, false
	}
	return reg.KindInfo, true
}

// ListAvailable returns metadata for every registered kind
func (r *Registry) ListAvailable() map[string]KindInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]KindInfo, len(r.kinds))
	for kind, reg := range r.kinds {
		result[kind] = reg.KindInfo
	}
	return result
}

// Dependencies returns the dependencies the registry hands to a factory
func (r *Registry) Dependencies(p Placement) Dependencies {
	return Dependencies{
		Logger:          r.logger,
		MetricsRegistry: r.metrics,
		Surface:         r.surface,
		Worker:          r.worker,
		Placement:       p,
	}
}

// CreateModule instantiates kind with rawConfig, registers and starts it.
func (r *Registry) CreateModule(kind string, rawConfig json.RawMessage, p Placement) (Module, error) {
	factory, ok := r.GetFactory(kind)
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrUnknownKind, kind),
			"Registry", "CreateModule", "kind lookup")
	}
	return r.Instantiate(kind, factory, rawConfig, p)
}

// Instantiate runs factory, then registers and starts the module. The
// factory need not come from this registry.
func (r *Registry) Instantiate(kind string, factory Factory, rawConfig json.RawMessage, p Placement) (Module, error) {
	if err := ValidateFactoryConfig(rawConfig); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateModule", "config validation")
	}
	if info, ok := r.Kind(kind); ok && len(info.Schema.Properties) > 0 && len(rawConfig) > 0 {
		var params map[string]any
		if err := SafeUnmarshal(rawConfig, &params); err != nil {
			return nil, errors.Wrap(err, "Registry", "CreateModule", "params decoding")
		}
		if verrs := ValidateConfig(params, info.Schema); len(verrs) > 0 {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidConfig, verrs[0].Message),
				"Registry", "CreateModule", "schema validation")
		}
	}

	module, err := factory(rawConfig, r.Dependencies(p))
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateModule", "factory execution")
	}
	if module == nil || module.base() == nil {
		return nil, errors.WrapFatal(fmt.Errorf("factory for %s returned no module", kind),
			"Registry", "CreateModule", "factory execution")
	}

	if err := r.Register(module); err != nil {
		_ = module.Close()
		return nil, err
	}

	if starter, ok := module.(Starter); ok {
		if err := starter.Start(r.ctx); err != nil {
			_ = module.Close()
			return nil, errors.Wrap(err, "Registry", "CreateModule", "module start")
		}
	}
	return module, nil
}

// Register adds a live module. Registering the same module twice is a no-op;
// a different module with a taken id is an error.
func (r *Registry) Register(m Module) error {
	if m == nil || m.base() == nil {
		return errors.WrapInvalid(errors.ErrUnknownModule, "Registry", "Register", "module validation")
	}

	r.mu.Lock()
	if existing, ok := r.byID[m.ID()]; ok {
		r.mu.Unlock()
		if existing.base() == m.base() {
			return nil
		}
		return errors.WrapInvalid(fmt.Errorf("module id %s is already registered", m.ID()),
			"Registry", "Register", "duplicate id check")
	}
	r.byID[m.ID()] = m
	r.live = append(r.live, m)
	r.mu.Unlock()

	m.base().bind(m, r)
	r.metrics.CoreMetrics().RecordModuleLive(m.Kind(), 1)
	return nil
}

// Unregister removes a module and every edge targeting it. Modules merged
// into it are restored first so their elements survive its window.
func (r *Registry) Unregister(m Module) {
	if m == nil || m.base() == nil {
		return
	}

	r.mu.Lock()
	current, ok := r.byID[m.ID()]
	if ok && current.base() == m.base() {
		delete(r.byID, m.ID())
		r.live = slices.DeleteFunc(r.live, sameModule(m))
	} else {
		ok = false
	}
	others := slices.Clone(r.live)
	r.mu.Unlock()

	for _, other := range others {
		other.DisconnectTarget(m)
		if target := other.MergedInto(); target != nil && target.base() == m.base() {
			other.RestoreContents()
		}
	}

	if ok {
		m.base().bind(nil, nil)
		r.metrics.CoreMetrics().RecordModuleLive(m.Kind(), -1)
	}
}

// Modules returns live modules in registration order
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.live)
}

// Module returns the live module with id
func (r *Registry) Module(id string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	return m, ok
}

// Len returns the number of live modules
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// Clear closes every live module
func (r *Registry) Clear() {
	for _, m := range slices.Backward(r.Modules()) {
		if err := m.Close(); err != nil {
			r.logger.Warn("Module close failed", "module_id", m.ID(), "kind", m.Kind(), "error", err)
		}
	}
}

// KindIDs returns registered kind ids in sorted order
func (r *Registry) KindIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.kinds))
}
