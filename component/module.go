package component

import (
	"context"
)

// Module is a node of the dataflow graph. Concrete kinds embed *Base, which
// supplies everything except Input.
type Module interface {
	ID() string
	Kind() string
	Label() string
	WindowID() string

	// Input receives one payload. Unsupported payloads are ignored and
	// reported as false; Input never fails.
	Input(msg Message) bool

	// Emit delivers payload to every target connected on port, in the order
	// the connections were made.
	Emit(port string, payload Payload)

	// Connect adds target to the output addressed by out. It reports false
	// when the port does not resolve or the types are incompatible.
	Connect(target Module, out OutputRef) bool
	ConnectE(target Module, out OutputRef) error
	Disconnect(target Module, port string) bool
	DisconnectTarget(target Module)
	Connections() map[string][]Module

	OutputPorts() Outputs
	AcceptedTypes() []PortType

	IsReady() bool
	OutputsReady() bool

	MergeInto(target Module) bool
	MergeIntoE(target Module) error
	RestoreContents() bool
	InformLeaving(elements []string)
	IsMerged() bool
	MergedInto() Module

	Serialize() Record

	// Close releases the module. Safe to call more than once.
	Close() error

	base() *Base
}

// Readiness is the optional capability behind IsReady. Modules without one
// are always ready.
type Readiness interface {
	IsReady() bool
}

type alwaysReady struct{}

func (alwaysReady) IsReady() bool { return true }

// ReadinessFunc adapts a function to Readiness
type ReadinessFunc func() bool

// IsReady calls f
func (f ReadinessFunc) IsReady() bool { return f() }

// Starter is implemented by modules that run background work. The registry
// calls Start once the module is registered.
type Starter interface {
	Start(ctx context.Context) error
}

// Record is the persisted form of one module window
type Record struct {
	Module    string         `json:"module"`
	ClassName string         `json:"class_name"`
	UUID      string         `json:"uuid"`
	Pos       [2]int         `json:"pos"`
	Size      [2]int         `json:"size"`
	Visible   bool           `json:"visible"`
	Params    map[string]any `json:"params"`
}

// MergedIntoParam is the params key recording a merge target
const MergedIntoParam = "merged_into"
