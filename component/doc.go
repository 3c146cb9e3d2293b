// Package component provides the dataflow graph core for VisionFlow: typed
// ports, the Module contract, the Registry of module kinds and live modules,
// and window composition.
//
// # Overview
//
// A module is a node with named, typed output ports and a set of accepted
// input types. Edges are stored on the source module as ordered target lists
// per output port. Emit pushes a payload synchronously to every target of a
// port in connection order; a target that cannot handle the payload ignores
// it. Heavy work lives behind a worker (see pkg/worker) so Emit never blocks
// on computation.
//
// Concrete kinds embed *Base and shadow Input:
//
//	type Echo struct {
//		*component.Base
//	}
//
//	func (e *Echo) Input(msg component.Message) bool {
//		if p, ok := msg.Payload.(component.TextPayload); ok {
//			e.Emit("Text", p)
//			return true
//		}
//		return false
//	}
//
// # Registration Pattern
//
// VisionFlow uses EXPLICIT registration rather than init() self-registration.
// Each kind package exports Register(*component.Registry) error, and
// componentregistry.RegisterAll wires them together:
//
//	registry := component.NewRegistry(component.WithSurface(surface.NewMemory()))
//	if err := componentregistry.RegisterAll(registry); err != nil {
//		return err
//	}
//	viewer, err := registry.CreateModule("basic_ui.text_viewer", nil, component.Placement{})
//
// Kind ids are namespaced by the package that provides them, so Discover
// with a prefix such as "vision." returns one provider's catalog.
//
// # Type Gating
//
// Connect refuses an edge when the target's accepted set is non-empty and
// does not contain the output's type, when the port does not resolve, or
// when a module targets itself. Duplicate edges are collapsed.
//
// # Composition
//
// MergeInto moves every element of a module's window into another module's
// window and hides the source. RestoreContents reverses it. A merge whose
// source elements already live in the target is refused, which keeps the
// merge relation acyclic. Deleting elements from a merged window is
// propagated up the merge chain with InformLeaving.
//
// # Lifecycle
//
// Close is idempotent: it stops background work registered with OnClose,
// restores a merge, unregisters the module (removing every edge that targets
// it) and deletes its window.
package component
