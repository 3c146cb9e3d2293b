// Package visionflow provides the dataflow engine behind a node-based editor
// for computer vision and instrumentation workspaces.
//
// A workspace is a graph of modules. Each module owns a window on a UI
// surface, declares typed output ports and the port types it accepts, and
// pushes payloads to the modules connected downstream. Heavy work runs on
// bounded workers so that a slow module never stalls the editor.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│            Editor                   │  Node, link and fusion
//	│   (create, link, drop, delete)      │  gestures
//	└─────────────────────────────────────┘
//	           ↓ drives
//	┌─────────────────────────────────────┐
//	│           Registry                  │  Kinds, live modules,
//	│   (discover, create, clear)         │  edge cleanup
//	└─────────────────────────────────────┘
//	           ↓ instantiates
//	┌─────────────────────────────────────┐
//	│           Modules                   │  Ports, payloads,
//	│   (emit, input, merge, close)       │  workers
//	└─────────────────────────────────────┘
//	           ↓ persisted by
//	┌─────────────────────────────────────┐
//	│     Workspace / Flowstore           │  JSON documents,
//	│   (export, import, snapshots)       │  versioned snapshots
//	└─────────────────────────────────────┘
//
// # Packages
//
// Core:
//   - component: port types, payloads, the module base, registry and merges
//   - component/flowgraph: connectivity analysis of the live graph
//   - surface: the UI surface contract and an in-memory implementation
//   - editor: gesture-level operations on top of the registry
//
// Persistence:
//   - workspace: JSON export and import of the whole graph
//   - flowstore: named, versioned workspace snapshots backed by badger
//
// Infrastructure:
//   - config: layered YAML/JSON configuration with environment overrides
//   - errors: classified errors (transient, invalid, fatal)
//   - metric: Prometheus registry and HTTP endpoint
//   - pkg/buffer: bounded circular buffers with overflow policies
//   - pkg/worker: background processing with parameters and readiness
//   - pkg/retry: exponential backoff
//
// Module kinds:
//   - modules/basicui: buttons, text viewers, command senders, fake data
//   - modules/vision: adaptive binarization of camera frames
//   - modules/stream: WebSocket tap forwarding payloads to external viewers
//
// # Usage
//
//	reg := component.NewRegistry(
//	    component.WithSurface(surface.NewMemory()),
//	    component.WithLogger(logger),
//	)
//	if err := componentregistry.Register(reg, logger); err != nil {
//	    return err
//	}
//
//	ed := editor.New(reg, logger)
//	button, _ := ed.AddNode(basicui.ButtonKind, nil, component.Placement{})
//	viewer, _ := ed.AddNode(basicui.TextViewerKind, nil, component.Placement{})
//	_, _ = ed.LinkByName(button.ID(), viewer.ID(), "Trigger")
//
//	_ = workspace.ExportFile(reg, "session.json", nil)
//
// # Binary
//
//	# Restore a workspace, save it again on SIGINT/SIGTERM
//	./bin/visionflow --workspace session.json
//
//	# Print the module catalog
//	./bin/visionflow --list-kinds
package visionflow
