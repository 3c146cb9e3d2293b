// Package editor holds the headless linking logic behind the node editor and
// the fusion table. Rendering is left to the surface; the editor only keeps
// link ids consistent with the module graph.
package editor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/errors"
)

// Link is one edge drawn in the editor
type Link struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Port   string `json:"port"`
	Target string `json:"target"`
}

// Editor maps link ids to edges of the live graph
type Editor struct {
	registry *component.Registry
	logger   *slog.Logger

	mu    sync.Mutex
	links map[string]Link
	order []string
}

// New creates an editor over reg
func New(reg *component.Registry, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		registry: reg,
		logger:   logger.With("component", "editor"),
		links:    make(map[string]Link),
	}
}

// AddNode creates a module of kind from the creation menu
func (e *Editor) AddNode(kind string, params json.RawMessage, p component.Placement) (component.Module, error) {
	m, err := e.registry.CreateModule(kind, params, p)
	if err != nil {
		e.logger.Error("Failed to add node", "kind", kind, "error", err)
		return nil, err
	}
	return m, nil
}

func (e *Editor) module(id string) (component.Module, error) {
	m, ok := e.registry.Module(id)
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrUnknownModule, id), "Editor", "Link", "module lookup")
	}
	return m, nil
}

// Link connects an output of src to tgt and returns the link id. Linking an
// existing edge returns its id again.
func (e *Editor) Link(srcID string, out component.OutputRef, tgtID string) (string, error) {
	src, err := e.module(srcID)
	if err != nil {
		return "", err
	}
	tgt, err := e.module(tgtID)
	if err != nil {
		return "", err
	}
	port, err := src.OutputPorts().Resolve(out)
	if err != nil {
		e.logger.Warn("Failed to resolve output", "source", srcID, "output", out.String())
		return "", err
	}
	if err := src.ConnectE(tgt, component.PortName(port.Name)); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range e.order {
		if l := e.links[id]; l.Source == srcID && l.Port == port.Name && l.Target == tgtID {
			return id, nil
		}
	}
	return e.addLocked(srcID, port.Name, tgtID), nil
}

// LinkByName connects the output named output
func (e *Editor) LinkByName(srcID, tgtID, output string) (string, error) {
	return e.Link(srcID, component.PortName(output), tgtID)
}

func (e *Editor) addLocked(src, port, tgt string) string {
	id := uuid.NewString()
	e.links[id] = Link{ID: id, Source: src, Port: port, Target: tgt}
	e.order = append(e.order, id)
	return id
}

func (e *Editor) dropLocked(id string) {
	delete(e.links, id)
	e.order = slices.DeleteFunc(e.order, func(o string) bool { return o == id })
}

// Delink removes a link and its edge. It reports whether the link existed.
func (e *Editor) Delink(linkID string) bool {
	e.mu.Lock()
	l, ok := e.links[linkID]
	if ok {
		e.dropLocked(linkID)
	}
	e.mu.Unlock()
	if !ok {
		return false
	}

	src, srcOK := e.registry.Module(l.Source)
	tgt, tgtOK := e.registry.Module(l.Target)
	if srcOK && tgtOK && !src.Disconnect(tgt, l.Port) {
		e.logger.Warn("Unable to disconnect nodes cleanly", "link", linkID)
	}
	return true
}

// DeleteNode closes a module and drops every link touching it
func (e *Editor) DeleteNode(id string) error {
	m, err := e.module(id)
	if err != nil {
		return err
	}
	closeErr := m.Close()

	e.mu.Lock()
	for _, lid := range slices.Clone(e.order) {
		if l := e.links[lid]; l.Source == id || l.Target == id {
			e.dropLocked(lid)
		}
	}
	e.mu.Unlock()

	if closeErr != nil {
		return errors.Wrap(closeErr, "Editor", "DeleteNode", "module close")
	}
	return nil
}

// Links returns the links in creation order
func (e *Editor) Links() []Link {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Link, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.links[id])
	}
	return out
}

// RebuildFromInstances replaces the link table with the edges of the live
// graph, as after a workspace import.
func (e *Editor) RebuildFromInstances() []Link {
	modules := e.registry.Modules()

	e.mu.Lock()
	clear(e.links)
	e.order = e.order[:0]
	for _, m := range modules {
		conns := m.Connections()
		for _, port := range m.OutputPorts() {
			for _, tgt := range conns[port.Name] {
				e.addLocked(m.ID(), port.Name, tgt.ID())
			}
		}
	}
	e.mu.Unlock()

	links := e.Links()
	e.logger.Debug("Links rebuilt", "modules", len(modules), "links", len(links))
	return links
}
