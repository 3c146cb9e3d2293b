// Package surface provides rendering collaborators for modules. Memory keeps
// the window tree in process and backs headless runs and tests.
package surface

import (
	"fmt"
	"slices"
	"sync"

	"github.com/c360/visionflow/errors"
)

type window struct {
	label    string
	visible  bool
	children []string
}

// Memory is an in-process window tree. The zero value is not usable; call
// NewMemory.
type Memory struct {
	mu       sync.RWMutex
	windows  map[string]*window
	elements map[string]string // element -> window
}

// NewMemory creates an empty surface
func NewMemory() *Memory {
	return &Memory{
		windows:  make(map[string]*window),
		elements: make(map[string]string),
	}
}

// CreateWindow adds a top-level window
func (m *Memory) CreateWindow(id, label string, visible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.windows[id]; exists {
		return errors.WrapInvalid(fmt.Errorf("window %s already exists", id), "Memory", "CreateWindow", "id check")
	}
	m.windows[id] = &window{label: label, visible: visible}
	return nil
}

// DeleteWindow removes a window and the elements currently inside it
func (m *Memory) DeleteWindow(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[id]
	if !ok {
		return
	}
	for _, child := range w.children {
		delete(m.elements, child)
	}
	delete(m.windows, id)
}

// AddElement places a new element at the end of a window
func (m *Memory) AddElement(windowID, element string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.windows[windowID]
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("window %s not found", windowID), "Memory", "AddElement", "window lookup")
	}
	if _, exists := m.elements[element]; exists {
		return errors.WrapInvalid(fmt.Errorf("element %s already exists", element), "Memory", "AddElement", "id check")
	}
	w.children = append(w.children, element)
	m.elements[element] = windowID
	return nil
}

// Children lists the elements of a window in placement order
func (m *Memory) Children(windowID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.windows[windowID]; ok {
		return slices.Clone(w.children)
	}
	return nil
}

// Move reparents an element, appending it to the destination window
func (m *Memory) Move(element, windowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, ok := m.elements[element]
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("element %s not found", element), "Memory", "Move", "element lookup")
	}
	to, ok := m.windows[windowID]
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("window %s not found", windowID), "Memory", "Move", "window lookup")
	}
	if from == windowID {
		return nil
	}
	src := m.windows[from]
	src.children = slices.DeleteFunc(src.children, func(c string) bool { return c == element })
	to.children = append(to.children, element)
	m.elements[element] = windowID
	return nil
}

// Show makes a window visible
func (m *Memory) Show(id string) { m.setVisible(id, true) }

// Hide makes a window invisible
func (m *Memory) Hide(id string) { m.setVisible(id, false) }

func (m *Memory) setVisible(id string, v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.windows[id]; ok {
		w.visible = v
	}
}

// Exists reports whether an element is alive
func (m *Memory) Exists(element string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.elements[element]
	return ok
}

// Visible reports whether a window exists and is shown
func (m *Memory) Visible(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.windows[id]
	return ok && w.visible
}

// HasWindow reports whether a window exists
func (m *Memory) HasWindow(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.windows[id]
	return ok
}

// Label returns the label a window was created with
func (m *Memory) Label(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.windows[id]; ok {
		return w.label
	}
	return ""
}

// Windows returns every window id in sorted order
func (m *Memory) Windows() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.windows))
	for id := range m.windows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
