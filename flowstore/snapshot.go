package flowstore

import (
	"fmt"
	"time"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/errors"
	"github.com/c360/visionflow/workspace"
)

// Snapshot is a named, versioned workspace document
type Snapshot struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Version for optimistic concurrency control
	Version int64 `json:"version"`

	Document workspace.Document `json:"document"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the snapshot before it is written
func (s *Snapshot) Validate() error {
	if s.Name == "" {
		return errors.WrapInvalid(fmt.Errorf("snapshot name cannot be empty"), "flowstore", "Validate", "name validation")
	}
	if err := component.ValidateKindName(s.Name); err != nil {
		return errors.WrapInvalid(fmt.Errorf("snapshot name %q: %w", s.Name, err), "flowstore", "Validate", "name validation")
	}

	ids := make(map[string]bool, len(s.Document.Windows))
	for i, w := range s.Document.Windows {
		if w.Module == "" {
			return errors.WrapInvalid(fmt.Errorf("window at index %d has empty module", i),
				"flowstore", "Validate", "window validation")
		}
		if w.UUID == "" {
			return errors.WrapInvalid(fmt.Errorf("window at index %d has empty uuid", i),
				"flowstore", "Validate", "window validation")
		}
		if ids[w.UUID] {
			return errors.WrapInvalid(fmt.Errorf("duplicate window uuid: %s", w.UUID),
				"flowstore", "Validate", "duplicate window detected")
		}
		ids[w.UUID] = true
	}

	for i, conn := range s.Document.Connections {
		if !ids[conn.From] {
			return errors.WrapInvalid(
				fmt.Errorf("connection at index %d references non-existent source: %s", i, conn.From),
				"flowstore", "Validate", "connection source validation")
		}
		for _, to := range conn.To.IDs {
			if !ids[to] {
				return errors.WrapInvalid(
					fmt.Errorf("connection at index %d references non-existent target: %s", i, to),
					"flowstore", "Validate", "connection target validation")
			}
		}
	}
	return nil
}
