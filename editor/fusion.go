package editor

import (
	"fmt"
	"log/slog"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/errors"
)

// Row is one line of the fusion table
type Row struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	MergedInto string `json:"merged_into,omitempty"` // label of the merge target
	Merged     bool   `json:"merged"`
}

// Fusion merges module windows by drag and drop
type Fusion struct {
	registry *component.Registry
	logger   *slog.Logger
}

// NewFusion creates a fusion table over reg
func NewFusion(reg *component.Registry, logger *slog.Logger) *Fusion {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fusion{registry: reg, logger: logger.With("component", "fusion")}
}

// Rows lists every live module in registration order
func (f *Fusion) Rows() []Row {
	modules := f.registry.Modules()
	rows := make([]Row, 0, len(modules))
	for _, m := range modules {
		row := Row{ID: m.ID(), Label: m.Label(), Merged: m.IsMerged()}
		if target := m.MergedInto(); target != nil {
			row.MergedInto = target.Label()
		}
		rows = append(rows, row)
	}
	return rows
}

// Drop merges source into target. Dropping a module on itself does nothing.
func (f *Fusion) Drop(sourceID, targetID string) error {
	if sourceID == targetID {
		return nil
	}
	source, ok := f.registry.Module(sourceID)
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrUnknownModule, sourceID), "Fusion", "Drop", "source lookup")
	}
	target, ok := f.registry.Module(targetID)
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrUnknownModule, targetID), "Fusion", "Drop", "target lookup")
	}
	if err := source.MergeIntoE(target); err != nil {
		f.logger.Warn("Merge refused", "source", source.Label(), "target", target.Label(), "error", err)
		return err
	}
	return nil
}

// Restore returns a merged module's elements to its own window
func (f *Fusion) Restore(id string) error {
	m, ok := f.registry.Module(id)
	if !ok {
		return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrUnknownModule, id), "Fusion", "Restore", "module lookup")
	}
	if !m.RestoreContents() {
		return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrNotMerged, m.Label()), "Fusion", "Restore", "state check")
	}
	return nil
}
