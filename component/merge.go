package component

import (
	"fmt"
	"slices"

	"github.com/c360/visionflow/errors"
)

// MergeInto moves this module's elements into target's window and hides its
// own. It reports false when the merge is refused.
func (b *Base) MergeInto(target Module) bool {
	return b.MergeIntoE(target) == nil
}

// MergeIntoE is MergeInto returning the reason for a refusal. Merging into
// the current target is a no-op; merging elsewhere restores first.
func (b *Base) MergeIntoE(target Module) error {
	if target == nil || target.base() == nil {
		return errors.WrapInvalid(errors.ErrUnknownModule, "Base", "MergeInto", "target validation")
	}
	tb := target.base()
	if tb == b {
		b.metrics.RecordMerge("rejected")
		return errors.WrapInvalid(errors.ErrMergeCycle, "Base", "MergeInto", "self merge")
	}

	current := b.MergedInto()
	if current != nil && current.base() == tb {
		return nil
	}
	if current != nil {
		b.RestoreContents()
	}

	children := b.surface.Children(b.winID)
	if len(children) == 0 {
		b.metrics.RecordMerge("rejected")
		return errors.WrapInvalid(errors.ErrEmptySurface, "Base", "MergeInto", "surface capture")
	}

	captured := tb.capturedChildren()
	if slices.ContainsFunc(children, func(c string) bool { return slices.Contains(captured, c) }) {
		b.metrics.RecordMerge("rejected")
		b.logger.Warn("Cannot merge, cyclic merge detected", "label", b.label, "target", tb.label)
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s already contains %s", errors.ErrMergeCycle, tb.label, b.label),
			"Base", "MergeInto", "cycle guard")
	}

	for _, child := range children {
		if err := b.surface.Move(child, tb.winID); err != nil {
			b.logger.Warn("Element move failed during merge", "element", child, "error", err)
		}
	}
	b.setVisible(false)

	b.mergeMu.Lock()
	b.originalChildren = children
	b.mergedInto = target
	b.mergeMu.Unlock()

	b.metrics.RecordMerge("merged")
	b.logger.Debug("Merged", "target", tb.id, "elements", len(children))
	return nil
}

// RestoreContents moves the captured elements back and shows the module's
// window. It reports false when the module was not merged.
func (b *Base) RestoreContents() bool {
	b.mergeMu.Lock()
	target := b.mergedInto
	children := b.originalChildren
	b.mergedInto = nil
	b.originalChildren = nil
	b.mergeMu.Unlock()

	if target == nil {
		return false
	}

	target.InformLeaving(children)
	for _, child := range children {
		if !b.surface.Exists(child) {
			continue
		}
		if err := b.surface.Move(child, b.winID); err != nil {
			b.logger.Warn("Element move failed during restore", "element", child, "error", err)
		}
	}
	b.setVisible(true)

	b.metrics.RecordMerge("restored")
	b.logger.Debug("Restored", "target", target.ID(), "elements", len(children))
	return true
}

// InformLeaving drops elements from the captured set, here and up the chain
// of merge targets.
func (b *Base) InformLeaving(elements []string) {
	b.mergeMu.Lock()
	b.originalChildren = slices.DeleteFunc(b.originalChildren, func(c string) bool {
		return slices.Contains(elements, c)
	})
	parent := b.mergedInto
	// a merged window left with nothing captured is standalone again
	emptied := parent != nil && len(b.originalChildren) == 0
	if emptied {
		b.mergedInto = nil
	}
	b.mergeMu.Unlock()

	if parent != nil {
		parent.InformLeaving(elements)
	}
	if emptied {
		b.setVisible(true)
	}
}

// IsMerged reports whether this module's elements currently live elsewhere
func (b *Base) IsMerged() bool {
	b.mergeMu.Lock()
	defer b.mergeMu.Unlock()
	return len(b.originalChildren) > 0
}

// MergedInto returns the merge target, or nil
func (b *Base) MergedInto() Module {
	b.mergeMu.Lock()
	defer b.mergeMu.Unlock()
	return b.mergedInto
}

// OriginalChildren returns the captured element ids
func (b *Base) OriginalChildren() []string {
	return b.capturedChildren()
}

func (b *Base) capturedChildren() []string {
	b.mergeMu.Lock()
	defer b.mergeMu.Unlock()
	return slices.Clone(b.originalChildren)
}

// Absorb merges source into this module
func (b *Base) Absorb(source Module) bool {
	b.mu.RLock()
	self := b.self
	b.mu.RUnlock()
	if source == nil || self == nil {
		return false
	}
	return source.MergeInto(self)
}

// Eject restores a previously absorbed module
func (b *Base) Eject(absorbed Module) bool {
	if absorbed == nil {
		return false
	}
	target := absorbed.MergedInto()
	if target == nil || target.base() != b {
		return false
	}
	return absorbed.RestoreContents()
}
