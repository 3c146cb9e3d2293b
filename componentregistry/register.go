// Package componentregistry registers every built-in module kind.
package componentregistry

import (
	stderrors "errors"
	"log/slog"
	"slices"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/errors"
	"github.com/c360/visionflow/modules/basicui"
	"github.com/c360/visionflow/modules/stream"
	"github.com/c360/visionflow/modules/vision"
)

// Group is a set of kinds registered together. Name is the kind id prefix.
type Group struct {
	Name     string
	Register func(*component.Registry) error
}

// Groups returns the built-in kind groups in registration order
func Groups() []Group {
	return []Group{
		{Name: "basic_ui", Register: basicui.Register},
		{Name: "computer_vision", Register: vision.Register},
		{Name: "stream", Register: stream.Register},
	}
}

// Register adds the built-in kinds to registry. Groups named in disabled are
// skipped. A group that fails to register is logged and skipped so one broken
// kind never hides the rest of the catalog.
func Register(registry *component.Registry, logger *slog.Logger, disabled ...string) error {
	return RegisterGroups(registry, logger, Groups(), disabled...)
}

// RegisterGroups is Register over an explicit group list
func RegisterGroups(registry *component.Registry, logger *slog.Logger, groups []Group, disabled ...string) error {
	if registry == nil {
		return errors.WrapFatal(stderrors.New("registry cannot be nil"),
			"ComponentRegistry", "Register", "registry validation")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "componentregistry")

	for _, g := range groups {
		if slices.Contains(disabled, g.Name) {
			logger.Info("Kind group disabled", "group", g.Name)
			continue
		}
		if err := g.Register(registry); err != nil {
			logger.Warn("Kind group skipped", "group", g.Name, "error", err)
			continue
		}
		logger.Debug("Kind group registered", "group", g.Name, "kinds", len(registry.Discover(g.Name+".")))
	}
	return nil
}
