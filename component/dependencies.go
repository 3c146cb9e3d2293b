package component

import (
	"log/slog"

	"github.com/c360/visionflow/metric"
	"github.com/c360/visionflow/pkg/worker"
)

// Placement is the window geometry and identity of one module instance. Nil
// fields take defaults: a fresh id, position (10, 10), automatic size, visible.
type Placement struct {
	ID      string
	Pos     *[2]int
	Size    *[2]int
	Visible *bool
}

// Dependencies provides everything a factory needs to build one module.
type Dependencies struct {
	Logger          *slog.Logger            // Structured logger (can be nil, defaults to slog.Default())
	MetricsRegistry *metric.MetricsRegistry // Metrics registry for Prometheus (can be nil)
	Surface         Surface                 // Rendering collaborator (can be nil, composition then has nothing to move)
	Worker          worker.Config           // Defaults for worker-backed modules
	Placement       Placement               // Instance identity and geometry
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}

// GetSurface returns the configured surface or one that owns nothing
func (d *Dependencies) GetSurface() Surface {
	if d.Surface != nil {
		return d.Surface
	}
	return nopSurface{}
}
