package workspace

import (
	"context"
	"log/slog"
	"maps"
	"os"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/component/flowgraph"
	"github.com/c360/visionflow/errors"
	"github.com/c360/visionflow/metric"
)

// Importer rebuilds a workspace into a registry
type Importer struct {
	registry *component.Registry
	catalog  component.Catalog
	logger   *slog.Logger
	metrics  *metric.Metrics
}

// Option configures an Importer
type Option func(*Importer)

// WithCatalog restricts the kinds an import may instantiate. Without it the
// registry's full catalog is used.
func WithCatalog(c component.Catalog) Option {
	return func(i *Importer) { i.catalog = c }
}

// WithLogger sets the importer logger
func WithLogger(l *slog.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithMetrics records import outcomes
func WithMetrics(m *metric.MetricsRegistry) Option {
	return func(i *Importer) { i.metrics = m.CoreMetrics() }
}

// NewImporter creates an importer for reg
func NewImporter(reg *component.Registry, opts ...Option) *Importer {
	i := &Importer{registry: reg, logger: slog.Default()}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With("component", "workspace")
	return i
}

// ImportFile reads, validates and imports the workspace at path
func (i *Importer) ImportFile(path string) ([]component.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		i.metrics.RecordWorkspaceOp("import", "error")
		return nil, errors.WrapInvalid(err, "Workspace", "ImportFile", "read file")
	}
	doc, err := Decode(data)
	if err != nil {
		i.metrics.RecordWorkspaceOp("import", "error")
		return nil, err
	}
	modules := i.Import(doc)
	i.logger.Info("Workspace loaded", "path", path, "modules", len(modules))
	return modules, nil
}

type mergeRequest struct {
	source, target string
}

// Import closes every live module, then recreates the windows of doc,
// replays merges and finally connections. Windows that cannot be rebuilt are
// logged and skipped, as are merges and connections that reference them.
func (i *Importer) Import(doc Document) []component.Module {
	i.registry.Clear()

	catalog := i.catalog
	if catalog == nil {
		catalog = i.registry.Discover("")
	}

	instances := make(map[string]component.Module, len(doc.Windows))
	modules := make([]component.Module, 0, len(doc.Windows))
	var merges []mergeRequest

	for _, rec := range doc.Windows {
		m, mergeTarget, ok := i.instantiate(catalog, rec)
		if !ok {
			continue
		}
		instances[m.ID()] = m
		modules = append(modules, m)
		if mergeTarget != "" {
			merges = append(merges, mergeRequest{source: m.ID(), target: mergeTarget})
		}
	}

	for _, req := range merges {
		src, tgt := instances[req.source], instances[req.target]
		if src == nil || tgt == nil {
			i.logger.Warn("Merge target missing", "module_id", req.source, "target", req.target)
			continue
		}
		if err := src.MergeIntoE(tgt); err != nil {
			i.logger.Warn("Merge not restored", "module_id", req.source, "target", req.target, "error", err)
		}
	}

	for _, conn := range doc.Connections {
		i.connect(instances, conn)
	}

	i.logSummary(modules)
	i.metrics.RecordWorkspaceOp("import", "success")
	return modules
}

func (i *Importer) instantiate(catalog component.Catalog, rec component.Record) (component.Module, string, bool) {
	factory, ok := catalog[rec.Module]
	if !ok {
		i.logger.Warn("Unknown module", "kind", rec.Module, "module_id", rec.UUID)
		return nil, "", false
	}

	params := maps.Clone(rec.Params)
	if params == nil {
		params = map[string]any{}
	}
	mergeTarget, _ := params[component.MergedIntoParam].(string)
	delete(params, component.MergedIntoParam)

	raw, err := json.Marshal(params)
	if err != nil {
		i.logger.Error("Failed to encode params", "kind", rec.Module, "module_id", rec.UUID, "error", err)
		return nil, "", false
	}

	if rec.UUID != "" {
		if _, err := uuid.Parse(rec.UUID); err != nil {
			i.logger.Debug("Persisted id is not a UUID, kept verbatim", "module_id", rec.UUID)
		}
	}

	pos, size, visible := rec.Pos, rec.Size, rec.Visible
	placement := component.Placement{ID: rec.UUID, Pos: &pos, Size: &size, Visible: &visible}

	m, err := i.registry.Instantiate(rec.Module, factory, raw, placement)
	if err != nil {
		i.logger.Error("Failed to instantiate module", "kind", rec.Module, "module_id", rec.UUID, "error", err)
		return nil, "", false
	}
	return m, mergeTarget, true
}

func (i *Importer) connect(instances map[string]component.Module, conn Connection) {
	src := instances[conn.From]
	if src == nil {
		i.logger.Warn("Connection source missing", "from", conn.From)
		return
	}

	if conn.To.Legacy {
		for _, id := range conn.To.IDs {
			if tgt := instances[id]; tgt != nil {
				i.link(src, tgt, component.PortIndex(0))
			}
		}
		return
	}

	tgt := instances[firstID(conn.To)]
	if tgt == nil || conn.Output == "" {
		i.logger.Warn("Connection skipped", "from", conn.From, "output", conn.Output, "to", firstID(conn.To))
		return
	}
	i.link(src, tgt, outputRef(src, conn.Output))
}

func (i *Importer) link(src, tgt component.Module, ref component.OutputRef) {
	if err := src.ConnectE(tgt, ref); err != nil {
		i.logger.Warn("Connection not restored", "from", src.ID(), "output", ref.String(), "to", tgt.ID(), "error", err)
	}
}

// outputRef resolves a persisted output by name, falling back to a numeric
// index written by older files.
func outputRef(src component.Module, key OutputKey) component.OutputRef {
	name := string(key)
	if _, ok := src.OutputPorts().ByName(name); ok {
		return component.PortName(name)
	}
	if n, err := strconv.Atoi(name); err == nil {
		return component.PortIndex(n)
	}
	return component.PortName(name)
}

func firstID(t Targets) string {
	if len(t.IDs) == 0 {
		return ""
	}
	return t.IDs[0]
}

func (i *Importer) logSummary(modules []component.Module) {
	analysis := flowgraph.FromModules(modules).AnalyzeConnectivity()
	level := slog.LevelDebug
	if analysis.ValidationStatus == "errors" {
		level = slog.LevelWarn
	}
	i.logger.Log(context.Background(), level, "Workspace graph analysed",
		"status", analysis.ValidationStatus,
		"modules", len(modules),
		"cycles", len(analysis.Cycles),
		"incompatible_edges", len(analysis.IncompatibleEdges),
		"disconnected", len(analysis.DisconnectedNodes))
}
