package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/c360/visionflow/component"
	"github.com/c360/visionflow/componentregistry"
	"github.com/c360/visionflow/config"
	"github.com/c360/visionflow/errors"
	"github.com/c360/visionflow/flowstore"
	"github.com/c360/visionflow/metric"
	"github.com/c360/visionflow/surface"
	"github.com/c360/visionflow/workspace"
)

// sessionSnapshot names the snapshot written at every shutdown
const sessionSnapshot = "last-session"

// app owns everything a running editor session needs
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metric.MetricsRegistry
	server  *metric.Server
	surface *surface.Memory
	reg     *component.Registry
	store   *flowstore.Store
}

// newApp builds the registry and its collaborators. Nothing is listening
// until start is called.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	workerCfg, err := cfg.Worker.ToWorker()
	if err != nil {
		return nil, errors.WrapInvalid(err, "app", "newApp", "worker defaults")
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metric.NewMetricsRegistry(),
		surface: surface.NewMemory(),
	}
	a.reg = component.NewRegistry(
		component.WithSurface(a.surface),
		component.WithLogger(logger),
		component.WithMetrics(a.metrics),
		component.WithWorkerDefaults(workerCfg),
		component.WithContext(ctx),
	)
	if err := componentregistry.Register(a.reg, logger, cfg.Modules.Disabled...); err != nil {
		return nil, err
	}

	store, err := flowstore.Open(ctx, flowstore.Options{Dir: cfg.Workspace.StoreDir, Logger: logger})
	if err != nil {
		return nil, err
	}
	a.store = store

	if cfg.Metrics.Enabled {
		a.server = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, a.metrics)
	}
	return a, nil
}

// start opens the metrics endpoint and loads the configured workspace
func (a *app) start() error {
	if a.server != nil {
		if err := a.server.Start(); err != nil {
			return err
		}
		a.logger.Info("Metrics server started", "address", a.server.Address())
	}
	return a.loadWorkspace()
}

func (a *app) loadWorkspace() error {
	path := a.cfg.Workspace.Path
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); stderrors.Is(err, os.ErrNotExist) {
		a.logger.Info("Workspace not found, starting empty", "path", path)
		return nil
	}

	importer := workspace.NewImporter(a.reg,
		workspace.WithLogger(a.logger),
		workspace.WithMetrics(a.metrics),
	)
	_, err := importer.ImportFile(path)
	return err
}

// saveSnapshot stores the live graph as the session snapshot, creating it on
// first use.
func (a *app) saveSnapshot(ctx context.Context) error {
	doc := workspace.Export(a.reg.Modules())

	snap, err := a.store.Get(ctx, sessionSnapshot)
	if stderrors.Is(err, errors.ErrKeyNotFound) {
		_, err = a.store.Save(ctx, sessionSnapshot, "Saved at shutdown", doc)
		return err
	}
	if err != nil {
		return err
	}
	snap.Document = doc
	return a.store.Update(ctx, snap)
}

// shutdown persists the session, closes every module and releases the
// store and metrics endpoint. All steps run; their errors are joined.
func (a *app) shutdown(ctx context.Context, timeout time.Duration) error {
	var errs []error

	if a.cfg.Workspace.Autosave && a.cfg.Workspace.Path != "" {
		if err := workspace.ExportFile(a.reg, a.cfg.Workspace.Path, a.metrics); err != nil {
			errs = append(errs, err)
		} else {
			a.logger.Info("Workspace saved", "path", a.cfg.Workspace.Path, "modules", a.reg.Len())
		}
	}
	if err := a.saveSnapshot(ctx); err != nil {
		errs = append(errs, err)
	}

	a.reg.Clear()

	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.server != nil {
		if err := a.server.Stop(timeout); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// printKinds writes the catalog as a table, one kind per row
func printKinds(w io.Writer, reg *component.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "KIND\tNAME\tOUTPUTS\tACCEPTS")
	for _, id := range reg.KindIDs() {
		info, ok := reg.Kind(id)
		if !ok {
			continue
		}
		outputs := make([]string, 0, len(info.Outputs))
		for _, p := range info.Outputs {
			outputs = append(outputs, p.Name+":"+p.Type.String())
		}
		accepts := make([]string, 0, len(info.Accepts))
		for _, t := range info.Accepts {
			accepts = append(accepts, t.String())
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, info.DisplayName, join(outputs), join(accepts))
	}
	return tw.Flush()
}

func join(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}
