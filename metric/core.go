package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "visionflow"

// Metrics contains the engine-level metrics shared by every module
type Metrics struct {
	ModulesLive        *prometheus.GaugeVec
	Emissions          *prometheus.CounterVec
	InputsRefused      *prometheus.CounterVec
	ConnectsRejected   *prometheus.CounterVec
	MergeTransitions   *prometheus.CounterVec
	WorkerItems        *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec
	WorkspaceOps       *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
}

// NewMetrics creates the engine metrics. They are registered by NewMetricsRegistry.
func NewMetrics() *Metrics {
	return &Metrics{
		ModulesLive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "registry",
				Name:      "modules_live",
				Help:      "Number of registered modules per kind",
			},
			[]string{"kind"},
		),

		Emissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graph",
				Name:      "emissions_total",
				Help:      "Payload deliveries from an output port to a target module",
			},
			[]string{"kind", "port"},
		),

		InputsRefused: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graph",
				Name:      "inputs_refused_total",
				Help:      "Deliveries a target module declined",
			},
			[]string{"kind"},
		),

		ConnectsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graph",
				Name:      "connects_rejected_total",
				Help:      "Connect attempts refused by port resolution or type check",
			},
			[]string{"reason"},
		),

		MergeTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "composition",
				Name:      "transitions_total",
				Help:      "Merge state transitions (merged, restored, rejected)",
			},
			[]string{"result"},
		),

		WorkerItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "items_total",
				Help:      "Worker items by outcome",
			},
			[]string{"kind", "status"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "worker",
				Name:      "processing_duration_seconds",
				Help:      "Time spent in a worker processing function",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"kind"},
		),

		WorkspaceOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workspace",
				Name:      "operations_total",
				Help:      "Workspace export and import operations",
			},
			[]string{"op", "status"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Locally recovered errors by component and class",
			},
			[]string{"component", "class"},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.ModulesLive,
		c.Emissions,
		c.InputsRefused,
		c.ConnectsRejected,
		c.MergeTransitions,
		c.WorkerItems,
		c.ProcessingDuration,
		c.WorkspaceOps,
		c.ErrorsTotal,
	}
}

// RecordModuleLive adjusts the live module gauge for a kind by delta
func (c *Metrics) RecordModuleLive(kind string, delta float64) {
	if c == nil {
		return
	}
	c.ModulesLive.WithLabelValues(kind).Add(delta)
}

// RecordEmission counts one delivery on a port
func (c *Metrics) RecordEmission(kind, port string) {
	if c == nil {
		return
	}
	c.Emissions.WithLabelValues(kind, port).Inc()
}

// RecordInputRefused counts a delivery the target declined
func (c *Metrics) RecordInputRefused(kind string) {
	if c == nil {
		return
	}
	c.InputsRefused.WithLabelValues(kind).Inc()
}

// RecordConnectRejected counts a refused connect attempt
func (c *Metrics) RecordConnectRejected(reason string) {
	if c == nil {
		return
	}
	c.ConnectsRejected.WithLabelValues(reason).Inc()
}

// RecordMerge counts a composition transition
func (c *Metrics) RecordMerge(result string) {
	if c == nil {
		return
	}
	c.MergeTransitions.WithLabelValues(result).Inc()
}

// RecordWorkerItem counts a processed item and observes its duration
func (c *Metrics) RecordWorkerItem(kind, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.WorkerItems.WithLabelValues(kind, status).Inc()
	c.ProcessingDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordWorkspaceOp counts an export or import
func (c *Metrics) RecordWorkspaceOp(op, status string) {
	if c == nil {
		return
	}
	c.WorkspaceOps.WithLabelValues(op, status).Inc()
}

// RecordError counts a locally recovered error
func (c *Metrics) RecordError(component, class string) {
	if c == nil {
		return
	}
	c.ErrorsTotal.WithLabelValues(component, class).Inc()
}
