package buffer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/visionflow/metric"
)

type bufferMetrics struct {
	registry *metric.MetricsRegistry
	prefix   string

	writes      prometheus.Counter
	reads       prometheus.Counter
	overflows   prometheus.Counter
	drops       prometheus.Counter
	size        prometheus.Gauge
	utilization prometheus.Gauge
}

func newBufferMetrics(registry *metric.MetricsRegistry, prefix string) (*bufferMetrics, error) {
	labels := prometheus.Labels{"component": prefix}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "visionflow", Subsystem: "buffer", Name: name, Help: help, ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "visionflow", Subsystem: "buffer", Name: name, Help: help, ConstLabels: labels,
		})
	}

	m := &bufferMetrics{
		registry:    registry,
		prefix:      prefix,
		writes:      counter("writes_total", "Items accepted into the buffer"),
		reads:       counter("reads_total", "Items taken from the buffer"),
		overflows:   counter("overflows_total", "Writes that found the buffer full"),
		drops:       counter("drops_total", "Items discarded by the overflow policy"),
		size:        gauge("size", "Current number of queued items"),
		utilization: gauge("utilization", "Queued items over capacity (0.0 to 1.0)"),
	}

	counters := map[string]prometheus.Counter{
		"buffer_writes":    m.writes,
		"buffer_reads":     m.reads,
		"buffer_overflows": m.overflows,
		"buffer_drops":     m.drops,
	}
	for name, c := range counters {
		if err := registry.RegisterCounter(prefix, name, c); err != nil {
			m.unregister()
			return nil, err
		}
	}
	for name, g := range map[string]prometheus.Gauge{"buffer_size": m.size, "buffer_utilization": m.utilization} {
		if err := registry.RegisterGauge(prefix, name, g); err != nil {
			m.unregister()
			return nil, err
		}
	}
	return m, nil
}

func (m *bufferMetrics) unregister() {
	for _, name := range []string{
		"buffer_writes", "buffer_reads", "buffer_overflows", "buffer_drops", "buffer_size", "buffer_utilization",
	} {
		m.registry.Unregister(m.prefix, name)
	}
}

func (m *bufferMetrics) recordSize(size, capacity int, write bool) {
	if m == nil {
		return
	}
	if write {
		m.writes.Inc()
	} else {
		m.reads.Inc()
	}
	m.size.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}

func (m *bufferMetrics) recordOverflow() {
	if m == nil {
		return
	}
	m.overflows.Inc()
}

func (m *bufferMetrics) recordDrop() {
	if m == nil {
		return
	}
	m.drops.Inc()
}
