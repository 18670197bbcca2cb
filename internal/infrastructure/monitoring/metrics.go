package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the reactive runtime.
type Metrics struct {
	// Store metrics
	WritesTotal     prometheus.Counter
	NoopWritesTotal prometheus.Counter
	PendingKeys     prometheus.Gauge
	ValuesHeld      prometheus.Gauge

	// Scheduler metrics
	FlushesTotal       prometheus.Counter
	NotificationsTotal prometheus.Counter
	FlushDuration      prometheus.Histogram

	// Fault isolation metrics
	WatcherErrors prometheus.Counter
	ComputeErrors prometheus.Counter

	// Computed engine metrics
	ComputedEvals prometheus.Counter

	// Bridge metrics
	BridgePolls   prometheus.Counter
	BridgePulls   prometheus.Counter
	BridgePushes  prometheus.Counter
	BridgeErrors  prometheus.Counter
	ModulesLoaded prometheus.Counter
	FunctionCalls *prometheus.CounterVec

	// Instance metrics
	InstancesActive prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector backed by its own registry,
// so independent runtime instances (and tests) never collide on metric names.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		WritesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_store_writes_total",
			Help: "Total number of effective store writes",
		}),
		NoopWritesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_store_noop_writes_total",
			Help: "Total number of writes discarded by value-equality",
		}),
		PendingKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "runtime_store_pending_keys",
			Help: "Number of keys awaiting the next flush",
		}),
		ValuesHeld: factory.NewGauge(prometheus.GaugeOpts{
			Name: "runtime_store_values",
			Help: "Number of keys currently held by the store",
		}),

		FlushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_scheduler_flushes_total",
			Help: "Total number of batch flushes",
		}),
		NotificationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_scheduler_notifications_total",
			Help: "Total number of watcher callback invocations",
		}),
		FlushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "runtime_scheduler_flush_duration_seconds",
			Help:    "Flush duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),

		WatcherErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_watcher_errors_total",
			Help: "Total number of isolated watcher callback failures",
		}),
		ComputeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_compute_errors_total",
			Help: "Total number of isolated computed derivation failures",
		}),

		ComputedEvals: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_computed_evaluations_total",
			Help: "Total number of computed value evaluations",
		}),

		BridgePolls: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_bridge_polls_total",
			Help: "Total number of bridge memory poll cycles",
		}),
		BridgePulls: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_bridge_pulls_total",
			Help: "Total number of values pulled from sandbox memory",
		}),
		BridgePushes: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_bridge_pushes_total",
			Help: "Total number of values pushed into sandbox memory",
		}),
		BridgeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_bridge_errors_total",
			Help: "Total number of bridge sync or call errors",
		}),
		ModulesLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "runtime_modules_loaded_total",
			Help: "Total number of successfully loaded modules",
		}),
		FunctionCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "runtime_sandbox_calls_total",
			Help: "Total number of sandbox function calls",
		}, []string{"function", "status"}),

		InstancesActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "runtime_instances_active",
			Help: "Number of live runtime instances",
		}),
	}
}

// Registry returns the underlying registry for exposition handlers.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordWrite records an effective store write.
func (m *Metrics) RecordWrite() {
	if m == nil {
		return
	}
	m.WritesTotal.Inc()
}

// RecordNoopWrite records a write discarded by value-equality.
func (m *Metrics) RecordNoopWrite() {
	if m == nil {
		return
	}
	m.NoopWritesTotal.Inc()
}

// RecordFlush records one flush and its duration.
func (m *Metrics) RecordFlush(d time.Duration, notifications int) {
	if m == nil {
		return
	}
	m.FlushesTotal.Inc()
	m.FlushDuration.Observe(d.Seconds())
	m.NotificationsTotal.Add(float64(notifications))
}

// RecordWatcherError records an isolated watcher failure.
func (m *Metrics) RecordWatcherError() {
	if m == nil {
		return
	}
	m.WatcherErrors.Inc()
}

// RecordComputeError records an isolated computed derivation failure.
func (m *Metrics) RecordComputeError() {
	if m == nil {
		return
	}
	m.ComputeErrors.Inc()
}

// RecordComputedEval records one computed evaluation.
func (m *Metrics) RecordComputedEval() {
	if m == nil {
		return
	}
	m.ComputedEvals.Inc()
}

// SetGauges updates the store occupancy gauges.
func (m *Metrics) SetGauges(values, pending int) {
	if m == nil {
		return
	}
	m.ValuesHeld.Set(float64(values))
	m.PendingKeys.Set(float64(pending))
}

// RecordPoll records one bridge poll cycle with the number of pulled values.
func (m *Metrics) RecordPoll(pulled int) {
	if m == nil {
		return
	}
	m.BridgePolls.Inc()
	m.BridgePulls.Add(float64(pulled))
}

// RecordPush records one value pushed into sandbox memory.
func (m *Metrics) RecordPush() {
	if m == nil {
		return
	}
	m.BridgePushes.Inc()
}

// RecordBridgeError records a bridge sync or call error.
func (m *Metrics) RecordBridgeError() {
	if m == nil {
		return
	}
	m.BridgeErrors.Inc()
}

// RecordModuleLoaded records a successful module load.
func (m *Metrics) RecordModuleLoaded() {
	if m == nil {
		return
	}
	m.ModulesLoaded.Inc()
}

// RecordFunctionCall records a sandbox function call outcome.
func (m *Metrics) RecordFunctionCall(name string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.FunctionCalls.WithLabelValues(name, status).Inc()
}
