package fleet

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/tpunanny/internal/worker"
)

// Registry holds every fleet metric. The CLI serves it on --metrics-addr.
var Registry = prometheus.NewRegistry()

var (
	// Reconciliation metrics
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpunanny",
			Subsystem: "fleet",
			Name:      "reconcile_total",
			Help:      "Total number of reconciliations by outcome",
		},
		[]string{"zone", "worker", "outcome"},
	)

	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tpunanny",
			Subsystem: "fleet",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation in seconds, including cooldown",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
		},
		[]string{"zone"},
	)

	workerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tpunanny",
			Subsystem: "fleet",
			Name:      "worker_state",
			Help:      "Last observed state of a worker (1 for the current state, 0 otherwise)",
		},
		[]string{"zone", "worker", "state"},
	)

	activeLoops = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tpunanny",
			Subsystem: "fleet",
			Name:      "active_loops",
			Help:      "Number of running babysit loops",
		},
	)

	// Remote script metrics
	scriptRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpunanny",
			Subsystem: "fleet",
			Name:      "script_runs_total",
			Help:      "Total number of remote script runs by result",
		},
		[]string{"zone", "worker", "result"},
	)

	// Reaper metrics
	reaperDeletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tpunanny",
			Subsystem: "reaper",
			Name:      "deletes_total",
			Help:      "Total number of reaper deletes by result",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		reconcileTotal,
		reconcileDuration,
		workerState,
		activeLoops,
		scriptRunsTotal,
		reaperDeletesTotal,
	)
}

// recordReconcileMetric records a reconciliation result.
func recordReconcileMetric(id worker.Identity, outcome string, duration float64) {
	reconcileTotal.WithLabelValues(id.Zone, id.ID, outcome).Inc()
	reconcileDuration.WithLabelValues(id.Zone).Observe(duration)
}

// recordWorkerStateMetric marks state as the current state of a worker.
func recordWorkerStateMetric(id worker.Identity, state worker.State) {
	for _, s := range []worker.State{
		worker.StateMissing, worker.StatePending, worker.StateActive,
		worker.StateSuspended, worker.StateFailed,
	} {
		value := 0.0
		if s == state {
			value = 1
		}
		workerState.WithLabelValues(id.Zone, id.ID, s.String()).Set(value)
	}
}

// recordScriptRunMetric records a remote script run.
func recordScriptRunMetric(id worker.Identity, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	scriptRunsTotal.WithLabelValues(id.Zone, id.ID, result).Inc()
}

// recordReaperDeleteMetric records one reaper delete.
func recordReaperDeleteMetric(result string) {
	reaperDeletesTotal.WithLabelValues(result).Inc()
}
