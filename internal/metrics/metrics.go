// Package metrics exposes the counters the storage core owns:
// package-level prometheus collectors registered once into a dedicated
// registry. No HTTP exposition is wired here; that surface belongs to an
// external collaborator.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry *prometheus.Registry
	initOnce sync.Once

	// RemovedExpiredKeysTotal counts lazily-expired keys, by type.
	RemovedExpiredKeysTotal *prometheus.CounterVec

	// GCTasksDispatchedTotal counts GC tasks handed to a worker.
	GCTasksDispatchedTotal prometheus.Counter
	// GCTasksCompletedTotal counts GC tasks whose txn_gc fan-out committed.
	GCTasksCompletedTotal prometheus.Counter
	// GCVersionExhaustedTotal counts version_for_new failures due to
	// exhausting the 16-bit version space for a key.
	GCVersionExhaustedTotal prometheus.Counter

	// TxnConflictsTotal counts store.ErrConflict occurrences observed by
	// retryCall, whether or not the retry eventually succeeded.
	TxnConflictsTotal prometheus.Counter
)

// Init registers all collectors into a fresh registry. Safe to call more
// than once; only the first call has effect.
func Init() *prometheus.Registry {
	initOnce.Do(func() {
		registry = prometheus.NewRegistry()

		RemovedExpiredKeysTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duskdb",
			Name:      "removed_expired_keys_total",
			Help:      "Keys removed by lazy expiry, labeled by type.",
		}, []string{"type"})

		GCTasksDispatchedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "duskdb",
			Name:      "gc_tasks_dispatched_total",
			Help:      "GC tasks dispatched from the master loop to a worker.",
		})

		GCTasksCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "duskdb",
			Name:      "gc_tasks_completed_total",
			Help:      "GC tasks whose physical fan-out delete committed.",
		})

		GCVersionExhaustedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "duskdb",
			Name:      "gc_version_exhausted_total",
			Help:      "version_for_new calls that failed with version-exhausted.",
		})

		TxnConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "duskdb",
			Name:      "txn_conflicts_total",
			Help:      "Transaction commits that failed due to a write conflict.",
		})

		registry.MustRegister(
			RemovedExpiredKeysTotal,
			GCTasksDispatchedTotal,
			GCTasksCompletedTotal,
			GCVersionExhaustedTotal,
			TxnConflictsTotal,
		)
	})

	return registry
}

// Registry returns the registry, initializing it if needed. An external
// scrape-endpoint collaborator uses this to expose /metrics; this package
// never serves HTTP itself.
func Registry() *prometheus.Registry {
	if registry == nil {
		return Init()
	}
	return registry
}
