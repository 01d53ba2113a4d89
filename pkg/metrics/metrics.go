// Package metrics exposes the sync engine's Prometheus surface: a
// per-source row counter, a cycle duration histogram, and an orphan-pruned
// counter (spec §7, "orchestrator logs a per-source counter dict on
// completion" — mirrored here as scrapeable counters rather than only a log
// line).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every metric the sync engine and triage pipeline publish
// on /metrics. New constructs one with its own prometheus.Registry so tests
// can assert against it without touching the global default registry. The
// orchestrator and the triage pipeline accept a nil *Collector and then
// record nothing.
type Collector struct {
	registry *prometheus.Registry

	SyncedRows      *prometheus.CounterVec
	SyncCycleErrors *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
	OrphansPruned   prometheus.Counter
	LinkerEdges     *prometheus.CounterVec
	TriageRequests  *prometheus.CounterVec
	TriageDuration  prometheus.Histogram
}

// New builds a Collector registered against its own prometheus.Registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		SyncedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homelab_graph_synced_rows_total",
			Help: "Rows merged across all sync cycles, by source.",
		}, []string{"source"}),
		SyncCycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homelab_graph_sync_errors_total",
			Help: "Syncer failures, by source.",
		}, []string{"source"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "homelab_graph_sync_cycle_duration_seconds",
			Help:    "Wall-clock duration of a full sync cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		OrphansPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "homelab_graph_orphans_pruned_total",
			Help: "Nodes deleted by the aged-orphan sweep.",
		}),
		LinkerEdges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homelab_graph_linker_edges_total",
			Help: "Edges merged by the cross-source linker, by pass.",
		}, []string{"pass"}),
		TriageRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homelab_graph_triage_requests_total",
			Help: "Triage requests, by verdict.",
		}, []string{"verdict"}),
		TriageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "homelab_graph_triage_duration_seconds",
			Help:    "Wall-clock duration of a triage request.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		c.SyncedRows, c.SyncCycleErrors, c.CycleDuration, c.OrphansPruned,
		c.LinkerEdges, c.TriageRequests, c.TriageDuration,
	)
	return c
}

// Registry returns the collector's registry, for mounting on /metrics via
// promhttp.HandlerFor.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordSyncResult records one syncer's per-cycle outcome.
func (c *Collector) RecordSyncResult(source string, count int, err error) {
	c.SyncedRows.WithLabelValues(source).Add(float64(count))
	if err != nil {
		c.SyncCycleErrors.WithLabelValues(source).Inc()
	}
}

// RecordLinkerPass records one linker pass's merged-edge count.
func (c *Collector) RecordLinkerPass(pass string, count int) {
	c.LinkerEdges.WithLabelValues(pass).Add(float64(count))
}

// RecordTriage records one triage request's verdict.
func (c *Collector) RecordTriage(verdict string) {
	c.TriageRequests.WithLabelValues(verdict).Inc()
}
