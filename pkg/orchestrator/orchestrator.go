// Package orchestrator implements the sync cycle driver (C7, spec §4.7):
// mark-all-stale, run every syncer in SYNC_ORDER, link, dedup, sweep,
// mark/sweep orphans. No single syncer failure aborts the cycle.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/dedup"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/linker"
	"github.com/charlieshreck/homelab-graph/pkg/metrics"
	"github.com/charlieshreck/homelab-graph/pkg/syncers"
)

// Orchestrator drives one full sync cycle over a fixed, ordered list of
// syncers (spec §4.7's SYNC_ORDER: nodes that other syncers reference as
// targets must exist before the syncer that links to them runs).
type Orchestrator struct {
	syncers   []syncers.Syncer
	store     graph.Store
	lifecycle *lifecycle.Manager
	linker    *linker.Linker
	dedup     *dedup.Deduper
	metrics   *metrics.Collector
	log       *logrus.Logger
}

// New builds an Orchestrator. orderedSyncers must already be in SYNC_ORDER;
// New does not reorder them; the concrete order is built by Build in
// wiring.go, and taking the list as a parameter keeps Orchestrator testable
// with a handful of fakes instead of a full config-driven client fleet.
func New(orderedSyncers []syncers.Syncer, store graph.Store, lm *lifecycle.Manager, lk *linker.Linker, dd *dedup.Deduper, mc *metrics.Collector, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{syncers: orderedSyncers, store: store, lifecycle: lm, linker: lk, dedup: dd, metrics: mc, log: log}
}

// CycleReport summarizes one cycle for logging and the admin API.
type CycleReport struct {
	CorrelationID string
	Duration      time.Duration
	SyncResults   []syncers.Result
	LinkerResults []linker.Result
	DedupResults  []dedup.Result
}

// RunCycle executes the full pipeline described in spec §4.7. It never
// returns an error: every step is already best-effort internally, and a
// cycle that found nothing to do is still a successful cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) CycleReport {
	correlationID := uuid.NewString()
	start := time.Now()
	log := o.log.WithFields(logging.NewFields().Component("orchestrator").Operation("run_cycle").CorrelationID(correlationID).Fields())
	log.Info("sync cycle starting")

	o.lifecycle.MarkAllStale(ctx)

	syncResults := make([]syncers.Result, 0, len(o.syncers))
	for _, s := range o.syncers {
		result := s.Run(ctx)
		syncResults = append(syncResults, result)
		if o.metrics != nil {
			o.metrics.RecordSyncResult(result.Source, result.Count, result.Err)
		}
		fields := logging.NewFields().Component("orchestrator").Operation("syncer").Source(result.Source).Count(result.Count).CorrelationID(correlationID)
		if result.Err != nil {
			o.log.WithFields(fields.Error(result.Err).Fields()).Warn("syncer reported a failure this cycle")
		} else {
			o.log.WithFields(fields.Fields()).Debug("syncer completed")
		}
	}

	linkerResults := o.linker.Run(ctx)
	for _, r := range linkerResults {
		if o.metrics != nil {
			o.metrics.RecordLinkerPass(r.Pass, r.Count)
		}
		if r.Err != nil {
			log.WithFields(logging.NewFields().Operation("linker").Resource("pass", r.Pass).Error(r.Err).Fields()).
				Warn("linker pass failed, continuing")
		}
	}

	dedupResults := o.dedup.Run(ctx)
	for _, r := range dedupResults {
		if r.Err != nil {
			log.WithFields(logging.NewFields().Operation("dedup").Resource("step", r.Step).Error(r.Err).Fields()).
				Warn("dedup step failed, continuing")
		}
	}

	o.lifecycle.SweepStale(ctx)
	o.lifecycle.MarkOrphans(ctx)
	o.lifecycle.SweepAgedOrphans(ctx)

	report := CycleReport{
		CorrelationID: correlationID,
		Duration:      time.Since(start),
		SyncResults:   syncResults,
		LinkerResults: linkerResults,
		DedupResults:  dedupResults,
	}
	if o.metrics != nil {
		o.metrics.CycleDuration.Observe(report.Duration.Seconds())
	}
	log.WithFields(logging.NewFields().Duration(report.Duration).Fields()).
		Info("sync cycle complete")
	return report
}

// Run ticks RunCycle on interval until ctx is canceled, running one cycle
// immediately on start (spec §1's "pull-based periodic sync").
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) {
	o.RunCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.RunCycle(ctx)
		}
	}
}

// Metrics returns the Collector this Orchestrator reports to, so cmd/syncd
// can mount the same registry on its admin server's /metrics endpoint.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// Close releases the graph store's connection pool, the only stateful
// "source" this process owns (the REST/k8s clients are stateless HTTP
// round-trippers with nothing to close).
func (o *Orchestrator) Close(ctx context.Context) error {
	return o.store.Close(ctx)
}
