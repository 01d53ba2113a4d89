// Package syncers holds the per-source syncers (C4). Every syncer follows
// the same fetch-normalize-merge-mark contract (spec §4.4): fetch from its
// source client, normalize into Row dicts keyed by the graph's identity
// tuple, batch_merge, markActive, then any syncer-local relationship
// merges that depend only on data already fetched this cycle.
package syncers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
)

// Syncer is one source's sync unit, constructed with its own source client,
// graph.Store, and lifecycle.Manager so the orchestrator's cycle loop only
// ever calls Run. Run must never return an error that aborts the cycle —
// failures are logged internally and reported through Result: a zero Count
// with the error in Err (a recovered panic gives a zero Count and a nil
// Err).
type Syncer interface {
	Name() string
	Run(ctx context.Context) Result
}

// Result is what the orchestrator records per syncer per cycle.
type Result struct {
	Source string
	Count  int
	Err    error
}

// runSafely wraps a fetch-normalize-merge body so a panic in one syncer
// never takes down the orchestrator's cycle, matching the "never propagate"
// policy the triage specialists also follow (§4.8).
func runSafely(ctx context.Context, log *logrus.Logger, name string, fn func(ctx context.Context) (int, error)) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logging.NewFields().Component("syncer").Source(name).Fields()).
				Errorf("recovered from panic: %v", r)
			result = Result{Source: name, Count: 0}
		}
	}()

	count, err := fn(ctx)
	if err != nil {
		log.WithFields(logging.NewFields().Component("syncer").Source(name).Error(err).Fields()).
			Warn("syncer failed, recording zero count for this cycle")
		return Result{Source: name, Count: 0, Err: err}
	}
	return Result{Source: name, Count: count}
}
