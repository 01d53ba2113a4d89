// Package lifecycle implements the mark/sweep/orphan-grace state machine
// from spec §4.3. It is the only package, besides the syncers themselves,
// that is allowed to set or clear `_sync_status`, `orphan_since`, and
// `_protected`.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/charlieshreck/homelab-graph/internal/logging"
	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/model"
)

// Manager drives the state machine described in spec §4.3. All operations
// are best-effort: a failure on one label is logged and does not abort the
// pass over the remaining labels (spec §4.3, "Failure semantics").
type Manager struct {
	store graph.Store
	log   *logrus.Entry
	now   func() time.Time
}

// New builds a Manager. log may be nil, in which case a discard logger is
// used (convenient for unit tests that only assert on the store).
func New(store graph.Store, log *logrus.Entry) *Manager {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Manager{store: store, log: log, now: time.Now}
}

// SetClock overrides the manager's time source; used by tests that need a
// deterministic "now" to exercise orphan-grace boundaries.
func (m *Manager) SetClock(fn func() time.Time) {
	m.now = fn
}

func (m *Manager) nowString() string {
	return m.now().UTC().Format(time.RFC3339)
}

// MarkAllStale sets `_sync_status='stale'` on every node of every managed
// label. Called once at the start of a cycle, before any syncer runs.
func (m *Manager) MarkAllStale(ctx context.Context) {
	for _, label := range model.ManagedLabels {
		cypher := fmt.Sprintf("MATCH (n:%s) SET n._sync_status = '%s'", label, model.SyncStatusStale)
		if _, err := m.store.Write(ctx, cypher, nil); err != nil {
			m.log.WithFields(logging.NewFields().Component("lifecycle").Operation("mark_all_stale").Resource(label, "").Error(err).Fields()).
				Warn("failed to mark label stale")
		}
	}
}

// MarkActive batch-tags identities as active and refreshes last_seen. Each
// identity map must carry exactly the identity-tuple fields for label;
// MarkActive derives its MATCH predicate from the keys of the first
// identity (every row in one call is expected to share the same shape).
func (m *Manager) MarkActive(ctx context.Context, label string, identities []model.Row) error {
	if len(identities) == 0 {
		return nil
	}
	keys := sortedKeys(identities[0])
	predicate := matchPredicate(keys)

	rows := make([]map[string]interface{}, 0, len(identities))
	for _, id := range identities {
		rows = append(rows, map[string]interface{}(id))
	}

	statement := fmt.Sprintf(
		"MATCH (n:%s) WHERE %s SET n._sync_status = '%s', n.last_seen = row.__last_seen",
		label, predicate, model.SyncStatusActive,
	)
	ts := m.nowString()
	for i := range rows {
		rows[i]["__last_seen"] = ts
	}
	if err := m.store.BatchMerge(ctx, statement, rows); err != nil {
		m.log.WithFields(logging.NewFields().Component("lifecycle").Operation("mark_active").Resource(label, "").Error(err).Fields()).
			Warn("failed to mark identities active")
		return err
	}
	return nil
}

// MarkActiveByField is a convenience wrapper for labels with a single-field
// identity tuple (spec §4.3's `markActive(label, ids, idField='name')`).
func (m *Manager) MarkActiveByField(ctx context.Context, label, idField string, ids []string) error {
	identities := make([]model.Row, 0, len(ids))
	for _, id := range ids {
		identities = append(identities, model.Row{idField: id})
	}
	return m.MarkActive(ctx, label, identities)
}

// SweepStale detach-deletes every node still marked stale, for every
// managed label. This runs even when an upstream syncer crashed (spec §4.7
// Q1): the orphan-grace window is what absorbs that case, not a special
// exemption here.
func (m *Manager) SweepStale(ctx context.Context) {
	for _, label := range model.ManagedLabels {
		cypher := fmt.Sprintf("MATCH (n:%s) WHERE n._sync_status = '%s' DETACH DELETE n", label, model.SyncStatusStale)
		if _, err := m.store.Write(ctx, cypher, nil); err != nil {
			m.log.WithFields(logging.NewFields().Component("lifecycle").Operation("sweep_stale").Resource(label, "").Error(err).Fields()).
				Warn("failed to sweep stale nodes")
		}
	}
}

// MarkOrphans flags manually-enriched nodes as protected, then marks
// orphan_since on unprotected managed nodes with zero relationships, and
// clears orphan_since on any node that has relationships again.
func (m *Manager) MarkOrphans(ctx context.Context) {
	for _, label := range model.ManagedLabels {
		if model.IsProtected(label) {
			continue
		}

		protectCypher := fmt.Sprintf(
			`MATCH (n:%s) WHERE coalesce(n.description, '') <> '' OR coalesce(n.notes, '') <> '' OR coalesce(n.owner, '') <> '' SET n._protected = true`,
			label,
		)
		if _, err := m.store.Write(ctx, protectCypher, nil); err != nil {
			m.log.WithFields(logging.NewFields().Component("lifecycle").Operation("protect_enriched").Resource(label, "").Error(err).Fields()).
				Warn("failed to flag manually-enriched nodes")
		}

		markCypher := fmt.Sprintf(
			`MATCH (n:%s) WHERE NOT (n)--() AND n.orphan_since IS NULL AND coalesce(n._protected, false) = false SET n.orphan_since = $now`,
			label,
		)
		if _, err := m.store.Write(ctx, markCypher, map[string]interface{}{"now": m.nowString()}); err != nil {
			m.log.WithFields(logging.NewFields().Component("lifecycle").Operation("mark_orphans").Resource(label, "").Error(err).Fields()).
				Warn("failed to mark orphans")
		}

		clearCypher := fmt.Sprintf(
			`MATCH (n:%s) WHERE n.orphan_since IS NOT NULL AND ((n)--() OR coalesce(n._protected, false) = true) REMOVE n.orphan_since`,
			label,
		)
		if _, err := m.store.Write(ctx, clearCypher, nil); err != nil {
			m.log.WithFields(logging.NewFields().Component("lifecycle").Operation("clear_orphans").Resource(label, "").Error(err).Fields()).
				Warn("failed to clear stale orphan markers")
		}
	}
}

// SweepAgedOrphans deletes every orphan whose orphan_since is older than
// its label's grace period (spec §4.3's grace tiers). Protected labels are
// never visited (invariant I6).
func (m *Manager) SweepAgedOrphans(ctx context.Context) {
	for _, label := range model.ManagedLabels {
		if model.IsProtected(label) {
			continue
		}
		cutoff := m.now().Add(-model.GracePeriod(label)).UTC().Format(time.RFC3339)
		cypher := fmt.Sprintf(
			`MATCH (n:%s) WHERE n.orphan_since IS NOT NULL AND n.orphan_since < $cutoff AND coalesce(n._protected, false) = false DETACH DELETE n`,
			label,
		)
		if _, err := m.store.Write(ctx, cypher, map[string]interface{}{"cutoff": cutoff}); err != nil {
			m.log.WithFields(logging.NewFields().Component("lifecycle").Operation("sweep_aged_orphans").Resource(label, "").Error(err).Fields()).
				Warn("failed to sweep aged orphans")
		}
	}
}

func sortedKeys(row model.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func matchPredicate(keys []string) string {
	clauses := make([]string, 0, len(keys))
	for _, k := range keys {
		clauses = append(clauses, fmt.Sprintf("n.%s = row.%s", k, k))
	}
	out := ""
	for i, c := range clauses {
		if i > 0 {
			out += " AND "
		}
		out += c
	}
	return out
}
