package lifecycle_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
)

func TestMarkAllStale_TouchesEveryManagedLabel(t *testing.T) {
	store := graph.NewMockStore()
	mgr := lifecycle.New(store, nil)

	mgr.MarkAllStale(context.Background())

	if len(store.WriteCalls) != len(model.ManagedLabels) {
		t.Fatalf("expected one write per managed label (%d), got %d", len(model.ManagedLabels), len(store.WriteCalls))
	}
	for _, c := range store.WriteCalls {
		if !strings.Contains(c.Cypher, "stale") {
			t.Errorf("expected stale assignment in cypher, got %q", c.Cypher)
		}
	}
}

func TestMarkActiveByField_SingleKeyLabel(t *testing.T) {
	store := graph.NewMockStore()
	mgr := lifecycle.New(store, nil)

	err := mgr.MarkActiveByField(context.Background(), model.LabelHost, "hostname", []string{"node-a", "node-b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := store.RowsMergedFor(model.LabelHost)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows merged, got %d", len(rows))
	}
	if rows[0]["hostname"] != "node-a" {
		t.Errorf("expected hostname node-a, got %v", rows[0]["hostname"])
	}
	if _, ok := rows[0]["__last_seen"]; !ok {
		t.Error("expected last_seen timestamp to be stamped onto the row")
	}
}

func TestMarkActive_CompoundIdentity(t *testing.T) {
	store := graph.NewMockStore()
	mgr := lifecycle.New(store, nil)

	err := mgr.MarkActive(context.Background(), model.LabelPod, []model.Row{
		{"name": "p-a", "namespace": "x", "cluster": "c"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.BatchMergeCalls) != 1 {
		t.Fatalf("expected 1 batch merge call, got %d", len(store.BatchMergeCalls))
	}
	stmt := store.BatchMergeCalls[0].Statement
	for _, field := range []string{"n.cluster = row.cluster", "n.name = row.name", "n.namespace = row.namespace"} {
		if !strings.Contains(stmt, field) {
			t.Errorf("expected predicate to reference %q, got %q", field, stmt)
		}
	}
}

func TestMarkActive_EmptyIsNoOp(t *testing.T) {
	store := graph.NewMockStore()
	mgr := lifecycle.New(store, nil)

	if err := mgr.MarkActive(context.Background(), model.LabelPod, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.BatchMergeCalls) != 0 {
		t.Fatalf("expected no batch merge calls for empty identities")
	}
}

func TestSweepStale_NeverTouchesProtectedLabels(t *testing.T) {
	store := graph.NewMockStore()
	mgr := lifecycle.New(store, nil)

	mgr.SweepStale(context.Background())

	for _, c := range store.WriteCalls {
		for protected := range model.ProtectedLabels {
			// Protection only exempts a label from orphan pruning; a label
			// that is also managed (StoragePool) is still swept when stale.
			if model.IsManaged(protected) {
				continue
			}
			if strings.Contains(c.Cypher, "MATCH (n:"+protected+")") {
				t.Errorf("sweep_stale must never touch protected label %s, got %q", protected, c.Cypher)
			}
		}
	}
}

func TestMarkOrphans_SkipsProtectedLabels(t *testing.T) {
	store := graph.NewMockStore()
	mgr := lifecycle.New(store, nil)

	mgr.MarkOrphans(context.Background())

	for _, c := range store.WriteCalls {
		for protected := range model.ProtectedLabels {
			if strings.Contains(c.Cypher, "(n:"+protected+")") {
				t.Errorf("mark_orphans must never touch protected label %s", protected)
			}
		}
	}
}

func TestSweepAgedOrphans_UsesPerLabelGracePeriod(t *testing.T) {
	store := graph.NewMockStore()
	mgr := lifecycle.New(store, nil)
	fixedNow := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	mgr.SetClock(func() time.Time { return fixedNow })

	mgr.SweepAgedOrphans(context.Background())

	// Pod has a 1-day grace period; Host has 30.
	var podCutoff, hostCutoff string
	for _, c := range store.WriteCalls {
		if strings.Contains(c.Cypher, "(n:"+model.LabelPod+")") {
			podCutoff = c.Params["cutoff"].(string)
		}
		if strings.Contains(c.Cypher, "(n:"+model.LabelHost+")") {
			hostCutoff = c.Params["cutoff"].(string)
		}
	}
	wantPod := fixedNow.Add(-24 * time.Hour).Format(time.RFC3339)
	wantHost := fixedNow.Add(-30 * 24 * time.Hour).Format(time.RFC3339)
	if podCutoff != wantPod {
		t.Errorf("pod cutoff = %s, want %s", podCutoff, wantPod)
	}
	if hostCutoff != wantHost {
		t.Errorf("host cutoff = %s, want %s", hostCutoff, wantHost)
	}
}

func TestSweepAgedOrphans_NeverVisitsProtectedLabels(t *testing.T) {
	store := graph.NewMockStore()
	mgr := lifecycle.New(store, nil)

	mgr.SweepAgedOrphans(context.Background())

	for _, c := range store.WriteCalls {
		for protected := range model.ProtectedLabels {
			if strings.Contains(c.Cypher, "(n:"+protected+")") {
				t.Fatalf("sweep_aged_orphans touched protected label %s (invariant I6 violation)", protected)
			}
		}
	}
}

func TestMarkOrphans_ClearsOrphanSinceWhenNodeBecomesProtected(t *testing.T) {
	store := graph.NewMockStore()
	mgr := lifecycle.New(store, nil)

	mgr.MarkOrphans(context.Background())

	// A node that gains _protected while still at zero relationships (e.g. a
	// human adds a description to an orphan) must have orphan_since cleared
	// even though (n)--() stays false, or SweepAgedOrphans would eventually
	// delete a node invariant I6 says must be excluded.
	var clearCypher string
	for _, c := range store.WriteCalls {
		if strings.Contains(c.Cypher, "REMOVE n.orphan_since") {
			clearCypher = c.Cypher
			break
		}
	}
	if clearCypher == "" {
		t.Fatal("expected a write clearing orphan_since")
	}
	if !strings.Contains(clearCypher, "_protected") {
		t.Errorf("clear-orphan cypher must also clear orphan_since when _protected is true, got %q", clearCypher)
	}
}

func TestSweepAgedOrphans_NeverDeletesProtectedNode(t *testing.T) {
	store := graph.NewMockStore()
	mgr := lifecycle.New(store, nil)

	mgr.SweepAgedOrphans(context.Background())

	for _, c := range store.WriteCalls {
		if strings.Contains(c.Cypher, "DETACH DELETE n") && !strings.Contains(c.Cypher, "_protected") {
			t.Errorf("sweep_aged_orphans delete cypher must filter on _protected, got %q", c.Cypher)
		}
	}
}

func TestFailuresAreLoggedNotFatal(t *testing.T) {
	store := graph.NewMockStore()
	store.WriteFunc = func(cypher string, params map[string]interface{}) ([]graph.Record, error) {
		return nil, context.DeadlineExceeded
	}
	mgr := lifecycle.New(store, nil)

	// None of these should panic or return an error the caller must handle;
	// lifecycle operations are best-effort per spec §4.3.
	mgr.MarkAllStale(context.Background())
	mgr.SweepStale(context.Background())
	mgr.MarkOrphans(context.Background())
	mgr.SweepAgedOrphans(context.Background())
}
