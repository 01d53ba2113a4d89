package syncers_test

import (
	"context"
	"strings"
	"testing"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/syncers"
)

func TestRunbooksSyncer_ScansSolutionTextForKnownNames(t *testing.T) {
	client := newFakeHTTPToolClient().on("runbooks", "list_runbooks", map[string]interface{}{
		"runbooks": []interface{}{
			map[string]interface{}{
				"qdrant_id":     "rb-1",
				"title":         "Fix Grafana dashboard timeouts",
				"solution_text": "Restart the grafana service on host nas1 to resolve HighMemoryUsage alerts.",
			},
		},
	})
	store := graph.NewMockStore()
	store.QueryFunc = func(cypher string, params map[string]interface{}) ([]graph.Record, error) {
		switch {
		case strings.Contains(cypher, model.LabelAlert):
			return []graph.Record{{"name": "HighMemoryUsage"}}, nil
		case strings.Contains(cypher, model.LabelService):
			return []graph.Record{{"name": "grafana"}}, nil
		case strings.Contains(cypher, model.LabelHost):
			return []graph.Record{{"name": "nas1"}}, nil
		}
		return nil, nil
	}
	lm := lifecycle.New(store, nil)
	s := syncers.NewRunbooksSyncer(client, "runbooks", store, lm, discardLogger())

	result := s.Run(context.Background())

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Count != 1 {
		t.Fatalf("expected 1 runbook document, got %d", result.Count)
	}
	if rows := store.RowsMergedFor(model.RelResolves); len(rows) != 1 || rows[0]["name"] != "HighMemoryUsage" {
		t.Fatalf("expected a RESOLVES edge to HighMemoryUsage, got %+v", rows)
	}
	if rows := store.RowsMergedFor(model.RelTroubleshoots); len(rows) != 1 || rows[0]["name"] != "grafana" {
		t.Fatalf("expected a TROUBLESHOOTS edge to grafana, got %+v", rows)
	}
	if rows := store.RowsMergedFor(model.RelAppliesTo); len(rows) != 1 || rows[0]["name"] != "nas1" {
		t.Fatalf("expected an APPLIES_TO edge to nas1, got %+v", rows)
	}
}
