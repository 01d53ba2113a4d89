package syncers_test

import (
	"context"
	"testing"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/syncers"
)

func TestCorootSyncer_FiltersClusterIDPseudoServicesFromDependsOn(t *testing.T) {
	client := newFakeHTTPToolClient().
		on("coroot", "list_alerts", map[string]interface{}{
			"alerts": []interface{}{
				map[string]interface{}{"name": "high-latency", "severity": "warning", "description": "p99 above threshold"},
			},
		}).
		on("coroot", "dependency_map", map[string]interface{}{
			"services": []interface{}{
				map[string]interface{}{
					"name":        "api",
					"upstreams":   []interface{}{"cluster-3f9a"},
					"downstreams": []interface{}{"postgres"},
				},
				map[string]interface{}{"name": "cluster-3f9a"},
			},
		})
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewCorootSyncer(client, "coroot", store, lm, discardLogger())

	result := s.Run(context.Background())

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	dependRows := store.RowsMergedFor(model.RelDependsOn)
	if len(dependRows) != 1 {
		t.Fatalf("expected only the api->postgres edge to survive pseudo-service filtering, got %d: %+v", len(dependRows), dependRows)
	}
	if dependRows[0]["from_service"] != "api" || dependRows[0]["to_service"] != "postgres" {
		t.Fatalf("expected api->postgres edge, got %+v", dependRows[0])
	}
}
