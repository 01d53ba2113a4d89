package syncers_test

import (
	"context"
	"testing"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/syncers"
)

func TestArgoCDSyncer_DerivesNamespaceAndUmbrellaFlag(t *testing.T) {
	client := newFakeHTTPToolClient().on("argocd", "list_applications", map[string]interface{}{
		"applications": []interface{}{
			map[string]interface{}{
				"name":               "platform-apps",
				"destination_server": "https://10.0.0.50:6443",
				"path":               "clusters/edge/platform/platform-apps",
				"repo_url":           "https://git.example.com/homelab",
			},
		},
	})
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewArgoCDSyncer(client, "argocd", store, lm, discardLogger())

	result := s.Run(context.Background())

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	rows := store.RowsMergedFor(model.LabelArgoApp)
	if len(rows) != 1 {
		t.Fatalf("expected 1 app, got %d", len(rows))
	}
	if rows[0]["derived_namespace"] != "platform" {
		t.Fatalf("expected derived_namespace 'platform', got %v", rows[0]["derived_namespace"])
	}
	if rows[0]["path_tail"] != "platform-apps" {
		t.Fatalf("expected path_tail 'platform-apps', got %v", rows[0]["path_tail"])
	}
	if rows[0]["is_umbrella"] != true {
		t.Fatalf("expected -apps suffix to flag umbrella app")
	}
	if rows[0]["target_cluster"] != "edge" {
		t.Fatalf("expected path pattern match to resolve target_cluster 'edge', got %v", rows[0]["target_cluster"])
	}
}

func TestArgoCDSyncer_ResolvesTargetClusterFromDestinationServerIPPrefix(t *testing.T) {
	client := newFakeHTTPToolClient().on("argocd", "list_applications", map[string]interface{}{
		"applications": []interface{}{
			map[string]interface{}{
				"name":               "monitoring-stack",
				"destination_server": "https://10.20.0.1:6443",
				"path":               "clusters/secondary/monitoring/monitoring-stack",
				"repo_url":           "https://git.example.com/homelab",
			},
		},
	})
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewArgoCDSyncer(client, "argocd", store, lm, discardLogger())

	result := s.Run(context.Background())

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	rows := store.RowsMergedFor(model.LabelArgoApp)
	if len(rows) != 1 {
		t.Fatalf("expected 1 app, got %d", len(rows))
	}
	// Neither the path nor repo_url contains "edge", so this must come from
	// the destination_server IP-prefix table, not the string-matching
	// fallback, and must resolve to a real non-empty cluster name so linker
	// strategy 1 can actually join against Service.cluster.
	if rows[0]["target_cluster"] != "edge" {
		t.Fatalf("expected destination_server IP-prefix match to resolve target_cluster 'edge', got %v", rows[0]["target_cluster"])
	}
}
