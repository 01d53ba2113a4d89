package syncers_test

import (
	"context"
	"testing"

	corev1 "k8s.io/api/core/v1"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/syncers"
)

func TestK8sServicesSyncer_BridgeDetectionAndSelectorStringification(t *testing.T) {
	client := &fakeK8sClient{
		clusters: []string{"home"},
		services: []corev1.Service{
			{
				ObjectMeta: metaNameNS("headless-bridge", "default"),
				Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeClusterIP, Selector: nil},
			},
			{
				ObjectMeta: metaNameNS("api", "default"),
				Spec: corev1.ServiceSpec{
					Type:     corev1.ServiceTypeClusterIP,
					Selector: map[string]string{"b": "2", "a": "1"},
				},
			},
		},
	}
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewK8sServicesSyncer(client, store, lm, discardLogger())

	s.Run(context.Background())

	rows := store.RowsMergedFor(model.LabelService)
	if len(rows) != 2 {
		t.Fatalf("expected 2 services, got %d", len(rows))
	}
	byName := map[string]map[string]interface{}{}
	for _, r := range rows {
		byName[r["name"].(string)] = r
	}
	if byName["headless-bridge"]["is_bridge"] != true {
		t.Fatalf("expected headless-bridge to be flagged as bridge")
	}
	if byName["api"]["is_bridge"] != false {
		t.Fatalf("expected api service to not be a bridge")
	}
	if byName["api"]["selector"] != "a=1,b=2" {
		t.Fatalf("expected deterministic sorted selector string, got %v", byName["api"]["selector"])
	}
}
