package syncers_test

import (
	"context"
	"testing"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/syncers"
)

func TestHomeAssistantSyncer_DomainAndDeviceClassAllowlist(t *testing.T) {
	client := newFakeHTTPToolClient().on("home_assistant", "list_states", map[string]interface{}{
		"entities": []interface{}{
			map[string]interface{}{"entity_id": "light.kitchen", "state": "on"},
			map[string]interface{}{"entity_id": "sensor.outdoor_temp", "device_class": "temperature", "state": "21.5"},
			map[string]interface{}{"entity_id": "sensor.uptime", "device_class": "duration", "state": "12"},
			map[string]interface{}{"entity_id": "person.alice", "state": "home"},
		},
	})
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewHomeAssistantSyncer(client, "home_assistant", store, lm, discardLogger())

	result := s.Run(context.Background())

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	rows := store.RowsMergedFor(model.LabelHAEntity)
	if len(rows) != 2 {
		t.Fatalf("expected light + allowlisted temperature sensor only, got %d: %+v", len(rows), rows)
	}
	var ids []string
	for _, r := range rows {
		ids = append(ids, r["entity_id"].(string))
	}
	if !contains(ids, "light.kitchen") || !contains(ids, "sensor.outdoor_temp") {
		t.Fatalf("expected light.kitchen and sensor.outdoor_temp, got %v", ids)
	}
	if contains(ids, "sensor.uptime") {
		t.Fatalf("expected non-allowlisted sensor device_class to be dropped")
	}
	if contains(ids, "person.alice") {
		t.Fatalf("expected non-allowlisted domain to be dropped")
	}
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
