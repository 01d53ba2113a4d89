package syncers_test

import (
	"context"
	"testing"

	"github.com/charlieshreck/homelab-graph/pkg/graph"
	"github.com/charlieshreck/homelab-graph/pkg/lifecycle"
	"github.com/charlieshreck/homelab-graph/pkg/model"
	"github.com/charlieshreck/homelab-graph/pkg/syncers"
)

func TestTasmotaSyncer_MACExactMatchPreferredOverFuzzyName(t *testing.T) {
	client := newFakeHTTPToolClient().
		on("tasmota", "list_devices", map[string]interface{}{
			"devices": []interface{}{
				map[string]interface{}{"ip": "10.0.0.30", "mac": "AA:BB:CC:DD:EE:FF", "name": "plug-office"},
			},
		}).
		on("home_assistant", "list_states", map[string]interface{}{
			"entities": []interface{}{
				map[string]interface{}{"entity_id": "switch.aabbccddeeff"},
				map[string]interface{}{"entity_id": "switch.plug_office_fuzzy"},
			},
		})
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewTasmotaSyncer(client, "tasmota", store, lm, discardLogger())

	result := s.Run(context.Background())

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	exposeRows := store.RowsMergedFor(model.RelExposes)
	if len(exposeRows) != 1 {
		t.Fatalf("expected 1 expose row, got %d", len(exposeRows))
	}
	if exposeRows[0]["entity_id"] != "switch.aabbccddeeff" {
		t.Fatalf("expected MAC-exact match to win, got %v", exposeRows[0]["entity_id"])
	}
	if exposeRows[0]["match_type"] != "mac_exact" || exposeRows[0]["confidence"] != 1.0 {
		t.Fatalf("expected mac_exact match at confidence 1.0, got %+v", exposeRows[0])
	}
}

func TestTasmotaSyncer_FallsBackToFuzzyNameMatch(t *testing.T) {
	client := newFakeHTTPToolClient().
		on("tasmota", "list_devices", map[string]interface{}{
			"devices": []interface{}{
				map[string]interface{}{"ip": "10.0.0.31", "mac": "11:22:33:44:55:66", "name": "bedroom_lamp"},
			},
		}).
		on("home_assistant", "list_states", map[string]interface{}{
			"entities": []interface{}{
				map[string]interface{}{"entity_id": "light.bedroom_lamp"},
			},
		})
	store := graph.NewMockStore()
	lm := lifecycle.New(store, nil)
	s := syncers.NewTasmotaSyncer(client, "tasmota", store, lm, discardLogger())

	s.Run(context.Background())

	exposeRows := store.RowsMergedFor(model.RelExposes)
	if len(exposeRows) != 1 || exposeRows[0]["match_type"] != "name_fuzzy" {
		t.Fatalf("expected fuzzy name fallback, got %+v", exposeRows)
	}
	if exposeRows[0]["confidence"] != 0.5 {
		t.Fatalf("expected confidence 0.5 for fuzzy match, got %v", exposeRows[0]["confidence"])
	}
}
