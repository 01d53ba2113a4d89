package specialists_test

import (
	"context"
	"testing"

	"github.com/charlieshreck/homelab-graph/pkg/specialists"
)

func TestInfrastructureSpecialist_RoutesByAlertSource(t *testing.T) {
	llmClient := &fakeLLMClient{response: `{"status":"PASS","issue":"","recommendation":""}`}

	cases := []struct {
		name       string
		alert      specialists.Alert
		wantPrefix string
	}{
		{"truenas", specialists.Alert{Name: "PoolDegraded", Labels: map[string]string{"source": "truenas"}}, "truenas"},
		{"proxmox", specialists.Alert{Name: "VMUnresponsive", Labels: map[string]string{"source": "proxmox"}}, "proxmox"},
		{"gatus", specialists.Alert{Name: "EndpointDown", Labels: map[string]string{"source": "gatus"}}, "gatus"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newFakeHTTPToolClient()
			spec := specialists.NewInfrastructureSpecialist(client, "truenas", "proxmox", "gatus", llmClient, discardLogger())
			spec.Investigate(context.Background(), tc.alert)

			found := false
			for _, call := range client.calls {
				if len(call) >= len(tc.wantPrefix) && call[:len(tc.wantPrefix)] == tc.wantPrefix {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected a call routed to %s, got %v", tc.wantPrefix, client.calls)
			}
		})
	}
}
