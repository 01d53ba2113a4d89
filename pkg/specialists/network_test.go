package specialists_test

import (
	"context"
	"testing"

	"github.com/charlieshreck/homelab-graph/pkg/specialists"
)

func TestNetworkSpecialist_CallsAdguardAndKubectl(t *testing.T) {
	client := newFakeHTTPToolClient().
		on("adguard", "adguard_get_rewrites", map[string]interface{}{"rewrites": []interface{}{}}).
		on("k8s-home", "kubectl_get_services", map[string]interface{}{"services": []interface{}{}})
	llmClient := &fakeLLMClient{response: `{"status":"PASS","issue":"","recommendation":""}`}
	spec := specialists.NewNetworkSpecialist(client, "adguard", "k8s-home", llmClient, discardLogger())

	finding := spec.Investigate(context.Background(), specialists.Alert{
		Name:   "DNSResolutionFailing",
		Labels: map[string]string{"namespace": "default"},
	})

	if finding.Status != specialists.StatusPass {
		t.Fatalf("expected PASS, got %s", finding.Status)
	}

	wantTools := map[string]bool{"adguard/adguard_get_rewrites": false, "k8s-home/kubectl_get_services": false}
	for _, call := range client.calls {
		if _, ok := wantTools[call]; ok {
			wantTools[call] = true
		}
	}
	for tool, called := range wantTools {
		if !called {
			t.Fatalf("expected %s to be called", tool)
		}
	}
}
